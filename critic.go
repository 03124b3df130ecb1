package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
)

var criticJSONRe = regexp.MustCompile(`(?s)(\{.*\})`)

// generateCriticReview asks the configured critic model for a short review of
// the finished game. The reply is expected to carry a JSON object; anything
// less structured degrades to a plain-text review. Returns nil when no critic
// model is configured.
func (g *MafiaGame) generateCriticReview(ctx context.Context, winner string) *CriticReview {
	if g.cfg.CriticModel == "" {
		return nil
	}

	var eliminations []string
	for _, round := range g.rounds {
		for _, name := range round.Eliminations {
			eliminations = append(eliminations, fmt.Sprintf("%s (round %d)", name, round.RoundNumber))
		}
	}
	var roles []string
	for _, p := range g.players {
		roles = append(roles, fmt.Sprintf("%s: %s", p.Name, p.Role))
	}

	prompt := fmt.Sprintf(`You are a professional game critic reviewing a Mafia game played by AI language models.

Game summary:
- Winner: %s
- Number of rounds: %d
- Players and roles: %s
- Eliminations: %s

Write a short, entertaining critic review of this game. Include:
1. A catchy title for your review (max 50 characters)
2. A concise review (max 200 words) that analyzes:
   - The game's pacing and length
   - Interesting strategic moves or blunders
   - The performance of the winning team
   - Any particularly noteworthy moments
3. A one-sentence intense summary that captures the essence of the game in a dramatic way (max 100 characters)

Your tone should be professional but entertaining, like a game critic. Be specific about this particular game.
Format your response as a JSON object with 'title', 'content', and 'one_liner' fields.`,
		winner, g.roundNumber, strings.Join(roles, ", "), strings.Join(eliminations, ", "))

	response, err := g.gen.Generate(ctx, g.cfg.CriticModel, prompt)
	if err != nil {
		log.Printf("Game %d: critic review failed: %v", g.gameNumber, err)
		return &CriticReview{
			Title:    "Game Review Unavailable",
			Content:  "The critic was unable to review this game due to API issues.",
			OneLiner: "Technical difficulties prevented our critic from witnessing this showdown.",
		}
	}

	if m := criticJSONRe.FindStringSubmatch(response); m != nil {
		var review CriticReview
		if err := json.Unmarshal([]byte(m[1]), &review); err == nil {
			if review.OneLiner == "" {
				review.OneLiner = "A game that defies simple description!"
			}
			return &review
		}
		log.Printf("Game %d: critic review JSON unparsable, keeping raw text", g.gameNumber)
	}

	content := response
	if len(content) > 300 {
		content = content[:300]
	}
	return &CriticReview{
		Title:    "AI Mafia Game Review",
		Content:  content,
		OneLiner: "A game that defies conventional criticism!",
	}
}
