package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
)

// executeDayPhase runs one day: a discussion sub-round, a voting sub-round,
// a plurality tally, and a confirmation poll that can still veto the result.
// It closes the current round record and opens the next one.
func (g *MafiaGame) executeDayPhase(ctx context.Context) []*Player {
	g.phase = PhaseDay
	g.publish(EventPhase, fmt.Sprintf("Day %d breaks", g.roundNumber))

	alive := alivePlayers(g.players)

	g.conductInteractions(ctx, alive, PhaseDayDiscussion,
		fmt.Sprintf("It's day time (Round %d). Discuss with other players about who might be Mafia. This is the DISCUSSION PHASE ONLY - DO NOT VOTE YET. You will vote in the next round.", g.roundNumber),
		nil)

	votes := make(map[string]string)
	g.conductInteractions(ctx, alive, PhaseDayVoting,
		fmt.Sprintf("It's now the VOTING PHASE (Round %d). Make your final arguments and YOU MUST VOTE to eliminate a suspected Mafia member. End your message with VOTE: [player name].", g.roundNumber),
		votes)

	voteCounts, voteDetails, candidate := tallyVotes(alive, votes)
	g.current.VoteCounts = voteCounts
	g.current.VoteDetails = voteDetails

	var eliminated []*Player
	if candidate != nil {
		confirmed, confirmationVotes := g.getConfirmationVote(ctx, candidate)
		g.current.ConfirmationVotes = confirmationVotes

		if !confirmed {
			text := fmt.Sprintf("The elimination of %s was rejected by the town.", candidate.Name)
			g.current.Outcome += " " + text
			g.publish(EventOutcome, text)
		} else {
			lastWords := g.getLastWords(ctx, candidate, voteCounts[candidate.Name])

			candidate.Alive = false
			eliminated = append(eliminated, candidate)
			g.current.Eliminations = append(g.current.Eliminations, candidate.Name)
			g.current.EliminatedByVote = append(g.current.EliminatedByVote, candidate.Name)
			g.current.Voters = voteDetails[candidate.Name]

			text := fmt.Sprintf("%s [%s] was eliminated by vote with %d votes.",
				candidate.Name, candidate.ModelID, voteCounts[candidate.Name])
			g.current.Outcome += " " + text
			g.publish(EventOutcome, text)

			if lastWords != "" {
				g.current.LastWords = lastWords
				g.publish(EventMessage, fmt.Sprintf("%s's last words: %q", candidate.Name, lastWords))
			}
		}
	} else {
		text := "No one was eliminated by vote."
		g.current.Outcome += " " + text
		g.publish(EventOutcome, text)
	}

	// Close this night+day record and open the next round.
	g.phase = PhaseNight
	g.rounds = append(g.rounds, g.current)
	g.roundNumber++
	g.current = newRound(g.roundNumber)

	return eliminated
}

// conductInteractions walks the living players in seat order, prompts each
// one, and feeds the sanitized reply into the shared discussion history.
// votes is non-nil only during the voting sub-round; every voter ends up with
// exactly one valid vote, invalid or missing votes get a random fallback.
func (g *MafiaGame) conductInteractions(ctx context.Context, alive []*Player, phaseType, instruction string, votes map[string]string) {
	activeNames := aliveNames(g.players)

	for _, p := range alive {
		gameState := fmt.Sprintf("%s %s", g.gameState(), instruction)

		lang := templateLanguage(p.Language)
		switch p.Role {
		case RoleDoctor:
			gameState += doctorDayWarnings[lang]
		case RoleMafia:
			gameState += mafiaDayWarnings[lang]
		}
		if phaseType == PhaseDayVoting {
			gameState += votingReminders[lang]
		}

		discussionContext := g.discussionWithoutThinking()
		if graph := g.discussionGraphFromHistory(ctx); graph != "" {
			DebugLog("game %s: graph for %s:\n%s", g.gameID, p.Name, graph)
			discussionContext = graph + "\n" + discussionContext
		}

		var mafia []*Player
		if p.Role == RoleMafia {
			mafia = g.mafiaPlayers
		}
		prompt := buildRolePrompt(p, gameState, alive, mafia, discussionContext, g.cfg.MaxTokens)

		response := getAgentResponse(ctx, g.gen, p, prompt, g.logger)
		sanitized := sanitizeResponse(response, p.Name, activeNames, phaseType)

		// A reply that is empty after cleanup, or that is nothing but leftover
		// marker fragments during discussion, is skipped entirely.
		upper := strings.ToUpper(strings.TrimSpace(sanitized))
		leftoverMarker := phaseType == PhaseDayDiscussion &&
			(strings.Contains(upper, "ACTION:") || strings.Contains(upper, "VOTE:") || strings.Contains(upper, "ACCIÓN:"))
		if sanitized == "" || leftoverMarker {
			if votes != nil {
				g.recordFallbackVote(p, alive, votes)
			}
			continue
		}

		g.recordMessage(p, sanitized, phaseType)
		g.publish(EventMessage, fmt.Sprintf("%s: %s", p.Name, sanitized))

		if votes != nil {
			action := extractVote(p, sanitized, alive)
			if action.Type == ActionVote {
				votes[p.Name] = action.Target.Name
				g.current.Actions[p.Name] = "Vote " + action.Target.Name
			} else {
				g.recordFallbackVote(p, alive, votes)
			}
		}

		g.discussionHistory += fmt.Sprintf("%s: %s\n\n", p.Name, sanitized)
	}
}

// recordFallbackVote substitutes a random valid target for a voter whose
// response produced no usable vote. Every living voter always counts.
func (g *MafiaGame) recordFallbackVote(p *Player, alive []*Player, votes map[string]string) {
	target := randomVoteTarget(g.rng, alive, p)
	if target == nil {
		log.Printf("Game %d: %s has no possible vote target", g.gameNumber, p.Name)
		g.current.Actions[p.Name] = "Invalid vote"
		return
	}
	votes[p.Name] = target.Name
	g.current.Actions[p.Name] = fmt.Sprintf("Vote %s (auto-selected)", target.Name)
	log.Printf("Game %d: %s failed to cast a valid vote, auto-selected %s", g.gameNumber, p.Name, target.Name)
}

// randomVoteTarget picks a random living player other than the voter.
func randomVoteTarget(rng *rand.Rand, alive []*Player, voter *Player) *Player {
	var possible []*Player
	for _, p := range alive {
		if p.Name != voter.Name {
			possible = append(possible, p)
		}
	}
	if len(possible) == 0 {
		return nil
	}
	return possible[rng.Intn(len(possible))]
}

// tallyVotes counts the day votes and returns the plurality candidate.
// The sum of counts always equals the number of recorded voters. On a tie the
// first living player in seat order among the leaders wins. A tally with no
// electorate is a programmer error and panics.
func tallyVotes(alive []*Player, votes map[string]string) (map[string]int, map[string][]string, *Player) {
	if len(alive) == 0 {
		panic("tallyVotes: empty electorate")
	}

	voteCounts := make(map[string]int)
	voteDetails := make(map[string][]string)
	// Walk voters in seat order so voteDetails lists are deterministic.
	for _, voter := range alive {
		target, ok := votes[voter.Name]
		if !ok {
			continue
		}
		voteCounts[target]++
		voteDetails[target] = append(voteDetails[target], voter.Name)
	}

	max := 0
	for _, c := range voteCounts {
		if c > max {
			max = c
		}
	}
	if max == 0 {
		return voteCounts, voteDetails, nil
	}
	for _, p := range alive {
		if voteCounts[p.Name] == max {
			return voteCounts, voteDetails, p
		}
	}
	return voteCounts, voteDetails, nil
}

// getConfirmationVote polls every living player except the candidate. The
// elimination is confirmed only by a strict majority of the polled players;
// an exact half is a rejection. Votes are recorded by backing model ID.
func (g *MafiaGame) getConfirmationVote(ctx context.Context, candidate *Player) (bool, map[string][]string) {
	var voters []*Player
	for _, p := range alivePlayers(g.players) {
		if p != candidate {
			voters = append(voters, p)
		}
	}

	confirmationVotes := map[string][]string{"agree": {}, "disagree": {}}
	for _, voter := range voters {
		prompt := buildConfirmationPrompt(voter, candidate.Name, g.gameState(), g.cfg.MaxTokens)
		response := getAgentResponse(ctx, g.gen, voter, prompt, g.logger)
		sanitized := sanitizeResponse(response, voter.Name, nil, PhaseConfirmation)

		vote := extractConfirmationVote(sanitized, voter.Language)
		confirmationVotes[vote] = append(confirmationVotes[vote], voter.ModelID)
		DebugLog("game %s: %s votes %s on eliminating %s", g.gameID, voter.Name, vote, candidate.Name)
	}

	confirmed := 2*len(confirmationVotes["agree"]) > len(voters)
	return confirmed, confirmationVotes
}

// getLastWords asks a confirmed elimination target for a final statement.
// The reply is stored in the round record but never enters the discussion
// history the remaining players see.
func (g *MafiaGame) getLastWords(ctx context.Context, p *Player, voteCount int) string {
	gameState := fmt.Sprintf("%s You have been voted out with %d votes and will be eliminated. Share your final thoughts before leaving the game.",
		g.gameState(), voteCount)

	var mafia []*Player
	if p.Role == RoleMafia {
		mafia = g.mafiaPlayers
	}
	prompt := buildRolePrompt(p, gameState, alivePlayers(g.players), mafia, g.discussionWithoutThinking(), g.cfg.MaxTokens)

	response := getAgentResponse(ctx, g.gen, p, prompt, g.logger)
	if response == noResponseSentinel {
		return ""
	}
	return response
}
