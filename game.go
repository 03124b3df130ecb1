package main

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Message is one logged utterance, night actions included. Players only ever
// see day phase messages; the full set exists for the game log.
type Message struct {
	Speaker string `json:"speaker"`
	Content string `json:"content"`
	Phase   string `json:"phase"`
	Role    string `json:"role"`
}

// Round is the record of one night+day cycle. A single record spans both
// phases; consumers of the historical log shape depend on that pairing.
type Round struct {
	RoundNumber       int                 `json:"round_number"`
	Messages          []Message           `json:"messages"`
	Actions           map[string]string   `json:"actions"`
	Eliminations      []string            `json:"eliminations"`
	EliminatedByVote  []string            `json:"eliminated_by_vote"`
	TargetedByMafia   []string            `json:"targeted_by_mafia"`
	ProtectedByDoctor []string            `json:"protected_by_doctor"`
	VoteCounts        map[string]int      `json:"vote_counts,omitempty"`
	VoteDetails       map[string][]string `json:"vote_details,omitempty"`
	ConfirmationVotes map[string][]string `json:"confirmation_votes,omitempty"`
	LastWords         string              `json:"last_words,omitempty"`
	Voters            []string            `json:"voters,omitempty"`
	Outcome           string              `json:"outcome"`
}

// Participant maps a visible name to its role and backing model for the
// results log.
type Participant struct {
	Role       string `json:"role"`
	ModelID    string `json:"model_name"`
	PlayerName string `json:"player_name"`
}

// CriticReview is the post-game review produced by the critic model.
type CriticReview struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	OneLiner string `json:"one_liner"`
}

// GameResult is everything a finished game leaves behind.
type GameResult struct {
	GameID       string
	GameNumber   int
	Winner       string
	RoundsPlayed int
	Rounds       []*Round
	Participants map[string]Participant
	Language     string
	CriticReview *CriticReview
}

// MafiaGame runs one game to completion. A game is strictly sequential
// internally; concurrency happens across games, each with its own MafiaGame
// and its own random source.
type MafiaGame struct {
	cfg    AppConfig
	gen    Generator
	rng    *rand.Rand
	sink   EventSink
	logger *AppLogger

	gameID      string
	gameNumber  int
	roundNumber int
	phase       string

	players         []*Player
	mafiaPlayers    []*Player
	doctorPlayer    *Player
	villagerPlayers []*Player

	discussionHistory string
	rounds            []*Round
	current           *Round
}

// NewMafiaGame builds a game instance. The rng is the game's only source of
// randomness; a fixed seed makes the whole game reproducible. sink and logger
// may be nil.
func NewMafiaGame(cfg AppConfig, gen Generator, rng *rand.Rand, sink EventSink, logger *AppLogger) *MafiaGame {
	return &MafiaGame{
		cfg:    cfg,
		gen:    gen,
		rng:    rng,
		sink:   sink,
		logger: logger,
		gameID: uuid.NewString(),
		phase:  PhaseSetup,
	}
}

func newRound(n int) *Round {
	return &Round{
		RoundNumber:  n,
		Actions:      make(map[string]string),
		Eliminations: []string{},
	}
}

// setupGame assigns models, names and roles to all seats. Role counts that
// cannot produce a playable game are a hard error; nothing else here fails.
func (g *MafiaGame) setupGame(gameNumber int) error {
	if err := g.cfg.Validate(); err != nil {
		return fmt.Errorf("game setup: %w", err)
	}
	g.gameNumber = gameNumber

	n := g.cfg.PlayersPerGame
	selected := make([]string, n)
	if g.cfg.UniqueModels {
		perm := g.rng.Perm(len(g.cfg.Models))
		for i := 0; i < n; i++ {
			selected[i] = g.cfg.Models[perm[i]]
		}
	} else {
		for i := 0; i < n; i++ {
			selected[i] = g.cfg.Models[g.rng.Intn(len(g.cfg.Models))]
		}
	}

	roles := make([]Role, 0, n)
	for i := 0; i < g.cfg.MafiaCount; i++ {
		roles = append(roles, RoleMafia)
	}
	for i := 0; i < g.cfg.DoctorCount; i++ {
		roles = append(roles, RoleDoctor)
	}
	for len(roles) < n {
		roles = append(roles, RoleVillager)
	}
	g.rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	names := make([]string, len(playerNamePool))
	copy(names, playerNamePool)
	g.rng.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})

	for i := 0; i < n; i++ {
		p := &Player{
			ModelID:  selected[i],
			Name:     names[i],
			Role:     roles[i],
			Alive:    true,
			Language: g.cfg.Language,
		}
		g.players = append(g.players, p)
		switch p.Role {
		case RoleMafia:
			g.mafiaPlayers = append(g.mafiaPlayers, p)
		case RoleDoctor:
			g.doctorPlayer = p
		default:
			g.villagerPlayers = append(g.villagerPlayers, p)
		}
		DebugLog("game %s: seat %d = %s", g.gameID, i, p)
	}

	g.phase = PhaseNight
	g.roundNumber = 1
	g.current = newRound(1)
	g.publish(EventGameStarted, fmt.Sprintf("Game %d started (%d players, %d Mafia)", gameNumber, n, g.cfg.MafiaCount))
	return nil
}

// gameState renders the public state summary shared with every prompt.
func (g *MafiaGame) gameState() string {
	mafiaAlive := countAlive(g.mafiaPlayers)
	villagerAlive := countAlive(g.villagerPlayers)
	doctorAlive := 0
	if g.doctorPlayer != nil && g.doctorPlayer.Alive {
		doctorAlive = 1
	}

	phaseLabel := strings.ToUpper(g.phase[:1]) + g.phase[1:]
	state := fmt.Sprintf("Round %d, %s phase. ", g.roundNumber, phaseLabel)
	state += fmt.Sprintf("%d players alive (%d Mafia, %d Villagers/Doctor). ",
		countAlive(g.players), mafiaAlive, villagerAlive+doctorAlive)

	if g.roundNumber > 1 && len(g.current.Eliminations) > 0 {
		verb := "were"
		if len(g.current.Eliminations) == 1 {
			verb = "was"
		}
		state += fmt.Sprintf("In the previous round, %s %s eliminated. ",
			strings.Join(g.current.Eliminations, ", "), verb)
	}
	return state
}

// checkGameOver evaluates the win conditions. Mafia win on reaching numeric
// parity with the rest of the town. Hitting the round limit forces a decision
// by the same numeric comparison instead of leaving the game undecided.
func (g *MafiaGame) checkGameOver() (bool, string) {
	mafiaAlive := countAlive(g.mafiaPlayers)
	villagersAlive := countAlive(g.villagerPlayers)
	if g.doctorPlayer != nil && g.doctorPlayer.Alive {
		villagersAlive++
	}

	switch {
	case mafiaAlive == 0:
		return true, "Villagers"
	case mafiaAlive >= villagersAlive:
		return true, "Mafia"
	case g.roundNumber >= g.cfg.MaxRounds:
		if villagersAlive > mafiaAlive {
			return true, "Villagers"
		}
		return true, "Mafia"
	}
	return false, ""
}

var residualThinkRe = regexp.MustCompile(`(?is)<think>.*?</think>`)
var openThinkRe = regexp.MustCompile(`(?is)<think>.*$`)

// discussionWithoutThinking returns the shared discussion context: think
// blocks stripped, trimmed to the newest messages. Messages are separated by
// blank lines in the accumulated history.
func (g *MafiaGame) discussionWithoutThinking() string {
	history := residualThinkRe.ReplaceAllString(g.discussionHistory, "")
	history = openThinkRe.ReplaceAllString(history, "")

	var entries []string
	for _, entry := range strings.Split(strings.TrimSpace(history), "\n\n") {
		if strings.TrimSpace(entry) != "" {
			entries = append(entries, entry)
		}
	}
	if limit := g.cfg.DiscussionHistoryLimit; limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return strings.TrimSpace(strings.Join(entries, "\n\n"))
}

var graphEdgeRe = regexp.MustCompile(`^\w+(?: \w+)*\s*->\s*\w+\s*->\s*\w+(?: \w+)*$`)

// discussionGraphFromHistory asks a model to extract explicit player-to-player
// relationship edges from the discussion so far. Only lines matching the
// "A -> relation -> B" shape survive; anything else the model invents is
// dropped. Returns "" when disabled or when nothing parseable comes back.
func (g *MafiaGame) discussionGraphFromHistory(ctx context.Context) string {
	if !g.cfg.DiscussionGraph {
		return ""
	}
	discussion := g.discussionWithoutThinking()
	if discussion == "" {
		return ""
	}

	prompt := "Based only on the discussion history between players in a game of Mafia below, " +
		"extract and list ALL explicit, clearly-stated *relationships* between players—such as direct suspicion, trust, voting, accusations, or alliance/support. " +
		"DO NOT invent information, do NOT deduce, do NOT guess or imagine any relationships—list only those that are IMPLICITLY or EXPLICITLY PRESENT in the text. " +
		"Format: [SOURCE] -> [relation/action] -> [TARGET] (one edge per line).\n" +
		"Discussion history:\n" + discussion + "\n\nList of relationship edges:"

	graphText, err := g.gen.Generate(ctx, g.cfg.Models[0], prompt)
	if err != nil {
		DebugLog("game %s: graph extraction: %v", g.gameID, err)
		return ""
	}

	var edges []string
	for _, line := range strings.Split(graphText, "\n") {
		line = strings.TrimSpace(line)
		if graphEdgeRe.MatchString(line) {
			edges = append(edges, line)
		}
	}
	return strings.Join(edges, "\n")
}

// recordMessage appends to the current round's log.
func (g *MafiaGame) recordMessage(p *Player, content, phase string) {
	g.current.Messages = append(g.current.Messages, Message{
		Speaker: p.Name,
		Content: content,
		Phase:   phase,
		Role:    string(p.Role),
	})
}

func (g *MafiaGame) publish(kind EventKind, text string) {
	if g.sink == nil {
		return
	}
	g.sink.Publish(GameEvent{
		GameID: g.gameID,
		Round:  g.roundNumber,
		Phase:  g.phase,
		Kind:   kind,
		Text:   text,
	})
}

func (g *MafiaGame) participants() map[string]Participant {
	out := make(map[string]Participant, len(g.players))
	for _, p := range g.players {
		out[p.Name] = Participant{
			Role:       string(p.Role),
			ModelID:    p.ModelID,
			PlayerName: p.Name,
		}
	}
	return out
}
