package main

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func dayTestGame(t *testing.T) (*MafiaGame, *mockGenerator) {
	t.Helper()
	gen := silentGenerator()
	cfg := newTestConfig()
	g := seatedGame(cfg, []*Player{
		seat("Alex", RoleMafia),
		seat("Bailey", RoleMafia),
		seat("Casey", RoleDoctor),
		seat("Dana", RoleVillager),
		seat("Ellis", RoleVillager),
		seat("Finley", RoleVillager),
		seat("Gray", RoleVillager),
		seat("Harper", RoleVillager),
	})
	g.gen = gen
	return g, gen
}

// voteScript votes per the given map during the voting sub-round and agrees
// with every confirmation poll.
func voteScript(votes map[string]string) func(string, string) (string, error) {
	return func(_, prompt string) (string, error) {
		speaker := promptSpeaker(prompt)
		switch {
		case isVotingPrompt(prompt):
			if target, ok := votes[speaker]; ok {
				return fmt.Sprintf("My mind is made up. VOTE: %s", target), nil
			}
			return "I abstain.", nil
		case isConfirmationPrompt(prompt):
			return "I agree with the town.", nil
		case isDiscussionPrompt(prompt):
			return "Someone here is lying.", nil
		}
		return "nothing to add", nil
	}
}

// ============================================================================
// Vote tally
// ============================================================================

func TestTallyVotesPlurality(t *testing.T) {
	alive := []*Player{
		seat("Alex", RoleMafia),
		seat("Bailey", RoleVillager),
		seat("Casey", RoleVillager),
		seat("Dana", RoleVillager),
	}
	votes := map[string]string{
		"Alex":   "Bailey",
		"Bailey": "Alex",
		"Casey":  "Bailey",
		"Dana":   "Bailey",
	}
	counts, details, candidate := tallyVotes(alive, votes)

	if candidate == nil || candidate.Name != "Bailey" {
		t.Fatalf("expected Bailey as plurality candidate, got %v", candidate)
	}
	if counts["Bailey"] != 3 || counts["Alex"] != 1 {
		t.Errorf("unexpected counts %v", counts)
	}
	total := 0
	for _, c := range counts {
		total += c
	}
	if total != len(votes) {
		t.Errorf("count sum %d must equal voter count %d", total, len(votes))
	}
	if got := details["Bailey"]; len(got) != 3 {
		t.Errorf("expected 3 voters recorded for Bailey, got %v", got)
	}
}

func TestTallyVotesTieBreaksBySeatOrder(t *testing.T) {
	alive := []*Player{
		seat("Alex", RoleVillager),
		seat("Bailey", RoleVillager),
		seat("Casey", RoleVillager),
		seat("Dana", RoleVillager),
	}
	// Two votes each for Casey and Bailey. Bailey sits earlier.
	votes := map[string]string{
		"Alex":   "Casey",
		"Bailey": "Casey",
		"Casey":  "Bailey",
		"Dana":   "Bailey",
	}
	_, _, candidate := tallyVotes(alive, votes)

	if candidate == nil || candidate.Name != "Bailey" {
		t.Fatalf("tie must break to the earliest seat, got %v", candidate)
	}
}

func TestTallyVotesNoVotes(t *testing.T) {
	alive := []*Player{seat("Alex", RoleVillager), seat("Bailey", RoleVillager)}
	counts, _, candidate := tallyVotes(alive, map[string]string{})

	if candidate != nil {
		t.Errorf("no votes should yield no candidate, got %v", candidate)
	}
	if len(counts) != 0 {
		t.Errorf("expected empty counts, got %v", counts)
	}
}

func TestTallyVotesEmptyElectoratePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("tally on an empty electorate must panic")
		}
	}()
	tallyVotes(nil, map[string]string{"ghost": "ghost"})
}

// ============================================================================
// Day phase
// ============================================================================

func TestDayVoteEliminatesPluralityTarget(t *testing.T) {
	g, gen := dayTestGame(t)
	gen.respond = voteScript(map[string]string{
		"Alex": "Dana", "Bailey": "Dana", "Casey": "Alex", "Dana": "Alex",
		"Ellis": "Dana", "Finley": "Dana", "Gray": "Dana", "Harper": "Dana",
	})

	eliminated := g.executeDayPhase(context.Background())

	if len(eliminated) != 1 || eliminated[0].Name != "Dana" {
		t.Fatalf("expected Dana eliminated, got %v", eliminated)
	}
	round := g.rounds[len(g.rounds)-1]
	if round.VoteCounts["Dana"] != 6 {
		t.Errorf("expected 6 votes for Dana, got %v", round.VoteCounts)
	}
	if len(round.EliminatedByVote) != 1 || round.EliminatedByVote[0] != "Dana" {
		t.Errorf("elimination by vote not recorded: %v", round.EliminatedByVote)
	}
	if len(round.Voters) != 6 {
		t.Errorf("voters for the eliminated player not recorded: %v", round.Voters)
	}
}

func TestDayCloseRollsIntoNextRound(t *testing.T) {
	g, gen := dayTestGame(t)
	gen.respond = voteScript(nil)

	g.executeDayPhase(context.Background())

	if g.roundNumber != 2 {
		t.Errorf("round number should advance to 2, got %d", g.roundNumber)
	}
	if g.phase != PhaseNight {
		t.Errorf("phase should return to night, got %s", g.phase)
	}
	if len(g.rounds) != 1 {
		t.Errorf("exactly one closed round expected, got %d", len(g.rounds))
	}
	if g.current.RoundNumber != 2 {
		t.Errorf("fresh round record expected, got %d", g.current.RoundNumber)
	}
}

func TestDayBlankVotesAllFallBack(t *testing.T) {
	g, gen := dayTestGame(t)
	agreed := 0
	gen.respond = func(_, prompt string) (string, error) {
		if isConfirmationPrompt(prompt) {
			agreed++
			return "agree", nil
		}
		// Blank during discussion and voting alike.
		return "", nil
	}

	eliminated := g.executeDayPhase(context.Background())

	round := g.rounds[len(g.rounds)-1]
	total := 0
	for _, c := range round.VoteCounts {
		total += c
	}
	if total != 8 {
		t.Fatalf("all 8 living players must get an auto-assigned vote, counted %d", total)
	}
	if len(eliminated) != 1 {
		t.Fatalf("a plurality target must still be computable and confirmable, got %v", eliminated)
	}
	auto := 0
	for _, action := range round.Actions {
		if strings.Contains(action, "(auto-selected)") {
			auto++
		}
	}
	if auto != 8 {
		t.Errorf("expected 8 auto-selected votes, got %d", auto)
	}
	if agreed == 0 {
		t.Error("confirmation poll should have run")
	}
}

func TestDayDiscussionMarkerLeftoversSkipped(t *testing.T) {
	g, gen := dayTestGame(t)
	gen.respond = func(_, prompt string) (string, error) {
		if isDiscussionPrompt(prompt) {
			// Sanitizer cuts at the marker, leaving nothing usable.
			return "VOTE: Dana", nil
		}
		return "", nil
	}

	g.executeDayPhase(context.Background())

	round := g.rounds[len(g.rounds)-1]
	for _, msg := range round.Messages {
		if msg.Phase == PhaseDayDiscussion {
			t.Errorf("marker-only discussion replies must be skipped, got %q", msg.Content)
		}
	}
	if strings.Contains(g.discussionHistory, "VOTE:") {
		t.Errorf("cut marker text must not enter the history, got %q", g.discussionHistory)
	}
}

// ============================================================================
// Confirmation poll
// ============================================================================

func TestConfirmationStrictMajorityConfirms(t *testing.T) {
	g, gen := dayTestGame(t)
	// 7 voters (candidate excluded): 4 agree is a strict majority.
	replies := map[string]string{
		"Alex": "agree", "Bailey": "agree", "Casey": "agree", "Ellis": "agree",
		"Finley": "disagree", "Gray": "disagree", "Harper": "disagree",
	}
	gen.respond = func(_, prompt string) (string, error) {
		return replies[promptSpeaker(prompt)], nil
	}

	confirmed, votes := g.getConfirmationVote(context.Background(), findAlive(g.players, "Dana"))

	if !confirmed {
		t.Error("4 of 7 agreeing must confirm")
	}
	if len(votes["agree"]) != 4 || len(votes["disagree"]) != 3 {
		t.Errorf("unexpected vote split: %v", votes)
	}
}

func TestConfirmationExactHalfRejects(t *testing.T) {
	g, gen := dayTestGame(t)
	g.players[7].Alive = false // Harper, leaving 6 voters besides the candidate
	replies := map[string]string{
		"Alex": "agree", "Bailey": "agree", "Casey": "agree",
		"Ellis": "disagree", "Finley": "disagree", "Gray": "disagree",
	}
	gen.respond = func(_, prompt string) (string, error) {
		return replies[promptSpeaker(prompt)], nil
	}

	confirmed, _ := g.getConfirmationVote(context.Background(), findAlive(g.players, "Dana"))

	if confirmed {
		t.Error("an exact half must reject the elimination")
	}
}

func TestConfirmationRecordsModelIDs(t *testing.T) {
	g, gen := dayTestGame(t)
	gen.respond = func(_, prompt string) (string, error) { return "agree", nil }

	_, votes := g.getConfirmationVote(context.Background(), findAlive(g.players, "Dana"))

	for _, id := range votes["agree"] {
		if !strings.HasPrefix(id, "test/") {
			t.Errorf("confirmation votes must record model IDs, got %q", id)
		}
	}
}

func TestRejectedConfirmationSparesTarget(t *testing.T) {
	g, gen := dayTestGame(t)
	gen.respond = func(_, prompt string) (string, error) {
		switch {
		case isVotingPrompt(prompt):
			return "VOTE: Dana", nil
		case isConfirmationPrompt(prompt):
			return "I disagree, this feels wrong.", nil
		}
		return "chatter", nil
	}

	eliminated := g.executeDayPhase(context.Background())

	if len(eliminated) != 0 {
		t.Fatalf("rejected confirmation must spare the target, got %v", eliminated)
	}
	if findAlive(g.players, "Dana") == nil {
		t.Error("Dana should still be alive")
	}
	round := g.rounds[len(g.rounds)-1]
	if !strings.Contains(round.Outcome, "rejected by the town") {
		t.Errorf("outcome should record the rejection, got %q", round.Outcome)
	}
}

func TestLastWordsRecordedButNotShared(t *testing.T) {
	g, gen := dayTestGame(t)
	gen.respond = func(_, prompt string) (string, error) {
		switch {
		case isVotingPrompt(prompt):
			return "VOTE: Dana", nil
		case isConfirmationPrompt(prompt):
			return "agree", nil
		case isLastWordsPrompt(prompt):
			return "You will regret this, I was innocent.", nil
		}
		return "chatter", nil
	}

	g.executeDayPhase(context.Background())

	round := g.rounds[len(g.rounds)-1]
	if round.LastWords != "You will regret this, I was innocent." {
		t.Errorf("last words not recorded: %q", round.LastWords)
	}
	if strings.Contains(g.discussionHistory, "regret") {
		t.Error("last words must not enter the shared discussion history")
	}
}
