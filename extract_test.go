package main

import "testing"

func testRoster() []*Player {
	return []*Player{
		seat("Alex", RoleMafia),
		seat("Bailey", RoleMafia),
		seat("Casey", RoleDoctor),
		seat("Dana", RoleVillager),
		seat("Ellis", RoleVillager),
	}
}

func TestExtractMafiaKill(t *testing.T) {
	roster := testRoster()
	action := extractNightAction(roster[0], "Tonight we strike. ACTION: Kill Dana", roster)

	if action.Type != ActionKill {
		t.Fatalf("expected kill, got %s", action.Type)
	}
	if action.Target.Name != "Dana" {
		t.Errorf("expected target Dana, got %s", action.Target.Name)
	}
}

func TestExtractKillCaseInsensitiveAndPunctuated(t *testing.T) {
	roster := testRoster()
	action := extractNightAction(roster[0], "action: kill dana.", roster)

	if action.Type != ActionKill || action.Target.Name != "Dana" {
		t.Fatalf("expected kill of Dana, got %s / %v", action.Type, action.Target)
	}
}

func TestExtractKillRejectsMafiaTarget(t *testing.T) {
	roster := testRoster()
	action := extractNightAction(roster[0], "ACTION: Kill Bailey", roster)

	if action.Type != ActionInvalid {
		t.Errorf("kill of a fellow Mafia member must be invalid, got %s", action.Type)
	}
}

func TestExtractKillRejectsSelf(t *testing.T) {
	roster := testRoster()
	action := extractNightAction(roster[0], "ACTION: Kill Alex", roster)

	if action.Type != ActionInvalid {
		t.Errorf("self-kill must be invalid, got %s", action.Type)
	}
}

func TestExtractKillRejectsDeadTarget(t *testing.T) {
	roster := testRoster()
	roster[3].Alive = false
	action := extractNightAction(roster[0], "ACTION: Kill Dana", roster)

	if action.Type != ActionInvalid {
		t.Errorf("kill of a dead player must be invalid, got %s", action.Type)
	}
}

func TestExtractDoctorProtect(t *testing.T) {
	roster := testRoster()
	action := extractNightAction(roster[2], "ACTION: Protect Ellis", roster)

	if action.Type != ActionProtect || action.Target.Name != "Ellis" {
		t.Fatalf("expected protect of Ellis, got %s / %v", action.Type, action.Target)
	}
}

func TestExtractDoctorMayProtectSelf(t *testing.T) {
	roster := testRoster()
	action := extractNightAction(roster[2], "ACTION: Protect Casey", roster)

	if action.Type != ActionProtect || action.Target.Name != "Casey" {
		t.Errorf("doctor self-protection should be valid, got %s / %v", action.Type, action.Target)
	}
}

func TestExtractVillagerHasNoNightAction(t *testing.T) {
	roster := testRoster()
	action := extractNightAction(roster[3], "ACTION: Kill Alex", roster)

	if action.Type != ActionInvalid {
		t.Errorf("villager night action must be invalid, got %s", action.Type)
	}
}

func TestExtractVote(t *testing.T) {
	roster := testRoster()
	action := extractVote(roster[3], "Alex has been deflecting all day. VOTE: Alex", roster)

	if action.Type != ActionVote || action.Target.Name != "Alex" {
		t.Fatalf("expected vote for Alex, got %s / %v", action.Type, action.Target)
	}
}

func TestExtractVoteRejectsSelfAndDead(t *testing.T) {
	roster := testRoster()
	if action := extractVote(roster[3], "VOTE: Dana", roster); action.Type != ActionInvalid {
		t.Errorf("self-vote must be invalid, got %s", action.Type)
	}
	roster[0].Alive = false
	if action := extractVote(roster[3], "VOTE: Alex", roster); action.Type != ActionInvalid {
		t.Errorf("vote for a dead player must be invalid, got %s", action.Type)
	}
}

func TestExtractVoteNoMarker(t *testing.T) {
	roster := testRoster()
	if action := extractVote(roster[3], "I am not sure who to pick yet.", roster); action.Type != ActionInvalid {
		t.Errorf("missing marker must be invalid, got %s", action.Type)
	}
}

func TestExtractVoteUnknownName(t *testing.T) {
	roster := testRoster()
	if action := extractVote(roster[3], "VOTE: Zebra", roster); action.Type != ActionInvalid {
		t.Errorf("unknown name must be invalid, got %s", action.Type)
	}
}

func TestExtractLocalizedMarkers(t *testing.T) {
	roster := testRoster()
	for _, p := range roster {
		p.Language = "Spanish"
	}
	if action := extractNightAction(roster[0], "ACCIÓN: Matar Dana", roster); action.Type != ActionKill || action.Target.Name != "Dana" {
		t.Errorf("Spanish kill marker failed: %s / %v", action.Type, action.Target)
	}
	if action := extractVote(roster[3], "VOTO: Alex", roster); action.Type != ActionVote || action.Target.Name != "Alex" {
		t.Errorf("Spanish vote marker failed: %s / %v", action.Type, action.Target)
	}

	for _, p := range roster {
		p.Language = "Korean"
	}
	if action := extractNightAction(roster[0], "행동: 죽이기 Dana", roster); action.Type != ActionKill || action.Target.Name != "Dana" {
		t.Errorf("Korean kill marker failed: %s / %v", action.Type, action.Target)
	}
	if action := extractNightAction(roster[2], "행동: 보호하기 Ellis", roster); action.Type != ActionProtect || action.Target.Name != "Ellis" {
		t.Errorf("Korean protect marker failed: %s / %v", action.Type, action.Target)
	}
}

func TestExtractConfirmationVote(t *testing.T) {
	cases := []struct {
		response string
		language string
		want     string
	}{
		{"I AGREE with this decision.", "English", "agree"},
		{"Yes, confirm it.", "English", "agree"},
		{"I disagree strongly.", "English", "disagree"},
		{"No way.", "English", "disagree"},
		{"hmm let me think about it", "English", "disagree"},
		{"", "English", "disagree"},
		{"Estoy de acuerdo con esto.", "Spanish", "agree"},
		{"En desacuerdo totalmente.", "Spanish", "disagree"},
		{"Oui, absolument.", "French", "agree"},
		{"동의합니다.", "Korean", "agree"},
		{"반대합니다.", "Korean", "disagree"},
	}
	for _, c := range cases {
		if got := extractConfirmationVote(c.response, c.language); got != c.want {
			t.Errorf("confirmation %q (%s) = %q, want %q", c.response, c.language, got, c.want)
		}
	}
}
