package main

import (
	"regexp"
	"strings"
)

// ActionType is the decoded command type of a model response. Invalid is a
// first class value: anything unparsable decodes to it instead of erroring.
type ActionType int

const (
	ActionInvalid ActionType = iota
	ActionKill
	ActionProtect
	ActionVote
)

// Action is one decoded player command. Target is nil for Invalid.
type Action struct {
	Type   ActionType
	Target *Player
}

func (t ActionType) String() string {
	switch t {
	case ActionKill:
		return "kill"
	case ActionProtect:
		return "protect"
	case ActionVote:
		return "vote"
	default:
		return "invalid"
	}
}

// Per-language marker patterns. The capture group grabs the raw target name,
// which is then trimmed and matched against living players.
var killPatterns = map[string]*regexp.Regexp{
	"English": regexp.MustCompile(`(?i)ACTION:\s*Kill\s+([A-Za-z][-A-Za-z]*)`),
	"Spanish": regexp.MustCompile(`(?i)ACCIÓN:\s*Matar\s+([\w./-]+(?:[-:]\w+)*)`),
	"French":  regexp.MustCompile(`(?i)ACTION:\s*Tuer\s+([\w./-]+(?:[-:]\w+)*)`),
	"Korean":  regexp.MustCompile(`(?i)행동:\s*죽이기\s+([\w./-]+(?:[-:]\w+)*)`),
}

var protectPatterns = map[string]*regexp.Regexp{
	"English": regexp.MustCompile(`(?i)ACTION:\s*Protect\s+([A-Za-z][-A-Za-z]*)`),
	"Spanish": regexp.MustCompile(`(?i)ACCIÓN:\s*Proteger\s+([\w./-]+(?:[-:]\w+)*)`),
	"French":  regexp.MustCompile(`(?i)ACTION:\s*Protéger\s+([\w./-]+(?:[-:]\w+)*)`),
	"Korean":  regexp.MustCompile(`(?i)행동:\s*보호하기\s+([\w./-]+(?:[-:]\w+)*)`),
}

var votePatterns = map[string]*regexp.Regexp{
	"English": regexp.MustCompile(`(?i)VOTE:\s*([\w./-]+(?:[-:]\w+)*)`),
	"Spanish": regexp.MustCompile(`(?i)VOTO:\s*([\w./-]+(?:[-:]\w+)*)`),
	"French":  regexp.MustCompile(`(?i)VOTE:\s*([\w./-]+(?:[-:]\w+)*)`),
	"Korean":  regexp.MustCompile(`(?i)투표:\s*([\w./-]+(?:[-:]\w+)*)`),
}

// Confirmation word classes are matched against the lowercased response.
// Korean patterns carry no \b since RE2 word boundaries are ASCII only and
// would never match next to Hangul.
var agreePatterns = map[string]*regexp.Regexp{
	"English": regexp.MustCompile(`\b(agree|yes|confirm|approve)\b`),
	"Spanish": regexp.MustCompile(`\b(acuerdo|sí|confirmo|apruebo)\b`),
	"French":  regexp.MustCompile(`\b(d'accord|oui|confirme|approuve)\b`),
	"Korean":  regexp.MustCompile(`(동의|예|확인|승인)`),
}

var disagreePatterns = map[string]*regexp.Regexp{
	"English": regexp.MustCompile(`\b(disagree|no|reject|disapprove)\b`),
	"Spanish": regexp.MustCompile(`\b(desacuerdo|no|rechazo|desapruebo)\b`),
	"French":  regexp.MustCompile(`\b(pas d'accord|non|rejette|désapprouve)\b`),
	"Korean":  regexp.MustCompile(`(반대|아니오|거부|불승인)`),
}

func patternFor(patterns map[string]*regexp.Regexp, lang string) *regexp.Regexp {
	if re, ok := patterns[lang]; ok {
		return re
	}
	return patterns["English"]
}

// cleanTarget strips whitespace and trailing punctuation from a captured
// target name before it is compared against player names.
func cleanTarget(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), ".:,; \t")
}

// extractNightAction decodes the actor's night command from a sanitized
// response. Mafia kills must target a living non-Mafia player other than the
// actor; Doctor protection may target any living player including the actor.
// Villagers have no night action. Anything else decodes to Invalid.
func extractNightAction(actor *Player, response string, players []*Player) Action {
	switch actor.Role {
	case RoleMafia:
		m := patternFor(killPatterns, actor.Language).FindStringSubmatch(response)
		if m == nil {
			return Action{Type: ActionInvalid}
		}
		target := cleanTarget(m[1])
		for _, p := range players {
			if p.Alive && p.Role != RoleMafia && p.Name != actor.Name && strings.EqualFold(p.Name, target) {
				return Action{Type: ActionKill, Target: p}
			}
		}
		return Action{Type: ActionInvalid}

	case RoleDoctor:
		m := patternFor(protectPatterns, actor.Language).FindStringSubmatch(response)
		if m == nil {
			return Action{Type: ActionInvalid}
		}
		target := cleanTarget(m[1])
		for _, p := range players {
			if p.Alive && strings.EqualFold(p.Name, target) {
				return Action{Type: ActionProtect, Target: p}
			}
		}
		return Action{Type: ActionInvalid}

	default:
		return Action{Type: ActionInvalid}
	}
}

// extractVote decodes a day vote from a sanitized response. The vote is valid
// only if it names a living player other than the voter; otherwise Invalid is
// returned and the caller decides the fallback.
func extractVote(actor *Player, response string, players []*Player) Action {
	m := patternFor(votePatterns, actor.Language).FindStringSubmatch(response)
	if m == nil {
		return Action{Type: ActionInvalid}
	}
	target := cleanTarget(m[1])
	for _, p := range players {
		if p.Alive && p.Name != actor.Name && strings.EqualFold(p.Name, target) {
			return Action{Type: ActionVote, Target: p}
		}
	}
	return Action{Type: ActionInvalid}
}

// extractConfirmationVote maps a sanitized confirmation response to "agree"
// or "disagree". The agree word class is checked first; a response matching
// neither defaults to "disagree".
func extractConfirmationVote(response, language string) string {
	lowered := strings.ToLower(response)
	if patternFor(agreePatterns, language).MatchString(lowered) {
		return "agree"
	}
	if patternFor(disagreePatterns, language).MatchString(lowered) {
		return "disagree"
	}
	return "disagree"
}
