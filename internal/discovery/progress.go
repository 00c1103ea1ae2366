package discovery

import (
	"strings"

	"github.com/spinnernet/backend/internal/domain/persona"
)

// Keyword groups that signal the conversation has touched a topic. Substring
// match, case-insensitive, across every message regardless of sender. This is
// a deliberate heuristic: false positives and negatives are expected and
// acceptable.
var (
	valueKeywords    = []string{"value", "important", "matter"}
	goalKeywords     = []string{"goal", "achieve", "aspir"}
	interestKeywords = []string{"enjoy", "hobby", "interest"}
)

const (
	valueBonus    = 15.0
	goalBonus     = 15.0
	interestBonus = 20.0
)

// ScoreProgress computes the 0-100 completion estimate for a conversation:
// 5 points per message capped at 50, plus a fixed one-time bonus per keyword
// group present anywhere in the transcript. Bonuses do not stack on repeated
// matches.
func ScoreProgress(messages []persona.Message) float64 {
	base := float64(len(messages)) * 5
	if base > 50 {
		base = 50
	}

	var haveValues, haveGoals, haveInterests bool
	for _, msg := range messages {
		content := strings.ToLower(msg.Content)
		if !haveValues && containsAny(content, valueKeywords) {
			haveValues = true
		}
		if !haveGoals && containsAny(content, goalKeywords) {
			haveGoals = true
		}
		if !haveInterests && containsAny(content, interestKeywords) {
			haveInterests = true
		}
		if haveValues && haveGoals && haveInterests {
			break
		}
	}

	progress := base
	if haveValues {
		progress += valueBonus
	}
	if haveGoals {
		progress += goalBonus
	}
	if haveInterests {
		progress += interestBonus
	}
	if progress > 100 {
		progress = 100
	}
	return progress
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
