package discovery

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ParseOutcome records which tier of the extraction parse chain produced the
// result. Model output is not contractually well-formed JSON, so the chain
// degrades from strict parsing to field recovery to a hard default.
type ParseOutcome string

const (
	ParseStrict    ParseOutcome = "strict"
	ParseRecovered ParseOutcome = "recovered"
	ParseDefault   ParseOutcome = "default"
)

// extractionPayload mirrors the JSON object the extraction prompt asks the
// model to return.
type extractionPayload struct {
	Traits             []string `json:"traits"`
	Values             []string `json:"values"`
	CommunicationStyle string   `json:"communicationStyle"`
	DecisionMaking     string   `json:"decisionMaking"`
	Goals              []string `json:"goals"`
	Challenges         []string `json:"challenges"`
	Interests          []string `json:"interests"`
	PrimaryMotivation  string   `json:"primaryMotivation"`
	LearningStyle      string   `json:"learningStyle"`
}

func (p extractionPayload) hasAny() bool {
	return len(p.Traits) > 0 || len(p.Values) > 0 || len(p.Goals) > 0 ||
		len(p.Challenges) > 0 || len(p.Interests) > 0 ||
		p.CommunicationStyle != "" || p.DecisionMaking != "" ||
		p.PrimaryMotivation != "" || p.LearningStyle != ""
}

// ParseExtraction runs the parse chain over raw model output.
//
// Tier 1 (strict): trim to the substring between the first '{' and the last
// '}', since models often add leading or trailing prose, and parse it as JSON.
// Tier 2 (recovered): attempt a JSON repair of the same substring, then fall
// back to per-field regex recovery over the full text.
// Tier 3 (default): nothing could be extracted; the caller substitutes the
// hard-coded default profile.
func ParseExtraction(raw string) (extractionPayload, ParseOutcome) {
	sub, ok := braceSubstring(raw)
	if ok {
		var strict extractionPayload
		if err := json.Unmarshal([]byte(sub), &strict); err == nil && strict.hasAny() {
			return strict, ParseStrict
		}

		if repaired, err := jsonrepair.JSONRepair(sub); err == nil {
			var recovered extractionPayload
			if err := json.Unmarshal([]byte(repaired), &recovered); err == nil && recovered.hasAny() {
				return recovered, ParseRecovered
			}
		}
	}

	if manual := regexExtract(raw); manual.hasAny() {
		return manual, ParseRecovered
	}
	return extractionPayload{}, ParseDefault
}

func braceSubstring(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

var (
	arrayFieldRe  = map[string]*regexp.Regexp{}
	stringFieldRe = map[string]*regexp.Regexp{}
)

func init() {
	for _, field := range []string{"traits", "values", "goals", "challenges", "interests"} {
		arrayFieldRe[field] = regexp.MustCompile(`"` + field + `"\s*:\s*\[([^\]]*)\]`)
	}
	for _, field := range []string{"communicationStyle", "decisionMaking", "primaryMotivation", "learningStyle"} {
		stringFieldRe[field] = regexp.MustCompile(`"` + field + `"\s*:\s*"([^"]*)"`)
	}
}

// regexExtract recovers fields one by one from arbitrary text. Missing fields
// yield empty values, never an error.
func regexExtract(raw string) extractionPayload {
	var p extractionPayload
	p.Traits = matchArray(raw, "traits")
	p.Values = matchArray(raw, "values")
	p.Goals = matchArray(raw, "goals")
	p.Challenges = matchArray(raw, "challenges")
	p.Interests = matchArray(raw, "interests")
	p.CommunicationStyle = matchString(raw, "communicationStyle")
	p.DecisionMaking = matchString(raw, "decisionMaking")
	p.PrimaryMotivation = matchString(raw, "primaryMotivation")
	p.LearningStyle = matchString(raw, "learningStyle")
	return p
}

func matchArray(raw, field string) []string {
	m := arrayFieldRe[field].FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	var items []string
	for _, part := range strings.Split(m[1], ",") {
		item := strings.Trim(strings.TrimSpace(part), `"'`)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

func matchString(raw, field string) string {
	m := stringFieldRe[field].FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
