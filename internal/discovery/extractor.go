package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	types "github.com/spinnernet/backend/internal/domain"
	"github.com/spinnernet/backend/internal/domain/persona"
	"github.com/spinnernet/backend/internal/observability"
	"github.com/spinnernet/backend/internal/platform/logger"
	"github.com/spinnernet/backend/internal/platform/openai"
	"github.com/spinnernet/backend/internal/repos"
)

// Confidence assigned when the model output parsed (strictly or recovered),
// and when the hard default had to be substituted.
const (
	parsedConfidence  = 0.85
	defaultConfidence = 0.5
)

const extractionPrompt = `Analyze the conversation transcript below and extract a persona profile.
Return ONLY a JSON object with exactly these keys:
{
  "traits": ["..."],
  "values": ["..."],
  "communicationStyle": "...",
  "decisionMaking": "...",
  "goals": ["..."],
  "challenges": ["..."],
  "interests": ["..."],
  "primaryMotivation": "...",
  "learningStyle": "..."
}
Array values are short lowercase phrases. Do not add any text outside the JSON object.`

// ExtractionOutcome bundles what the extractor produced: the persisted
// profile, the result to embed in the conversation document, and which parse
// tier fired.
type ExtractionOutcome struct {
	Profile *types.PersonaProfile
	Result  *persona.ExtractionResult
	Parse   ParseOutcome
}

// Extractor runs the one-time analytical pass that turns a finished discovery
// conversation into a persona profile. It never returns a nil profile: when
// the model output yields nothing, or the model call itself fails, the
// hard-coded default profile is used instead.
type Extractor interface {
	Extract(ctx context.Context, conv *persona.Conversation) (*ExtractionOutcome, error)
}

type extractor struct {
	log         *logger.Logger
	ai          openai.Client
	profiles    repos.PersonaProfileRepo
	temperature float64
	maxTokens   int
}

type ExtractorConfig struct {
	Temperature float64 // default 0.3: analytical, near-deterministic
	MaxTokens   int     // default 1000
}

func NewExtractor(log *logger.Logger, ai openai.Client, profiles repos.PersonaProfileRepo, cfg ExtractorConfig) Extractor {
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1000
	}
	return &extractor{
		log:         log.With("service", "PersonaExtractor"),
		ai:          ai,
		profiles:    profiles,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (e *extractor) Extract(ctx context.Context, conv *persona.Conversation) (*ExtractionOutcome, error) {
	if conv == nil {
		return nil, fmt.Errorf("conversation required")
	}

	payload := extractionPayload{}
	outcome := ParseDefault

	raw, err := e.ai.Complete(ctx, []openai.ChatMessage{
		{Role: "system", Content: extractionPrompt},
		{Role: "user", Content: Transcript(conv.Messages)},
	}, openai.CompletionOptions{Temperature: e.temperature, MaxTokens: e.maxTokens})
	if err != nil {
		// Degrade to the default profile rather than failing the flow.
		e.log.Warn("Extraction model call failed; using default profile",
			"conversation_id", conv.ID, "error", err)
	} else {
		payload, outcome = ParseExtraction(raw)
	}

	if outcome == ParseDefault {
		payload = defaultPayload()
	}

	result := buildResult(payload, outcome)
	profile := buildProfile(conv, payload, result, outcome)

	if _, err := e.profiles.Create(ctx, nil, profile); err != nil {
		return nil, fmt.Errorf("persist persona profile: %w", err)
	}

	observability.Current().IncExtraction(string(outcome))
	e.log.Info("Persona profile extracted",
		"conversation_id", conv.ID,
		"profile_id", profile.ID,
		"parse", string(outcome),
	)
	return &ExtractionOutcome{Profile: profile, Result: result, Parse: outcome}, nil
}

// Transcript renders messages as alternating "User: ..." / "Assistant: ..."
// lines for the extraction prompt.
func Transcript(messages []persona.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Sender {
		case persona.SenderAssistant:
			b.WriteString("Assistant: ")
		default:
			b.WriteString("User: ")
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func defaultPayload() extractionPayload {
	return extractionPayload{
		Traits:             []string{"curious", "open-minded"},
		Values:             []string{"growth", "learning"},
		Goals:              []string{"self-discovery"},
		Challenges:         []string{},
		Interests:          []string{"exploration"},
		CommunicationStyle: "balanced",
		DecisionMaking:     "thoughtful",
		PrimaryMotivation:  "personal growth",
		LearningStyle:      "exploratory",
	}
}

func buildResult(p extractionPayload, outcome ParseOutcome) *persona.ExtractionResult {
	confidence := parsedConfidence
	if outcome == ParseDefault {
		confidence = defaultConfidence
	}
	return &persona.ExtractionResult{
		Traits:             emptyIfNil(p.Traits),
		Values:             emptyIfNil(p.Values),
		Goals:              emptyIfNil(p.Goals),
		Challenges:         emptyIfNil(p.Challenges),
		Interests:          emptyIfNil(p.Interests),
		CommunicationStyle: p.CommunicationStyle,
		DecisionMaking:     p.DecisionMaking,
		PrimaryMotivation:  p.PrimaryMotivation,
		LearningStyle:      p.LearningStyle,
		Confidence:         confidence,
		ExtractedAt:        time.Now().UTC(),
	}
}

func buildProfile(conv *persona.Conversation, p extractionPayload, result *persona.ExtractionResult, outcome ParseOutcome) *types.PersonaProfile {
	return &types.PersonaProfile{
		ID:                   uuid.New(),
		UserID:               conv.UserID,
		PersonaID:            uuid.New(),
		DisplayName:          DisplayName(p.Traits, p.Values),
		Traits:               persona.JSONList(p.Traits),
		Values:               persona.JSONList(p.Values),
		Goals:                persona.JSONList(p.Goals),
		Challenges:           persona.JSONList(p.Challenges),
		Interests:            persona.JSONList(p.Interests),
		CommunicationStyle:   p.CommunicationStyle,
		DecisionMaking:       p.DecisionMaking,
		PrimaryMotivation:    p.PrimaryMotivation,
		LearningStyle:        p.LearningStyle,
		Confidence:           result.Confidence,
		IsDefault:            outcome == ParseDefault,
		SourceConversationID: conv.ID,
		CreatedAt:            time.Now().UTC(),
	}
}

// DisplayName derives the profile's name from the leading trait and value,
// e.g. "The bold trust-Seeker".
func DisplayName(traits, values []string) string {
	trait := "Balanced"
	if len(traits) > 0 && strings.TrimSpace(traits[0]) != "" {
		trait = strings.TrimSpace(traits[0])
	}
	value := "Growth"
	if len(values) > 0 && strings.TrimSpace(values[0]) != "" {
		value = strings.TrimSpace(values[0])
	}
	return fmt.Sprintf("The %s %s-Seeker", trait, value)
}

func emptyIfNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
