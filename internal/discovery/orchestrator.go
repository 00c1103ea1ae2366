package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spinnernet/backend/internal/domain/persona"
	"github.com/spinnernet/backend/internal/observability"
	"github.com/spinnernet/backend/internal/platform/logger"
	"github.com/spinnernet/backend/internal/platform/openai"
	"github.com/spinnernet/backend/internal/store"
)

// TurnResult is the per-turn response envelope.
type TurnResult struct {
	Reply          string    `json:"reply"`
	Progress       float64   `json:"progress"`
	ConversationID uuid.UUID `json:"conversation_id"`
}

// Service is the single entry point for a discovery turn.
type Service interface {
	// ProcessMessage runs one full turn: load-or-create the conversation,
	// append the user message, generate the assistant reply, rescore
	// progress, trigger extraction past the threshold, and persist.
	ProcessMessage(ctx context.Context, userID uuid.UUID, text string) (*TurnResult, error)

	// ActiveConversation returns the user's active discovery conversation,
	// or nil when none exists yet.
	ActiveConversation(ctx context.Context, userID uuid.UUID) (*persona.Conversation, error)
}

type Config struct {
	Temperature float64 // conversational generation, default 0.7
	MaxTokens   int     // default 500

	ExtractMinMessages int     // default 10
	ExtractMinProgress float64 // default 80
}

func (c Config) withDefaults() Config {
	if c.Temperature <= 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 500
	}
	if c.ExtractMinMessages <= 0 {
		c.ExtractMinMessages = 10
	}
	if c.ExtractMinProgress <= 0 {
		c.ExtractMinProgress = 80
	}
	return c
}

type service struct {
	log           *logger.Logger
	conversations store.ConversationStore
	ai            openai.Client
	extractor     Extractor
	prompts       *PromptSet
	cfg           Config
}

func NewService(
	log *logger.Logger,
	conversations store.ConversationStore,
	ai openai.Client,
	extractor Extractor,
	prompts *PromptSet,
	cfg Config,
) Service {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &service{
		log:           log.With("service", "DiscoveryService"),
		conversations: conversations,
		ai:            ai,
		extractor:     extractor,
		prompts:       prompts,
		cfg:           cfg.withDefaults(),
	}
}

func (s *service) ProcessMessage(ctx context.Context, userID uuid.UUID, text string) (*TurnResult, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message text required")
	}

	conv, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	conv.Append(persona.SenderUser, text, time.Now().UTC())

	stage := ClassifyStage(conv.MessageCount)
	history := s.buildHistory(stage, conv.Messages)

	turnStart := time.Now()
	reply, err := s.ai.Complete(ctx, history, openai.CompletionOptions{
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		observability.Current().ObserveDiscoveryTurn(string(stage), "error", time.Since(turnStart))
		// Keep the user's message; no assistant message is appended.
		if _, upErr := s.conversations.Upsert(ctx, conv); upErr != nil {
			s.log.Error("Persisting user message after failed turn",
				"conversation_id", conv.ID, "error", upErr)
		}
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	conv.Append(persona.SenderAssistant, reply, time.Now().UTC())
	conv.CompletionPct = ScoreProgress(conv.Messages)

	if s.shouldExtract(conv) {
		if outcome, exErr := s.extractor.Extract(ctx, conv); exErr != nil {
			// Extraction failure never fails the turn.
			s.log.Error("Persona extraction failed",
				"conversation_id", conv.ID, "error", exErr)
		} else {
			conv.Extraction = outcome.Result
		}
	}

	if _, err := s.conversations.Upsert(ctx, conv); err != nil {
		return nil, fmt.Errorf("persist conversation: %w", err)
	}

	observability.Current().ObserveDiscoveryTurn(string(stage), "ok", time.Since(turnStart))
	s.log.Debug("Discovery turn complete",
		"conversation_id", conv.ID,
		"stage", string(stage),
		"message_count", conv.MessageCount,
		"progress", conv.CompletionPct,
	)

	return &TurnResult{
		Reply:          reply,
		Progress:       conv.CompletionPct,
		ConversationID: conv.ID,
	}, nil
}

func (s *service) ActiveConversation(ctx context.Context, userID uuid.UUID) (*persona.Conversation, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id required")
	}
	return store.FindActive(ctx, s.conversations, userID, persona.PurposePersonaDiscovery)
}

// loadOrCreate finds the user's active discovery conversation or creates and
// persists a new empty one. Persisting immediately keeps a repeated call from
// creating a duplicate under serialized access. Concurrent first messages for
// the same user can still race here; the store has no uniqueness constraint
// on (user, purpose, active). Callers are expected to serialize a user's
// turns (a single realtime connection does).
func (s *service) loadOrCreate(ctx context.Context, userID uuid.UUID) (*persona.Conversation, error) {
	conv, err := store.FindActive(ctx, s.conversations, userID, persona.PurposePersonaDiscovery)
	if err != nil {
		return nil, fmt.Errorf("find active conversation: %w", err)
	}
	if conv != nil {
		return conv, nil
	}

	conv = persona.NewConversation(userID)
	if _, err := s.conversations.Upsert(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	s.log.Info("Discovery conversation created", "conversation_id", conv.ID)
	return conv, nil
}

// buildHistory places the stage's system prompt first, then every stored
// message in original order mapped to its chat role.
func (s *service) buildHistory(stage Stage, messages []persona.Message) []openai.ChatMessage {
	history := make([]openai.ChatMessage, 0, len(messages)+1)
	history = append(history, openai.ChatMessage{
		Role:    "system",
		Content: s.prompts.SystemPrompt(stage),
	})
	for _, msg := range messages {
		history = append(history, openai.ChatMessage{
			Role:    msg.Sender.Role(),
			Content: msg.Content,
		})
	}
	return history
}

// shouldExtract gates the analytical pass: enough signal accumulated and no
// extraction present yet, so it runs at most once per conversation.
func (s *service) shouldExtract(conv *persona.Conversation) bool {
	return conv.Extraction == nil &&
		conv.MessageCount >= s.cfg.ExtractMinMessages &&
		conv.CompletionPct >= s.cfg.ExtractMinProgress
}
