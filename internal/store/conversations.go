package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/spinnernet/backend/internal/domain/persona"
)

// ConversationStore persists conversation documents keyed by id within a
// per-user partition. Get returns nil (no error) when the document does not
// exist. Query evaluates the predicate over every document in the partition,
// in no guaranteed order.
type ConversationStore interface {
	Get(ctx context.Context, id, userID uuid.UUID) (*persona.Conversation, error)
	Upsert(ctx context.Context, conv *persona.Conversation) (*persona.Conversation, error)
	Query(ctx context.Context, userID uuid.UUID, match func(*persona.Conversation) bool) ([]*persona.Conversation, error)
}

// FindActive returns the user's active conversation for a purpose, or nil if
// none exists. First match wins; the engine maintains at most one active
// discovery conversation per user (serialized access assumed, see the
// orchestrator).
func FindActive(ctx context.Context, s ConversationStore, userID uuid.UUID, purpose string) (*persona.Conversation, error) {
	matches, err := s.Query(ctx, userID, func(c *persona.Conversation) bool {
		return c.Active && c.Purpose == purpose
	})
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}
