package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/spinnernet/backend/internal/domain/persona"
)

// memoryStore is a process-local ConversationStore used when no Redis is
// configured (development) and by tests. Documents round-trip through JSON so
// callers cannot mutate stored state through shared pointers.
type memoryStore struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]map[uuid.UUID][]byte // userID -> conversationID -> doc
	ord  map[uuid.UUID][]uuid.UUID          // insertion order per partition
}

func NewMemoryConversationStore() ConversationStore {
	return &memoryStore{
		byID: make(map[uuid.UUID]map[uuid.UUID][]byte),
		ord:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (s *memoryStore) Get(ctx context.Context, id, userID uuid.UUID) (*persona.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.byID[userID][id]
	if !ok {
		return nil, nil
	}
	var conv persona.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *memoryStore) Upsert(ctx context.Context, conv *persona.Conversation) (*persona.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, fmt.Errorf("conversation required")
	}
	if conv.ID == uuid.Nil || conv.UserID == uuid.Nil {
		return nil, fmt.Errorf("conversation id and user id required")
	}
	raw, err := json.Marshal(conv)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	part, ok := s.byID[conv.UserID]
	if !ok {
		part = make(map[uuid.UUID][]byte)
		s.byID[conv.UserID] = part
	}
	if _, exists := part[conv.ID]; !exists {
		s.ord[conv.UserID] = append(s.ord[conv.UserID], conv.ID)
	}
	part[conv.ID] = raw
	return conv, nil
}

func (s *memoryStore) Query(ctx context.Context, userID uuid.UUID, match func(*persona.Conversation) bool) ([]*persona.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	ids := append([]uuid.UUID(nil), s.ord[userID]...)
	s.mu.RUnlock()

	var out []*persona.Conversation
	for _, id := range ids {
		conv, err := s.Get(ctx, id, userID)
		if err != nil {
			return nil, err
		}
		if conv == nil {
			continue
		}
		if match == nil || match(conv) {
			out = append(out, conv)
		}
	}
	return out, nil
}
