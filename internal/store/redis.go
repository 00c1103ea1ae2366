package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/spinnernet/backend/internal/domain/persona"
	"github.com/spinnernet/backend/internal/platform/envutil"
	"github.com/spinnernet/backend/internal/platform/logger"
)

// redisStore keeps each conversation as a JSON document under
// conversation:{userID}:{id} and maintains a per-user id index set so
// partition queries do not scan the keyspace.
type redisStore struct {
	log *logger.Logger
	rdb *goredis.Client
}

func NewRedisConversationStore(log *logger.Logger) (ConversationStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := envutil.Str("REDIS_ADDR", "")
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisStore{
		log: log.With("service", "RedisConversationStore"),
		rdb: rdb,
	}, nil
}

func docKey(userID, id uuid.UUID) string {
	return fmt.Sprintf("conversation:%s:%s", userID, id)
}

func indexKey(userID uuid.UUID) string {
	return fmt.Sprintf("conversation_index:%s", userID)
}

func (s *redisStore) Get(ctx context.Context, id, userID uuid.UUID) (*persona.Conversation, error) {
	raw, err := s.rdb.Get(ctx, docKey(userID, id)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var conv persona.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

func (s *redisStore) Upsert(ctx context.Context, conv *persona.Conversation) (*persona.Conversation, error) {
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

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, docKey(conv.UserID, conv.ID), raw, 0)
	pipe.SAdd(ctx, indexKey(conv.UserID), conv.ID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis upsert: %w", err)
	}
	return conv, nil
}

func (s *redisStore) Query(ctx context.Context, userID uuid.UUID, match func(*persona.Conversation) bool) ([]*persona.Conversation, error) {
	ids, err := s.rdb.SMembers(ctx, indexKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis index read: %w", err)
	}
	// Stable iteration keeps "first match wins" deterministic.
	sort.Strings(ids)

	var out []*persona.Conversation
	for _, rawID := range ids {
		id, parseErr := uuid.Parse(rawID)
		if parseErr != nil {
			s.log.Warn("Skipping malformed conversation index entry", "entry", rawID)
			continue
		}
		conv, getErr := s.Get(ctx, id, userID)
		if getErr != nil {
			return nil, getErr
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
