package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aroundyou/commerce-agent/internal/agent/model"
	errx "github.com/aroundyou/commerce-agent/internal/core/error"
	logx "github.com/aroundyou/commerce-agent/pkg/logger"
)

// RedisSessionStore persists conversation snapshots as single JSON blobs
// with a sliding TTL. The snapshot is opaque to the store; round-tripping it
// must be loss-free.
type RedisSessionStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisSessionStore(rdb redis.Cmdable, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s:state", sessionID)
}

func (r *RedisSessionStore) SaveState(ctx context.Context, sessionID string, state *model.ConversationState) error {
	b, err := json.Marshal(state)
	if err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to marshal session snapshot")
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := r.sessionKey(sessionID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to write session snapshot to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionStore) LoadState(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	key := r.sessionKey(sessionID)
	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if err != redis.Nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to load session snapshot from redis")
		}
		return nil, errx.WrapRedis(err)
	}
	var state model.ConversationState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to unmarshal session snapshot")
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &state, nil
}

func (r *RedisSessionStore) DeleteState(ctx context.Context, sessionID string) error {
	key := r.sessionKey(sessionID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session snapshot from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.SessionStore = (*RedisSessionStore)(nil)
