package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
	logx "github.com/chative/market-research/pkg/logger"
)

// ===================================
// In-memory sessions
// ===================================

// MemorySessionRepository stores deep copies so callers never share state.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: map[string][]byte{}}
}

func (r *MemorySessionRepository) Load(_ context.Context, sessionID string) (*model.DialogContext, error) {
	r.mu.RLock()
	b, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, errx.ErrNotFound)
	}
	var d model.DialogContext
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, errx.Storage(err)
	}
	return &d, nil
}

func (r *MemorySessionRepository) Save(_ context.Context, dctx *model.DialogContext) error {
	b, err := json.Marshal(dctx)
	if err != nil {
		return errx.Storage(err)
	}
	r.mu.Lock()
	r.sessions[dctx.SessionID] = b
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	return nil
}

// ===================================
// Redis sessions
// ===================================

// RedisSessionRepository stores each dialog context as one JSON value whose
// TTL is extended on every save.
type RedisSessionRepository struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisSessionRepository(rdb redis.Cmdable, prefix string, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (r *RedisSessionRepository) sessionKey(sessionID string) string {
	if r.prefix == "" {
		return fmt.Sprintf("session:%s", sessionID)
	}
	return fmt.Sprintf("%s:session:%s", r.prefix, sessionID)
}

func (r *RedisSessionRepository) Load(ctx context.Context, sessionID string) (*model.DialogContext, error) {
	key := r.sessionKey(sessionID)
	s, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session %s: %w", sessionID, errx.ErrNotFound)
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err, key)
	}
	var d model.DialogContext
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to unmarshal session")
		return nil, errx.Storage(fmt.Errorf("unmarshal session %s: %w", sessionID, err))
	}
	return &d, nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, dctx *model.DialogContext) error {
	b, err := json.Marshal(dctx)
	if err != nil {
		logx.Error().Err(err).Str("session_id", dctx.SessionID).Msg("failed to marshal session")
		return errx.Storage(fmt.Errorf("marshal session: %w", err))
	}
	key := r.sessionKey(dctx.SessionID)
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save session to redis")
		return errx.WrapRedis(err, key)
	}
	return nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	key := r.sessionKey(sessionID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session from redis")
		return errx.WrapRedis(err, key)
	}
	return nil
}

var (
	_ model.SessionRepository = (*MemorySessionRepository)(nil)
	_ model.SessionRepository = (*RedisSessionRepository)(nil)
)
