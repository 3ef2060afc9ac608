package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
	logx "github.com/chative/market-research/pkg/logger"
)

var keyReplacer = strings.NewReplacer(" ", "_", "/", "_", "\\", "_")

// SanitizeKey maps a cache key onto a safe, lower-case storage name.
func SanitizeKey(key string) (string, error) {
	k := strings.ToLower(keyReplacer.Replace(strings.TrimSpace(key)))
	if k == "" || strings.Trim(k, ".") == "" {
		return "", errx.Validation(fmt.Sprintf("invalid cache key %q", key))
	}
	return k, nil
}

// ===================================
// In-memory cache
// ===================================

// MemoryCache keeps artifacts for the life of the process.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: map[string]string{}}
}

func (c *MemoryCache) Put(_ context.Context, key, value string) error {
	k, err := SanitizeKey(key)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[k] = value
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, error) {
	k, err := SanitizeKey(key)
	if err != nil {
		return "", err
	}
	c.mu.RLock()
	v, ok := c.items[k]
	c.mu.RUnlock()
	if !ok {
		return "", errx.CacheMiss(k)
	}
	return v, nil
}

// ===================================
// File cache
// ===================================

// FileCache stores each artifact as <dir>/<sanitized key>.txt.
type FileCache struct {
	dir string
}

// NewFileCache creates dir when missing.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errx.Storage(fmt.Errorf("creating cache directory: %w", err))
	}
	return &FileCache{dir: dir}, nil
}

func (c *FileCache) path(key string) (string, error) {
	k, err := SanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.dir, k+".txt"), nil
}

// Put writes through a temp file and rename so readers never see partial content.
func (c *FileCache) Put(_ context.Context, key, value string) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.dir, ".cache-*")
	if err != nil {
		return errx.Storage(err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errx.Storage(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errx.Storage(err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return errx.Storage(err)
	}
	return nil
}

func (c *FileCache) Get(_ context.Context, key string) (string, error) {
	p, err := c.path(key)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errx.CacheMiss(filepath.Base(p))
		}
		return "", errx.Storage(err)
	}
	return string(b), nil
}

// ===================================
// Redis cache
// ===================================

// RedisCache stores artifacts as plain string keys with an optional TTL.
type RedisCache struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisCache(rdb redis.Cmdable, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) cacheKey(key string) (string, error) {
	k, err := SanitizeKey(key)
	if err != nil {
		return "", err
	}
	if c.prefix == "" {
		return "cache:" + k, nil
	}
	return c.prefix + ":cache:" + k, nil
}

func (c *RedisCache) Put(ctx context.Context, key, value string) error {
	k, err := c.cacheKey(key)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, k, value, c.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", k).Msg("failed to write cache entry to redis")
		return errx.WrapRedis(err, k)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	k, err := c.cacheKey(key)
	if err != nil {
		return "", err
	}
	v, err := c.rdb.Get(ctx, k).Result()
	if err != nil {
		return "", errx.WrapRedis(err, k)
	}
	return v, nil
}

var (
	_ model.CacheStore = (*MemoryCache)(nil)
	_ model.CacheStore = (*FileCache)(nil)
	_ model.CacheStore = (*RedisCache)(nil)
)
