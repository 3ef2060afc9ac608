package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to AppError. A missing key becomes a cache miss
// for the given key so callers can fall back to in-memory values.
func WrapRedis(err error, key string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		e := CacheMiss(key)
		e.Message = RedisNotFoundMessage
		return e
	}

	return newKind(KindStorage, fmt.Errorf("key %q: %w", key, err), http.StatusBadGateway, RedisErrorMessage)
}
