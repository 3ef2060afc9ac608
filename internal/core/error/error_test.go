package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOfWrappedChain(t *testing.T) {
	base := errors.New("provider down")
	err := fmt.Errorf("stage analyze: %w", Generation(base))

	assert.Equal(t, KindGeneration, KindOf(err))
	assert.True(t, IsKind(err, KindGeneration))
	assert.True(t, errors.Is(err, base))

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.Equal(t, GenerationErrorMessage+": provider down", appErr.Error())
}

func TestCacheMissMatchesSentinel(t *testing.T) {
	err := CacheMiss("run_raw")
	assert.True(t, errors.Is(err, ErrCacheMiss))
	assert.Equal(t, KindCacheMiss, KindOf(err))
	assert.Contains(t, err.Error(), "run_raw")
}

func TestKindOfPlainError(t *testing.T) {
	assert.Equal(t, KindSystem, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindSystem))
}

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil, "k"))

	miss := WrapRedis(redis.Nil, "research:cache:k")
	assert.True(t, errors.Is(miss, ErrCacheMiss))
	assert.Equal(t, KindCacheMiss, KindOf(miss))

	other := WrapRedis(errors.New("connection refused"), "k")
	assert.Equal(t, KindStorage, KindOf(other))
	assert.False(t, errors.Is(other, ErrCacheMiss))
}

func TestValidationMessage(t *testing.T) {
	err := Validation("query is required")
	assert.Equal(t, KindValidation, err.Kind)
	assert.Equal(t, "invalid input: query is required", err.Error())
}
