package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigNewConnects(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := Config{URL: "redis://" + mr.Addr() + "/0", ReadTimeout: 1, WriteTimeout: 1, DialTimeout: 1}

	client, err := cfg.New()
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConfigNewRejectsBadURL(t *testing.T) {
	cfg := Config{URL: "not-a-url"}
	_, err := cfg.New()
	assert.Error(t, err)
}
