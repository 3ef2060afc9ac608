package conversations

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chative/market-research/internal/agent/model"
	"github.com/chative/market-research/internal/repo"
)

func TestSessionManagerLoadUnknownSession(t *testing.T) {
	m := NewSessionManager(repo.NewMemorySessionRepository())

	dctx, err := m.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", dctx.SessionID)
	assert.Empty(t, dctx.History)
	assert.Equal(t, model.StateGreeting, dctx.State)

	anon, err := m.Load(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, anon.SessionID)
}

func TestSessionManagerWithSessionPersists(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(repo.NewMemorySessionRepository())

	_, err := m.WithSession(ctx, "s1", func(d *model.DialogContext) error {
		d.AddMessage(model.RoleUser, "hello", nil)
		d.CurrentTopic = "EV market"
		return nil
	})
	require.NoError(t, err)

	got, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.History, 1)
	assert.Equal(t, "EV market", got.CurrentTopic)
}

func TestSessionManagerWithSessionSkipsSaveOnError(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(repo.NewMemorySessionRepository())

	_, err := m.WithSession(ctx, "s1", func(d *model.DialogContext) error {
		d.CurrentTopic = "lost"
		return errors.New("boom")
	})
	require.Error(t, err)

	got, err := m.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got.CurrentTopic)
}

func TestSessionManagerSerializesTurns(t *testing.T) {
	ctx := context.Background()
	m := NewSessionManager(repo.NewMemorySessionRepository())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.WithSession(ctx, "shared", func(d *model.DialogContext) error {
				d.AddMessage(model.RoleUser, fmt.Sprint(i), nil)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := m.Load(ctx, "shared")
	require.NoError(t, err)
	assert.Len(t, got.History, 20)
	assert.Empty(t, m.locks)
}
