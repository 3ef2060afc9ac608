package conversations

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chative/market-research/internal/agent/model"
	errx "github.com/chative/market-research/internal/core/error"
	logx "github.com/chative/market-research/pkg/logger"
)

// SessionManager loads and stores dialog contexts and serializes turns of the
// same session so each context has a single writer.
type SessionManager struct {
	repo  model.SessionRepository
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessionManager(repo model.SessionRepository) *SessionManager {
	return &SessionManager{repo: repo, locks: map[string]*sessionLock{}}
}

// Load returns the stored context, or a fresh one when the session is unknown.
func (m *SessionManager) Load(ctx context.Context, sessionID string) (*model.DialogContext, error) {
	if sessionID == "" {
		return model.NewDialogContext(""), nil
	}
	dctx, err := m.repo.Load(ctx, sessionID)
	if errors.Is(err, errx.ErrNotFound) {
		logx.Debug().Str("session_id", sessionID).Msg("Starting new session")
		return model.NewDialogContext(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	return dctx, nil
}

func (m *SessionManager) Save(ctx context.Context, dctx *model.DialogContext) error {
	if err := m.repo.Save(ctx, dctx); err != nil {
		return fmt.Errorf("save session %s: %w", dctx.SessionID, err)
	}
	return nil
}

func (m *SessionManager) Delete(ctx context.Context, sessionID string) error {
	return m.repo.Delete(ctx, sessionID)
}

// WithSession runs fn on the session's context while holding the session
// lock, then saves the context. Nothing is saved when fn fails.
func (m *SessionManager) WithSession(ctx context.Context, sessionID string, fn func(*model.DialogContext) error) (*model.DialogContext, error) {
	if sessionID != "" {
		unlock := m.lock(sessionID)
		defer unlock()
	}

	dctx, err := m.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(dctx); err != nil {
		return dctx, err
	}
	if err := m.Save(ctx, dctx); err != nil {
		return dctx, err
	}
	return dctx, nil
}

func (m *SessionManager) lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}
