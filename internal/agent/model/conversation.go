package model

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationState is the coarse phase of a dialog.
type ConversationState string

const (
	StateGreeting    ConversationState = "greeting"
	StateResearching ConversationState = "researching"
	StateDiscussing  ConversationState = "discussing"
)

// Message is one entry of the append-only dialog history.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata"`
}

// SessionMetadata tracks session timing.
type SessionMetadata struct {
	SessionStart time.Time `json:"session_start"`
	LastActivity time.Time `json:"last_activity"`
}

// DialogContext is the per-session mutable state of a conversation.
// It has a single writer: the coordinator handling the current turn.
type DialogContext struct {
	SessionID         string            `json:"session_id"`
	History           []Message         `json:"history"`
	CurrentTopic      string            `json:"current_topic,omitempty"`
	CurrentResearchID string            `json:"current_research_id,omitempty"`
	UserPreferences   map[string]any    `json:"user_preferences"`
	LastIntent        *Intent           `json:"last_intent,omitempty"`
	State             ConversationState `json:"conversation_state"`
	Metadata          SessionMetadata   `json:"metadata"`
}

// NewDialogContext creates a fresh context. An empty sessionID gets a new uuid.
func NewDialogContext(sessionID string) *DialogContext {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	now := time.Now().UTC()
	return &DialogContext{
		SessionID:       sessionID,
		History:         []Message{},
		UserPreferences: map[string]any{},
		State:           StateGreeting,
		Metadata:        SessionMetadata{SessionStart: now, LastActivity: now},
	}
}

// AddMessage appends a message to the history and bumps last activity.
func (c *DialogContext) AddMessage(role Role, content string, metadata map[string]any) Message {
	if metadata == nil {
		metadata = map[string]any{}
	}
	now := time.Now().UTC()
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: now,
		Metadata:  metadata,
	}
	c.History = append(c.History, msg)
	c.Metadata.LastActivity = now
	return msg
}

// LastMessages returns a copy of up to n trailing messages.
func (c *DialogContext) LastMessages(n int) []Message {
	if n <= 0 || len(c.History) == 0 {
		return []Message{}
	}
	start := len(c.History) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(c.History)-start)
	copy(out, c.History[start:])
	return out
}

// FormattedHistory renders the last n messages as "User: ..." / "Assistant: ..." blocks.
func (c *DialogContext) FormattedHistory(n int) string {
	msgs := c.LastMessages(n)
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		prefix := "Assistant"
		if m.Role == RoleUser {
			prefix = "User"
		}
		parts = append(parts, prefix+": "+m.Content)
	}
	return strings.Join(parts, "\n\n")
}

// LastAssistantMessage returns the most recent assistant message content.
func (c *DialogContext) LastAssistantMessage() (string, bool) {
	for i := len(c.History) - 1; i >= 0; i-- {
		if c.History[i].Role == RoleAssistant {
			return c.History[i].Content, true
		}
	}
	return "", false
}

// Reset replaces every field with defaults while preserving the session id.
// The whole struct is swapped in one assignment.
func (c *DialogContext) Reset() {
	*c = *NewDialogContext(c.SessionID)
}

// SessionRepository persists dialog contexts between turns.
type SessionRepository interface {
	// Load returns the stored context, or errx.ErrNotFound when the session is unknown.
	Load(ctx context.Context, sessionID string) (*DialogContext, error)

	// Save stores the context, replacing any previous version.
	Save(ctx context.Context, dctx *DialogContext) error

	// Delete removes the stored context.
	Delete(ctx context.Context, sessionID string) error
}
