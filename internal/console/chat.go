// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jeranaias/storedesk/internal/model"
)

const (
	// NoAnswerText replaces an empty answer.
	NoAnswerText = "No response received"

	// FailedAnswerText is the assistant turn appended when a request fails.
	FailedAnswerText = "Sorry, I encountered an error. Please try again."
)

// ChatSession owns the transcript of one store.
type ChatSession struct {
	svc     ChatService
	storeID string

	mu    sync.Mutex
	turns []model.Turn
	draft string

	sending atomic.Bool

	notifier Notifier
	logger   *zap.Logger
	onChange func()
}

// ChatOption configures a ChatSession.
type ChatOption func(*ChatSession)

// WithChatNotifier sets the notification sink.
func WithChatNotifier(n Notifier) ChatOption {
	return func(c *ChatSession) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithChatLogger sets the logger.
func WithChatLogger(logger *zap.Logger) ChatOption {
	return func(c *ChatSession) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChatSession creates an empty session for storeID.
func NewChatSession(svc ChatService, storeID string, opts ...ChatOption) *ChatSession {
	c := &ChatSession{
		svc:      svc,
		storeID:  storeID,
		notifier: discardNotifier{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnChange registers fn to run after every state change.
func (c *ChatSession) OnChange(fn func()) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

func (c *ChatSession) changed() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// StoreID returns the store the session is grounded on.
func (c *ChatSession) StoreID() string {
	return c.storeID
}

// Turns returns a copy of the transcript.
func (c *ChatSession) Turns() []model.Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Busy reports whether a reply is pending.
func (c *ChatSession) Busy() bool {
	return c.sending.Load()
}

// Draft returns the composer text.
func (c *ChatSession) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// SetDraft replaces the composer text.
func (c *ChatSession) SetDraft(text string) {
	c.mu.Lock()
	c.draft = text
	c.mu.Unlock()
}

// Submit sends the current draft.
func (c *ChatSession) Submit(ctx context.Context) error {
	return c.Send(ctx, c.Draft())
}

// Send appends the user turn, then asks the backend and appends the reply.
// Blank messages return ErrEmptyMessage and calls made while a reply is
// pending return ErrInFlight; neither touches the transcript.
func (c *ChatSession) Send(ctx context.Context, message string) error {
	text := strings.TrimSpace(message)
	if text == "" {
		return ErrEmptyMessage
	}
	if !c.sending.CompareAndSwap(false, true) {
		return ErrInFlight
	}

	c.mu.Lock()
	c.turns = append(c.turns, model.NewUserTurn(text))
	c.draft = ""
	c.mu.Unlock()
	c.changed()

	answer, err := c.svc.Chat(ctx, c.storeID, text)

	var reply model.Turn
	switch {
	case err != nil:
		c.logger.Warn("chat failed", zap.String("store", c.storeID), zap.Error(err))
		reply = model.NewErrorTurn(FailedAnswerText)
	case strings.TrimSpace(answer) == "":
		reply = model.NewAssistantTurn(NoAnswerText)
	default:
		reply = model.NewAssistantTurn(answer)
	}

	c.mu.Lock()
	c.turns = append(c.turns, reply)
	c.mu.Unlock()
	c.sending.Store(false)

	if err != nil {
		c.notifier.Notify(errorMessage(err), SeverityError)
	}
	c.changed()
	return err
}

// Reset discards the transcript and the draft.
func (c *ChatSession) Reset() {
	c.mu.Lock()
	c.turns = nil
	c.draft = ""
	c.mu.Unlock()
	c.changed()
}

// =============================================================================
// COMPOSER KEYS
// =============================================================================

// Intent is what a composer key press means.
type Intent int

const (
	// IntentNone leaves the key to the text editor.
	IntentNone Intent = iota
	// IntentSubmit commits the draft.
	IntentSubmit
	// IntentNewline inserts a line break.
	IntentNewline
)

// KeyIntent maps a key name as reported by the terminal library to an
// intent. Plain enter submits; enter with a modifier inserts a newline.
func KeyIntent(key string) Intent {
	switch key {
	case "enter":
		return IntentSubmit
	case "shift+enter", "alt+enter", "ctrl+j":
		return IntentNewline
	}
	return IntentNone
}
