// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// Turn is one entry in a chat transcript.
type Turn struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsUser    bool   `json:"isUser"`
	Timestamp string `json:"timestamp"`
	// Failed marks a synthesized reply standing in for a failed request.
	Failed bool `json:"failed,omitempty"`
}

// NewUserTurn creates a turn authored by the user.
func NewUserTurn(text string) Turn {
	return newTurn(text, true)
}

// NewAssistantTurn creates a turn authored by the model.
func NewAssistantTurn(text string) Turn {
	return newTurn(text, false)
}

// NewErrorTurn creates an assistant turn reporting a failed request.
func NewErrorTurn(text string) Turn {
	t := newTurn(text, false)
	t.Failed = true
	return t
}

func newTurn(text string, isUser bool) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Text:      text,
		IsUser:    isUser,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Speaker returns the label shown next to the turn.
func (t Turn) Speaker() string {
	if t.IsUser {
		return "You"
	}
	return "Assistant"
}

// Time parses Timestamp. The zero time is returned for malformed values.
func (t Turn) Time() time.Time {
	ts, err := time.Parse(time.RFC3339Nano, t.Timestamp)
	if err != nil {
		return time.Time{}
	}
	return ts
}
