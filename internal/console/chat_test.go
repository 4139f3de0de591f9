// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSend_WhitespaceIsNoop(t *testing.T) {
	backend := newFakeBackend()
	chat := NewChatSession(backend, storeID)

	for _, msg := range []string{"", "   ", "\n\t "} {
		assert.ErrorIs(t, chat.Send(context.Background(), msg), ErrEmptyMessage)
	}
	assert.Empty(t, chat.Turns())
	assert.Equal(t, 0, backend.count("chat"))
}

func TestChatSend_Success(t *testing.T) {
	backend := newFakeBackend()
	backend.answer = "The report covers **Q3**."
	chat := NewChatSession(backend, storeID)
	chat.SetDraft("  what is in the report?  ")

	require.NoError(t, chat.Submit(context.Background()))

	turns := chat.Turns()
	require.Len(t, turns, 2)
	assert.True(t, turns[0].IsUser)
	assert.Equal(t, "what is in the report?", turns[0].Text)
	assert.False(t, turns[1].IsUser)
	assert.Equal(t, "The report covers **Q3**.", turns[1].Text)
	assert.False(t, turns[1].Failed)
	assert.Empty(t, chat.Draft())
	assert.False(t, turns[0].Time().IsZero())
}

func TestChatSend_EmptyAnswerPlaceholder(t *testing.T) {
	backend := newFakeBackend()
	chat := NewChatSession(backend, storeID)

	require.NoError(t, chat.Send(context.Background(), "hello"))
	turns := chat.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, NoAnswerText, turns[1].Text)
}

func TestChatSend_NetworkErrorAppendsOneErrorTurn(t *testing.T) {
	backend := newFakeBackend()
	backend.chatErr = networkError()
	notes := &recorder{}
	chat := NewChatSession(backend, storeID, WithChatNotifier(notes))

	require.Error(t, chat.Send(context.Background(), "hello"))

	turns := chat.Turns()
	require.Len(t, turns, 2)
	assert.True(t, turns[0].IsUser)
	assert.Equal(t, FailedAnswerText, turns[1].Text)
	assert.True(t, turns[1].Failed)

	all := notes.all()
	require.Len(t, all, 1)
	assert.Equal(t, SeverityError, all[0].severity)
	assert.Contains(t, all[0].message, "CORS")
	assert.False(t, chat.Busy())
}

func TestChatSend_SecondSendWhilePendingIsNoop(t *testing.T) {
	backend := newFakeBackend()
	backend.chatGate = make(chan struct{})
	backend.answer = "ok"
	chat := NewChatSession(backend, storeID)

	done := make(chan error, 1)
	go func() { done <- chat.Send(context.Background(), "first") }()
	waitStarted(backend)

	assert.True(t, chat.Busy())
	assert.ErrorIs(t, chat.Send(context.Background(), "second"), ErrInFlight)
	assert.Len(t, chat.Turns(), 1)

	close(backend.chatGate)
	require.NoError(t, <-done)

	turns := chat.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, "first", turns[0].Text)
	assert.Equal(t, "ok", turns[1].Text)
	assert.Equal(t, 1, backend.count("chat"))
}

func TestChatSend_UserTurnBeforeDispatch(t *testing.T) {
	backend := newFakeBackend()
	backend.chatGate = make(chan struct{})
	chat := NewChatSession(backend, storeID)

	done := make(chan error, 1)
	go func() { done <- chat.Send(context.Background(), "hi") }()
	waitStarted(backend)

	turns := chat.Turns()
	require.Len(t, turns, 1)
	assert.Equal(t, "hi", turns[0].Text)

	close(backend.chatGate)
	<-done
}

func TestChatReset(t *testing.T) {
	backend := newFakeBackend()
	backend.answer = "a"
	chat := NewChatSession(backend, storeID)
	require.NoError(t, chat.Send(context.Background(), "q"))
	chat.SetDraft("draft")

	changes := 0
	chat.OnChange(func() { changes++ })
	chat.Reset()

	assert.Empty(t, chat.Turns())
	assert.Empty(t, chat.Draft())
	assert.Equal(t, 1, changes)
}

func TestKeyIntent(t *testing.T) {
	tests := map[string]Intent{
		"enter":       IntentSubmit,
		"shift+enter": IntentNewline,
		"alt+enter":   IntentNewline,
		"ctrl+j":      IntentNewline,
		"a":           IntentNone,
		"ctrl+c":      IntentNone,
	}
	for key, want := range tests {
		assert.Equal(t, want, KeyIntent(key), key)
	}
}

func TestSeverityAndPhaseNames(t *testing.T) {
	assert.Equal(t, "error", SeverityError.String())
	assert.Equal(t, "info", SeverityInfo.String())
	assert.Equal(t, "loading", PhaseLoading.String())
	assert.Equal(t, "idle", PhaseIdle.String())
}
