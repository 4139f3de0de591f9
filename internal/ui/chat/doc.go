// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat screen of the TUI.
//
// The screen wraps a console.ChatSession: a scrollable transcript rendered
// with glamour above a multi-line composer. Enter sends; Alt+Enter or
// Ctrl+J inserts a newline. Esc returns to the store detail screen by
// emitting BackMsg.
//
// Usage:
//
//	session := console.NewChatSession(d, storeID, console.WithChatNotifier(toasts))
//	screen := chat.New(ctx, session, theme, md, "research")
package chat
