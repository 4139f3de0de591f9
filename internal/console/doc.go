// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package console holds the view-state controllers behind the store list,
// the store detail screen and the chat screen.
//
// Controllers own their collections, talk to the backend through narrow
// service interfaces and report every state change through an OnChange
// callback so a presentation layer can re-render. They are safe for
// concurrent use.
package console
