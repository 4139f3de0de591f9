// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credentials keeps the user's API key and endpoint override and
// resolves them at call time.
//
// # Key Types
//
//   - Cell: minimal key-value storage (Get, Set, Delete)
//   - MemoryCell: process-lifetime cell for ephemeral sessions and tests
//   - SQLiteCell: persisted cell in ~/.storedesk/session.db
//   - SealedCell: wraps another cell with AES-256-GCM encryption
//   - Resolver: reads the cell on every call; never caches
//
// # Usage
//
//	cell, err := credentials.OpenSQLiteCell(path)
//	resolver := credentials.NewResolver(cell, cfg.FallbackEndpoint)
//	creds, err := resolver.Resolve()
//	if errors.Is(err, credentials.ErrNoCredential) {
//	    // show the credential gate
//	}
package credentials
