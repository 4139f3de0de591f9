// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the line-mode storedesk commands.
//
// Every command shares the same plumbing:
//   - Parse turns os.Args into a Command and Args
//   - Env carries the resolver, dispatcher and output streams
//   - Run routes to a handler, which returns an error for main to print
//
// Commands that destroy data ask for confirmation unless --confirm is given.
// With --json, output is the JSONResponse envelope and prompts are refused.
package cli
