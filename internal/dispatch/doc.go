// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package dispatch is the single entry point for backend actions.
//
// A Dispatcher validates the per-action input, resolves the credential and
// endpoint at call time and hands the request to the configured transport.
// Every outcome, including local validation and configuration failures, is
// returned as a *transport.Result so callers handle one shape.
//
// Usage:
//
//	d := dispatch.New(resolver, tr, dispatch.WithLogger(log))
//	stores, err := d.ListStores(ctx)
package dispatch
