// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport encodes dispatcher requests for one of several backend
// shapes and normalizes every response into a Result.
//
// # Transports
//
//   - JSON relay: POST <endpoint>/<path> with a JSON envelope
//   - Multipart relay: JSON envelope, or multipart/form-data when a file is attached
//   - Base64 relay: JSON envelope with the file embedded as base64
//   - Direct: provider REST calls (file search stores and generateContent)
//
// # Normalization
//
// Send never returns a Go error. Every outcome, including network failures
// and non-2xx statuses, is a *Result with Success set accordingly. Result.Err
// converts a failure into a *Failure whose Unwrap yields one of the sentinel
// kinds (ErrNetwork, ErrHTTPStatus, ...), so callers can use errors.Is.
//
// No transport retries. A failed request is reported once.
package transport
