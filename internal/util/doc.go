// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the storedesk packages.
//
// # Key Functions
//
// Display:
//   - TruncateWidth: cell-width aware truncation for table columns
//   - PadWidth: right-pads a string to a display width
//   - HumanSize: byte counts as "1.5MB" style strings
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing with fsync
//
// # Usage
//
//	// Fit a display name into a 30 column table cell
//	cell := util.PadWidth(util.TruncateWidth(name, 30), 30)
//
//	// Write files atomically to prevent data loss
//	err := util.AtomicWriteFile(path, data, 0600)
package util
