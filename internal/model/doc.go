// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for stores, documents and chat turns.
//
// # Key Types
//
//   - Store: A named document store; identity is Name
//   - Document: A document owned by exactly one store
//   - Turn: One entry of a chat transcript
//   - SelectedFile: A file staged for upload
//   - Action: The seven operations understood by the backend
//
// Store and document identifiers are opaque provider strings such as
// "fileSearchStores/abc-123". They are percent-encoded when used as a
// single path segment (see EncodeID and DecodeID) and shown to the user
// through DisplaySuffix.
//
// # Usage
//
//	model.SortByCreateTime(stores)
//	title := model.DisplaySuffix(model.DecodeID(segment))
package model
