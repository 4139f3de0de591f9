// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// Action names one backend operation. The string value is the wire name.
type Action string

const (
	ActionListStores  Action = "list_stores"
	ActionCreateStore Action = "create_store"
	ActionUpload      Action = "upload"
	ActionListDocs    Action = "list_docs"
	ActionDeleteStore Action = "delete_store"
	ActionDeleteDoc   Action = "delete_doc"
	ActionChat        Action = "chat"
)

// Actions lists every action in a stable order.
var Actions = []Action{
	ActionListStores,
	ActionCreateStore,
	ActionUpload,
	ActionListDocs,
	ActionDeleteStore,
	ActionDeleteDoc,
	ActionChat,
}

// String returns the wire name.
func (a Action) String() string {
	return string(a)
}

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Mutating reports whether the action changes backend state.
func (a Action) Mutating() bool {
	switch a {
	case ActionCreateStore, ActionUpload, ActionDeleteStore, ActionDeleteDoc:
		return true
	}
	return false
}
