// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package components provides reusable UI components for the storedesk TUI.

# Display Components

Header (header.go) - Title bar with breadcrumb, transport badge and endpoint.
StatusBar (statusbar.go) - Footer with request status, counts, reconcile policy
and key hints.

# Feedback

ToastManager (toast.go) - Auto-dismissing notifications in the bottom-right
corner. It implements console.Notifier so controllers can report errors
directly.

ConfirmDialog (confirm.go) - Modal yes/no prompt guarding destructive actions.
Cancel is preselected.

# Usage

	toasts := components.NewToastManager(cfg.ToastDuration())
	list := console.NewStoreList(d, console.WithStoreNotifier(toasts))
*/
package components
