// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"context"
	"errors"
	"time"

	"github.com/jeranaias/storedesk/internal/model"
)

var (
	// ErrInFlight is returned when a single-flight operation is already running.
	ErrInFlight = errors.New("request already in progress")

	// ErrCancelled is returned when the user declines a confirmation.
	ErrCancelled = errors.New("cancelled")

	// ErrEmptyName is returned for a blank store name.
	ErrEmptyName = errors.New("store name is empty")

	// ErrNoSelection is returned by Upload when no file is selected.
	ErrNoSelection = errors.New("no file selected")

	// ErrEmptyMessage is returned by Send for a blank message.
	ErrEmptyMessage = errors.New("message is empty")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Severity classifies a notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Notifier receives transient user notifications.
type Notifier interface {
	Notify(message string, severity Severity)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string, severity Severity)

// Notify implements Notifier.
func (f NotifierFunc) Notify(message string, severity Severity) { f(message, severity) }

type discardNotifier struct{}

func (discardNotifier) Notify(string, Severity) {}

// Confirmer approves destructive operations.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmerFunc adapts a function to Confirmer.
type ConfirmerFunc func(prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmerFunc) Confirm(prompt string) bool { return f(prompt) }

// Approved is a Confirmer for callers that already asked the user.
var Approved Confirmer = ConfirmerFunc(func(string) bool { return true })

// StoreService is the backend surface used by StoreList.
type StoreService interface {
	ListStores(ctx context.Context) ([]model.Store, error)
	CreateStore(ctx context.Context, displayName string) (*model.Store, error)
	DeleteStore(ctx context.Context, storeID string) error
}

// DocumentService is the backend surface used by DocumentList.
type DocumentService interface {
	ListDocs(ctx context.Context, storeID string) ([]model.Document, error)
	Upload(ctx context.Context, storeID string, file *model.SelectedFile) (*model.Document, error)
	DeleteDoc(ctx context.Context, storeID, documentID string) error
}

// ChatService is the backend surface used by ChatSession.
type ChatService interface {
	Chat(ctx context.Context, storeID, message string) (string, error)
}

// =============================================================================
// PHASES AND POLICIES
// =============================================================================

// Phase is the load state of a collection.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseError
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	default:
		return "idle"
	}
}

// Reconcile decides how a created store becomes visible.
type Reconcile string

const (
	// ReconcileOptimistic prepends the returned store immediately. The next
	// full load overwrites it with the authoritative listing.
	ReconcileOptimistic Reconcile = "optimistic"

	// ReconcileDeferred leaves the collection alone and reloads after a delay,
	// giving the backend time to make the new store visible.
	ReconcileDeferred Reconcile = "deferred"
)

// DefaultReloadDelay is the deferred reload delay.
const DefaultReloadDelay = 5 * time.Second

// Scheduler runs fn after d. It must not block.
type Scheduler func(d time.Duration, fn func())

// AfterFunc schedules with time.AfterFunc.
func AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// errorMessage returns err's text for display.
func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
