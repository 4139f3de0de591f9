// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/storedesk/internal/model"
)

// StoreList owns the store collection for the store list screen.
type StoreList struct {
	svc StoreService

	mu       sync.Mutex
	stores   []model.Store
	phase    Phase
	err      error
	formOpen bool
	// loadGen increments per Load and per optimistic insert; a listing
	// that returns after a newer one started is discarded.
	loadGen uint64

	creating atomic.Bool

	policy    Reconcile
	delay     time.Duration
	schedule  Scheduler
	notifier  Notifier
	confirmer Confirmer
	logger    *zap.Logger
	onChange  func()
}

// StoreListOption configures a StoreList.
type StoreListOption func(*StoreList)

// WithReconcile sets the create policy and the deferred reload delay.
func WithReconcile(policy Reconcile, delay time.Duration) StoreListOption {
	return func(l *StoreList) {
		if policy != "" {
			l.policy = policy
		}
		if delay > 0 {
			l.delay = delay
		}
	}
}

// WithScheduler replaces time.AfterFunc for deferred reloads.
func WithScheduler(s Scheduler) StoreListOption {
	return func(l *StoreList) {
		if s != nil {
			l.schedule = s
		}
	}
}

// WithStoreNotifier sets the notification sink.
func WithStoreNotifier(n Notifier) StoreListOption {
	return func(l *StoreList) {
		if n != nil {
			l.notifier = n
		}
	}
}

// WithStoreConfirmer sets the delete confirmation.
func WithStoreConfirmer(c Confirmer) StoreListOption {
	return func(l *StoreList) {
		if c != nil {
			l.confirmer = c
		}
	}
}

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *zap.Logger) StoreListOption {
	return func(l *StoreList) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewStoreList creates a store list controller.
func NewStoreList(svc StoreService, opts ...StoreListOption) *StoreList {
	l := &StoreList{
		svc:       svc,
		phase:     PhaseIdle,
		policy:    ReconcileOptimistic,
		delay:     DefaultReloadDelay,
		schedule:  AfterFunc,
		notifier:  discardNotifier{},
		confirmer: Approved,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// OnChange registers fn to run after every state change.
func (l *StoreList) OnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

func (l *StoreList) changed() {
	l.mu.Lock()
	fn := l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// Stores returns a copy of the collection.
func (l *StoreList) Stores() []model.Store {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Store, len(l.stores))
	copy(out, l.stores)
	return out
}

// Len returns the number of stores.
func (l *StoreList) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.stores)
}

// Phase returns the load phase.
func (l *StoreList) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Err returns the last load error, nil unless in the error phase.
func (l *StoreList) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Busy reports whether a create is outstanding.
func (l *StoreList) Busy() bool {
	return l.creating.Load()
}

// Policy returns the active reconcile policy.
func (l *StoreList) Policy() Reconcile {
	return l.policy
}

// FormOpen reports whether the create form is shown.
func (l *StoreList) FormOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.formOpen
}

// OpenForm shows the create form.
func (l *StoreList) OpenForm() {
	l.setForm(true)
}

// CloseForm hides the create form. It stays open while a create runs.
func (l *StoreList) CloseForm() {
	if l.creating.Load() {
		return
	}
	l.setForm(false)
}

func (l *StoreList) setForm(open bool) {
	l.mu.Lock()
	l.formOpen = open
	l.mu.Unlock()
	l.changed()
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Load replaces the collection with a fresh listing. On failure the
// previous collection is kept. When loads overlap only the most recently
// started one is applied.
func (l *StoreList) Load(ctx context.Context) error {
	l.mu.Lock()
	l.loadGen++
	gen := l.loadGen
	l.phase = PhaseLoading
	l.mu.Unlock()
	l.changed()

	stores, err := l.svc.ListStores(ctx)

	l.mu.Lock()
	if gen != l.loadGen {
		l.mu.Unlock()
		l.logger.Debug("stale store listing dropped", zap.Uint64("generation", gen))
		return nil
	}
	if err != nil {
		l.phase = PhaseError
		l.err = err
		l.mu.Unlock()
		l.logger.Warn("store load failed", zap.Error(err))
		l.notifier.Notify(errorMessage(err), SeverityError)
		l.changed()
		return err
	}
	stores = model.UniqueStores(stores)
	model.SortStores(stores)
	l.stores = stores
	l.phase = PhaseReady
	l.err = nil
	l.mu.Unlock()

	l.logger.Debug("stores loaded", zap.Int("count", len(stores)))
	l.changed()
	return nil
}

// Create creates a store named displayName. Calls made while another create
// is outstanding return ErrInFlight without contacting the backend.
func (l *StoreList) Create(ctx context.Context, displayName string) error {
	name := strings.TrimSpace(displayName)
	if name == "" {
		l.notifier.Notify("Please enter a store name", SeverityWarning)
		return ErrEmptyName
	}
	if !l.creating.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	l.changed()

	store, err := l.svc.CreateStore(ctx, name)
	l.creating.Store(false)
	if err != nil {
		l.logger.Warn("store create failed", zap.String("display_name", name), zap.Error(err))
		l.notifier.Notify(errorMessage(err), SeverityError)
		l.changed()
		return err
	}

	l.logger.Info("store created", zap.String("display_name", name), zap.String("policy", string(l.policy)))
	switch l.policy {
	case ReconcileDeferred:
		l.mu.Lock()
		l.formOpen = false
		l.mu.Unlock()
		l.schedule(l.delay, func() {
			_ = l.Load(context.Background())
		})
		l.notifier.Notify(fmt.Sprintf("Store %q created. Refreshing in %s", name, l.delay), SeveritySuccess)
	default:
		l.mu.Lock()
		if store != nil {
			l.stores = prependStore(l.stores, *store)
			l.loadGen++
		}
		l.formOpen = false
		if l.phase == PhaseIdle || l.phase == PhaseLoading {
			l.phase = PhaseReady
		}
		l.mu.Unlock()
		l.notifier.Notify(fmt.Sprintf("Store %q created", name), SeveritySuccess)
	}
	l.changed()
	return nil
}

// prependStore puts s first, dropping any entry with the same name.
func prependStore(stores []model.Store, s model.Store) []model.Store {
	out := make([]model.Store, 0, len(stores)+1)
	out = append(out, s)
	for _, existing := range stores {
		if existing.Name != s.Name {
			out = append(out, existing)
		}
	}
	return out
}

// Delete removes a store after confirmation and reloads the collection.
func (l *StoreList) Delete(ctx context.Context, storeID string) error {
	title := model.DisplaySuffix(storeID)
	l.mu.Lock()
	for _, s := range l.stores {
		if s.Name == storeID {
			title = s.Title()
			break
		}
	}
	l.mu.Unlock()

	prompt := fmt.Sprintf("Delete store %q and all of its documents? This cannot be undone.", title)
	if !l.confirmer.Confirm(prompt) {
		return ErrCancelled
	}

	if err := l.svc.DeleteStore(ctx, storeID); err != nil {
		l.logger.Warn("store delete failed", zap.String("store", storeID), zap.Error(err))
		l.notifier.Notify(errorMessage(err), SeverityError)
		l.changed()
		return err
	}

	l.logger.Info("store deleted", zap.String("store", storeID))
	l.notifier.Notify(fmt.Sprintf("Store %q deleted", title), SeveritySuccess)
	return l.Load(ctx)
}
