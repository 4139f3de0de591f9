// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jeranaias/storedesk/internal/model"
)

// DocumentList owns the documents and the selected file of one store.
type DocumentList struct {
	svc     DocumentService
	storeID string

	mu       sync.Mutex
	docs     []model.Document
	phase    Phase
	err      error
	selected *model.SelectedFile

	uploading atomic.Bool

	notifier  Notifier
	confirmer Confirmer
	logger    *zap.Logger
	onChange  func()
}

// DocumentListOption configures a DocumentList.
type DocumentListOption func(*DocumentList)

// WithDocumentNotifier sets the notification sink.
func WithDocumentNotifier(n Notifier) DocumentListOption {
	return func(l *DocumentList) {
		if n != nil {
			l.notifier = n
		}
	}
}

// WithDocumentConfirmer sets the delete confirmation.
func WithDocumentConfirmer(c Confirmer) DocumentListOption {
	return func(l *DocumentList) {
		if c != nil {
			l.confirmer = c
		}
	}
}

// WithDocumentLogger sets the logger.
func WithDocumentLogger(logger *zap.Logger) DocumentListOption {
	return func(l *DocumentList) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewDocumentList creates a controller for the store storeID.
func NewDocumentList(svc DocumentService, storeID string, opts ...DocumentListOption) *DocumentList {
	l := &DocumentList{
		svc:       svc,
		storeID:   storeID,
		phase:     PhaseIdle,
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
func (l *DocumentList) OnChange(fn func()) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

func (l *DocumentList) changed() {
	l.mu.Lock()
	fn := l.onChange
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// StoreID returns the owning store.
func (l *DocumentList) StoreID() string {
	return l.storeID
}

// Title returns the human label of the owning store.
func (l *DocumentList) Title() string {
	return model.DisplaySuffix(l.storeID)
}

// Documents returns a copy of the collection.
func (l *DocumentList) Documents() []model.Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Document, len(l.docs))
	copy(out, l.docs)
	return out
}

// Phase returns the load phase.
func (l *DocumentList) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Err returns the last load error.
func (l *DocumentList) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Busy reports whether an upload is outstanding.
func (l *DocumentList) Busy() bool {
	return l.uploading.Load()
}

// Selected returns the selected file or nil.
func (l *DocumentList) Selected() *model.SelectedFile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.selected
}

// Select replaces the selected file.
func (l *DocumentList) Select(file *model.SelectedFile) {
	l.mu.Lock()
	l.selected = file
	l.mu.Unlock()
	l.changed()
}

// ClearSelection drops the selected file.
func (l *DocumentList) ClearSelection() {
	l.Select(nil)
}

// Load replaces the document collection. On failure the previous collection
// is kept.
func (l *DocumentList) Load(ctx context.Context) error {
	l.mu.Lock()
	l.phase = PhaseLoading
	l.mu.Unlock()
	l.changed()

	docs, err := l.svc.ListDocs(ctx, l.storeID)

	l.mu.Lock()
	if err != nil {
		l.phase = PhaseError
		l.err = err
		l.mu.Unlock()
		l.logger.Warn("document load failed", zap.String("store", l.storeID), zap.Error(err))
		l.notifier.Notify(errorMessage(err), SeverityError)
		l.changed()
		return err
	}
	docs = model.UniqueDocuments(docs)
	model.SortDocuments(docs)
	l.docs = docs
	l.phase = PhaseReady
	l.err = nil
	l.mu.Unlock()

	l.changed()
	return nil
}

// Upload sends the selected file. Success clears the selection and reloads
// the documents; failure keeps the selection for a retry.
func (l *DocumentList) Upload(ctx context.Context) error {
	file := l.Selected()
	if file == nil {
		l.notifier.Notify("Please select a file first", SeverityWarning)
		return ErrNoSelection
	}
	if !l.uploading.CompareAndSwap(false, true) {
		return ErrInFlight
	}
	l.changed()

	_, err := l.svc.Upload(ctx, l.storeID, file)
	l.uploading.Store(false)
	if err != nil {
		l.logger.Warn("upload failed",
			zap.String("store", l.storeID),
			zap.String("file", file.Name),
			zap.Error(err))
		l.notifier.Notify(errorMessage(err), SeverityError)
		l.changed()
		return err
	}

	l.logger.Info("uploaded",
		zap.String("store", l.storeID),
		zap.String("file", file.Name),
		zap.Int64("size", file.Size))
	l.mu.Lock()
	if l.selected == file {
		l.selected = nil
	}
	l.mu.Unlock()
	l.notifier.Notify(fmt.Sprintf("Uploaded %s", file.Name), SeveritySuccess)
	return l.Load(ctx)
}

// Delete removes a document after confirmation and reloads the collection.
func (l *DocumentList) Delete(ctx context.Context, documentID string) error {
	title := model.DisplaySuffix(documentID)
	l.mu.Lock()
	for _, d := range l.docs {
		if d.Name == documentID {
			title = d.Title()
			break
		}
	}
	l.mu.Unlock()

	if !l.confirmer.Confirm(fmt.Sprintf("Delete document %q? This cannot be undone.", title)) {
		return ErrCancelled
	}

	if err := l.svc.DeleteDoc(ctx, l.storeID, documentID); err != nil {
		l.logger.Warn("document delete failed", zap.String("document", documentID), zap.Error(err))
		l.notifier.Notify(errorMessage(err), SeverityError)
		l.changed()
		return err
	}

	l.logger.Info("document deleted", zap.String("document", documentID))
	l.notifier.Notify(fmt.Sprintf("Document %q deleted", title), SeveritySuccess)
	return l.Load(ctx)
}
