// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jeranaias/storedesk/internal/model"
	"github.com/jeranaias/storedesk/internal/transport"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type note struct {
	message  string
	severity Severity
}

type recorder struct {
	mu    sync.Mutex
	notes []note
}

func (r *recorder) Notify(message string, severity Severity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{message, severity})
}

func (r *recorder) all() []note {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]note(nil), r.notes...)
}

func (r *recorder) count(severity Severity) int {
	n := 0
	for _, nt := range r.all() {
		if nt.severity == severity {
			n++
		}
	}
	return n
}

// fakeBackend implements every service interface. Calls to a method whose
// gate is non-nil block until the gate is closed.
type fakeBackend struct {
	mu sync.Mutex

	stores    []model.Store
	docs      []model.Document
	listErr   error
	createErr error
	deleteErr error
	uploadErr error
	chatErr   error
	answer    string
	created   *model.Store

	createGate chan struct{}
	uploadGate chan struct{}
	chatGate   chan struct{}
	started    chan struct{}

	calls map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int), started: make(chan struct{}, 16)}
}

func (f *fakeBackend) hit(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
	select {
	case f.started <- struct{}{}:
	default:
	}
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) ListStores(ctx context.Context) ([]model.Store, error) {
	f.hit("list_stores")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Store(nil), f.stores...), nil
}

func (f *fakeBackend) CreateStore(ctx context.Context, displayName string) (*model.Store, error) {
	f.hit("create_store")
	if f.createGate != nil {
		<-f.createGate
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.created != nil {
		return f.created, nil
	}
	return &model.Store{Name: "fileSearchStores/" + displayName, DisplayName: displayName}, nil
}

func (f *fakeBackend) DeleteStore(ctx context.Context, storeID string) error {
	f.hit("delete_store")
	return f.deleteErr
}

func (f *fakeBackend) ListDocs(ctx context.Context, storeID string) ([]model.Document, error) {
	f.hit("list_docs")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Document(nil), f.docs...), nil
}

func (f *fakeBackend) Upload(ctx context.Context, storeID string, file *model.SelectedFile) (*model.Document, error) {
	f.hit("upload")
	if f.uploadGate != nil {
		<-f.uploadGate
	}
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &model.Document{Name: storeID + "/documents/" + file.Name}, nil
}

func (f *fakeBackend) DeleteDoc(ctx context.Context, storeID, documentID string) error {
	f.hit("delete_doc")
	return f.deleteErr
}

func (f *fakeBackend) Chat(ctx context.Context, storeID, message string) (string, error) {
	f.hit("chat")
	if f.chatGate != nil {
		<-f.chatGate
	}
	return f.answer, f.chatErr
}

// networkError mimics what the dispatcher returns for an unreachable relay.
func networkError() error {
	return &transport.Failure{
		Action:  model.ActionChat,
		Kind:    transport.ErrNetwork,
		Message: "Network error: could not reach the relay (check connectivity or CORS)",
	}
}

var errBoom = errors.New("boom")

func waitStarted(f *fakeBackend) {
	select {
	case <-f.started:
	case <-time.After(5 * time.Second):
		panic("backend call never started")
	}
}
