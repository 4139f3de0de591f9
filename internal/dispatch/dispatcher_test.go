// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/storedesk/internal/credentials"
	"github.com/jeranaias/storedesk/internal/model"
	"github.com/jeranaias/storedesk/internal/transport"
)

// fakeTransport records requests and replies with a canned result.
type fakeTransport struct {
	mu       sync.Mutex
	requests []*transport.Request
	reply    func(req *transport.Request) *transport.Result
}

func (f *fakeTransport) Send(ctx context.Context, req *transport.Request) *transport.Result {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.reply == nil {
		return transport.Succeed(req.Action)
	}
	return f.reply(req)
}

func (f *fakeTransport) Kind() transport.Kind { return transport.KindJSON }

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTransport) last() *transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newResolver(t *testing.T, apiKey, endpoint string) *credentials.Resolver {
	t.Helper()
	cell := credentials.NewMemoryCell()
	if apiKey != "" {
		require.NoError(t, cell.Set(credentials.KeyCredential, apiKey))
	}
	if endpoint != "" {
		require.NoError(t, cell.Set(credentials.KeyEndpoint, endpoint))
	}
	return credentials.NewResolver(cell, nil)
}

func TestCallWithoutCredentialSendsNothing(t *testing.T) {
	ft := &fakeTransport{}
	d := New(newResolver(t, "", "https://relay.example"), ft)

	for _, action := range model.Actions {
		res := d.Call(context.Background(), action, Payload{
			FieldStoreID:     "fileSearchStores/a",
			FieldDocumentID:  "fileSearchStores/a/documents/b",
			FieldDisplayName: "Docs",
			FieldMessage:     "hi",
		}, model.NewSelectedFile("a.txt", []byte("x"), "text/plain"))

		assert.False(t, res.Success, action)
		assert.ErrorIs(t, res.Err(), transport.ErrConfiguration, action)
		assert.Contains(t, res.Error, "API key")
	}
	assert.Equal(t, 0, ft.calls())
}

func TestCallWithoutEndpointSendsNothing(t *testing.T) {
	ft := &fakeTransport{}
	d := New(newResolver(t, "key", ""), ft)

	_, err := d.ListStores(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrConfiguration)
	assert.Contains(t, err.Error(), "endpoint")
	assert.Equal(t, 0, ft.calls())
}

func TestCallLogoutBetweenCalls(t *testing.T) {
	cell := credentials.NewMemoryCell()
	resolver := credentials.NewResolver(cell, func() string { return "https://relay.example" })
	require.NoError(t, resolver.SetCredential("key"))

	ft := &fakeTransport{}
	d := New(resolver, ft)

	_, err := d.ListStores(context.Background())
	require.NoError(t, err)

	require.NoError(t, resolver.ClearCredential())
	_, err = d.ListStores(context.Background())
	assert.ErrorIs(t, err, transport.ErrConfiguration)
	assert.Equal(t, 1, ft.calls())
}

func TestCallInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		action model.Action
		data   Payload
		file   *model.SelectedFile
		want   string
	}{
		{"blank display name", model.ActionCreateStore, Payload{FieldDisplayName: "   "}, nil, "displayName is required"},
		{"missing store", model.ActionListDocs, nil, nil, "storeId is required"},
		{"missing store on delete", model.ActionDeleteStore, Payload{}, nil, "storeId is required"},
		{"missing document", model.ActionDeleteDoc, Payload{FieldStoreID: "s"}, nil, "documentId is required"},
		{"blank message", model.ActionChat, Payload{FieldStoreID: "s", FieldMessage: "\n "}, nil, "message is required"},
		{"no file", model.ActionUpload, Payload{FieldStoreID: "s"}, nil, "No file selected"},
		{"unknown action", model.Action("rename_store"), Payload{}, nil, "Unknown action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransport{}
			d := New(newResolver(t, "key", "https://relay.example"), ft)

			res := d.Call(context.Background(), tt.action, tt.data, tt.file)
			assert.False(t, res.Success)
			assert.ErrorIs(t, res.Err(), transport.ErrInvalidInput)
			assert.Contains(t, res.Error, tt.want)
			assert.Equal(t, 0, ft.calls())
		})
	}
}

func TestCallNormalizesPayload(t *testing.T) {
	ft := &fakeTransport{}
	d := New(newResolver(t, "key", "https://relay.example"), ft)

	// "e" followed by a combining acute accent.
	res := d.Call(context.Background(), model.ActionCreateStore, Payload{FieldDisplayName: "  Cafe\u0301  "}, nil)
	require.True(t, res.Success)

	req := ft.last()
	assert.Equal(t, "Caf\u00e9", req.Field(FieldDisplayName))
	assert.Equal(t, "key", req.APIKey)
	assert.Equal(t, "https://relay.example", req.Endpoint)
	assert.Equal(t, model.ActionCreateStore, req.Action)
}

func TestCallActionMismatchOnlyForCreateStore(t *testing.T) {
	ft := &fakeTransport{reply: func(req *transport.Request) *transport.Result {
		res := transport.Succeed(model.ActionListStores)
		res.Stores = []model.Store{{Name: "fileSearchStores/a"}}
		return res
	}}
	d := New(newResolver(t, "key", "https://relay.example"), ft)

	res := d.Call(context.Background(), model.ActionCreateStore, Payload{FieldDisplayName: "Docs"}, nil)
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err(), transport.ErrActionMismatch)
	assert.Contains(t, res.Error, "create_store")

	res = d.Call(context.Background(), model.ActionListDocs, Payload{FieldStoreID: "s"}, nil)
	assert.True(t, res.Success)
}

func TestCallFillsMissingAction(t *testing.T) {
	ft := &fakeTransport{reply: func(req *transport.Request) *transport.Result {
		res := transport.Succeed("")
		res.Answer = "42"
		return res
	}}
	d := New(newResolver(t, "key", "https://relay.example"), ft)

	res := d.Call(context.Background(), model.ActionChat, Payload{FieldStoreID: "s", FieldMessage: "q"}, nil)
	require.True(t, res.Success)
	assert.Equal(t, "chat", res.Action)
	assert.Equal(t, "42", res.Answer)
}

func TestCallNilTransportResult(t *testing.T) {
	ft := &fakeTransport{reply: func(req *transport.Request) *transport.Result { return nil }}
	d := New(newResolver(t, "key", "https://relay.example"), ft)

	res := d.Call(context.Background(), model.ActionListStores, nil, nil)
	require.NotNil(t, res)
	assert.ErrorIs(t, res.Err(), transport.ErrMalformedResponse)
}

func TestWithTimeout(t *testing.T) {
	var deadline atomic.Bool
	d := New(newResolver(t, "key", "https://relay.example"), &deadlineTransport{seen: &deadline}, WithTimeout(time.Minute))
	_, err := d.ListStores(context.Background())
	require.NoError(t, err)
	assert.True(t, deadline.Load())

	deadline.Store(false)
	d = New(newResolver(t, "key", "https://relay.example"), &deadlineTransport{seen: &deadline}, WithTimeout(0))
	_, err = d.ListStores(context.Background())
	require.NoError(t, err)
	assert.False(t, deadline.Load())
}

type deadlineTransport struct {
	seen *atomic.Bool
}

func (d *deadlineTransport) Send(ctx context.Context, req *transport.Request) *transport.Result {
	_, ok := ctx.Deadline()
	d.seen.Store(ok)
	return transport.Succeed(req.Action)
}

func (d *deadlineTransport) Kind() transport.Kind { return transport.KindJSON }

func TestTypedHelpers(t *testing.T) {
	ft := &fakeTransport{reply: func(req *transport.Request) *transport.Result {
		res := transport.Succeed(req.Action)
		switch req.Action {
		case model.ActionListStores:
			res.Stores = []model.Store{{Name: "fileSearchStores/a", DisplayName: "A"}}
		case model.ActionCreateStore:
			res.Store = &model.Store{Name: "fileSearchStores/new", DisplayName: req.Field(FieldDisplayName)}
		case model.ActionListDocs:
			res.Documents = []model.Document{{Name: req.Field(FieldStoreID) + "/documents/d"}}
		case model.ActionUpload:
			res.Document = &model.Document{Name: "doc", DisplayName: req.File.Name}
		case model.ActionChat:
			res.Answer = "answer to " + req.Field(FieldMessage)
		case model.ActionDeleteDoc:
			if req.Field(FieldDocumentID) == "missing" {
				return transport.Fail(req.Action, transport.ErrApplication, "Document not found")
			}
		}
		return res
	}}
	d := New(newResolver(t, "key", "https://relay.example"), ft)
	ctx := context.Background()

	stores, err := d.ListStores(ctx)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "A", stores[0].DisplayName)

	store, err := d.CreateStore(ctx, "Research")
	require.NoError(t, err)
	assert.Equal(t, "Research", store.DisplayName)

	docs, err := d.ListDocs(ctx, "fileSearchStores/a")
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/a/documents/d", docs[0].Name)

	doc, err := d.Upload(ctx, "fileSearchStores/a", model.NewSelectedFile("notes.txt", []byte("hello"), "text/plain"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.DisplayName)

	answer, err := d.Chat(ctx, "fileSearchStores/a", "why?")
	require.NoError(t, err)
	assert.Equal(t, "answer to why?", answer)

	require.NoError(t, d.DeleteStore(ctx, "fileSearchStores/a"))

	err = d.DeleteDoc(ctx, "fileSearchStores/a", "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrApplication)
	assert.Equal(t, "Document not found", err.Error())

	var failure *transport.Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, model.ActionDeleteDoc, failure.Action)
}

func TestDispatchOverJSONRelay(t *testing.T) {
	var got map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webhook/file-store", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"action":"create_store","store":{"name":"fileSearchStores/x","displayName":"X","createTime":"2025-01-02T03:04:05Z"}}`))
	}))
	defer server.Close()

	tr, err := transport.New(transport.KindJSON, transport.Options{RelayPath: transport.DefaultRelayPath})
	require.NoError(t, err)
	d := New(newResolver(t, "secret", server.URL), tr)

	store, err := d.CreateStore(context.Background(), " X ")
	require.NoError(t, err)
	assert.Equal(t, "fileSearchStores/x", store.Name)

	assert.Equal(t, "create_store", got["action"])
	assert.Equal(t, "secret", got["apiKey"])
	assert.Equal(t, "X", got["displayName"])
}
