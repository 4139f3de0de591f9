// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/storedesk/internal/model"
)

// providerMock routes provider API paths to handlers and checks the key header.
func providerMock(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key-123", r.Header.Get("x-goog-api-key"))
		h, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":404,"message":"no route ` + r.Method + " " + r.URL.Path + `","status":"NOT_FOUND"}}`))
			return
		}
		h(w, r)
	}))
}

func directRequest(server *httptest.Server, action model.Action, fields map[string]string) *Request {
	return &Request{Endpoint: server.URL + "/v1beta", APIKey: "key-123", Action: action, Fields: fields}
}

func TestDirect_ListStoresPaginates(t *testing.T) {
	server := providerMock(t, map[string]http.HandlerFunc{
		"GET /v1beta/fileSearchStores": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("pageToken") == "" {
				w.Write([]byte(`{"fileSearchStores":[{"name":"fileSearchStores/a","createTime":"2024-01-01T00:00:00Z"}],"nextPageToken":"p2"}`))
				return
			}
			assert.Equal(t, "p2", r.URL.Query().Get("pageToken"))
			w.Write([]byte(`{"fileSearchStores":[{"name":"fileSearchStores/b"}]}`))
		},
	})
	defer server.Close()

	res := newTransport(t, KindDirect, Options{}).Send(context.Background(), directRequest(server, model.ActionListStores, nil))
	require.True(t, res.Success, res.Error)
	require.Len(t, res.Stores, 2)
	assert.Equal(t, "fileSearchStores/b", res.Stores[1].Name)
}

func TestDirect_ListStoresEmpty(t *testing.T) {
	server := providerMock(t, map[string]http.HandlerFunc{
		"GET /v1beta/fileSearchStores": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{}`))
		},
	})
	defer server.Close()

	res := newTransport(t, KindDirect, Options{}).Send(context.Background(), directRequest(server, model.ActionListStores, nil))
	require.True(t, res.Success)
	assert.NotNil(t, res.Stores)
	assert.Empty(t, res.Stores)
}

func TestDirect_CreateStore(t *testing.T) {
	server := providerMock(t, map[string]http.HandlerFunc{
		"POST /v1beta/fileSearchStores": func(w http.ResponseWriter, r *http.Request) {
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "Research", body["displayName"])
			w.Write([]byte(`{"name":"fileSearchStores/research-1","displayName":"Research","createTime":"2025-02-01T00:00:00Z"}`))
		},
	})
	defer server.Close()

	res := newTransport(t, KindDirect, Options{}).Send(context.Background(),
		directRequest(server, model.ActionCreateStore, map[string]string{"displayName": "Research"}))
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Store)
	assert.Equal(t, "fileSearchStores/research-1", res.Store.Name)
	assert.Equal(t, "create_store", res.Action)
}

func TestDirect_DeleteForce(t *testing.T) {
	var storeDeleted, docDeleted atomic.Bool
	server := providerMock(t, map[string]http.HandlerFunc{
		"DELETE /v1beta/fileSearchStores/a": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "true", r.URL.Query().Get("force"))
			storeDeleted.Store(true)
			w.WriteHeader(http.StatusNoContent)
		},
		"DELETE /v1beta/fileSearchStores/a/documents/d1": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "true", r.URL.Query().Get("force"))
			docDeleted.Store(true)
			w.Write([]byte(`{}`))
		},
	})
	defer server.Close()

	tr := newTransport(t, KindDirect, Options{})
	res := tr.Send(context.Background(), directRequest(server, model.ActionDeleteStore, map[string]string{"storeId": "fileSearchStores/a"}))
	require.True(t, res.Success, res.Error)
	assert.True(t, storeDeleted.Load())

	// A full document resource name is used as is.
	res = tr.Send(context.Background(), directRequest(server, model.ActionDeleteDoc, map[string]string{
		"storeId":    "fileSearchStores/a",
		"documentId": "fileSearchStores/a/documents/d1",
	}))
	require.True(t, res.Success, res.Error)
	assert.True(t, docDeleted.Load())

	// A bare document id is qualified with the store.
	docDeleted.Store(false)
	res = tr.Send(context.Background(), directRequest(server, model.ActionDeleteDoc, map[string]string{
		"storeId":    "fileSearchStores/a",
		"documentId": "d1",
	}))
	require.True(t, res.Success, res.Error)
	assert.True(t, docDeleted.Load())
}

func TestDirect_ReservedCharactersStayInPath(t *testing.T) {
	var listed, deleted atomic.Bool
	server := providerMock(t, map[string]http.HandlerFunc{
		"GET /v1beta/fileSearchStores/a b?x=1#frag/documents": func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.URL.RawQuery)
			listed.Store(true)
			w.Write([]byte(`{"documents":[]}`))
		},
		"DELETE /v1beta/fileSearchStores/a b?x=1#frag/documents/d?1": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "force=true", r.URL.RawQuery)
			deleted.Store(true)
			w.Write([]byte(`{}`))
		},
	})
	defer server.Close()

	tr := newTransport(t, KindDirect, Options{})
	res := tr.Send(context.Background(), directRequest(server, model.ActionListDocs,
		map[string]string{"storeId": "fileSearchStores/a b?x=1#frag"}))
	require.True(t, res.Success, res.Error)
	assert.True(t, listed.Load())

	res = tr.Send(context.Background(), directRequest(server, model.ActionDeleteDoc, map[string]string{
		"storeId":    "fileSearchStores/a b?x=1#frag",
		"documentId": "d?1",
	}))
	require.True(t, res.Success, res.Error)
	assert.True(t, deleted.Load())
}

func TestResourcePath(t *testing.T) {
	assert.Equal(t, "fileSearchStores/abc", resourcePath("fileSearchStores/abc"))
	assert.Equal(t, "fileSearchStores/a%20b%3Fx=1%23frag", resourcePath("fileSearchStores/a b?x=1#frag"))
}

func TestDirect_ErrorMessageFromBody(t *testing.T) {
	server := providerMock(t, map[string]http.HandlerFunc{
		"GET /v1beta/fileSearchStores/a/documents": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`))
		},
	})
	defer server.Close()

	res := newTransport(t, KindDirect, Options{}).Send(context.Background(),
		directRequest(server, model.ActionListDocs, map[string]string{"storeId": "fileSearchStores/a"}))
	require.False(t, res.Success)
	assert.Equal(t, "API key not valid", res.Error)
	assert.True(t, errors.Is(res.Err(), ErrHTTPStatus))
	assert.Equal(t, http.StatusForbidden, res.Status)
}

func TestDirect_Upload(t *testing.T) {
	server := providerMock(t, map[string]http.HandlerFunc{
		"POST /upload/v1beta/fileSearchStores/a:uploadToFileSearchStore": func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "multipart", r.Header.Get("X-Goog-Upload-Protocol"))
			require.NoError(t, r.ParseMultipartForm(1<<20))

			var meta map[string]string
			require.NoError(t, json.Unmarshal([]byte(r.FormValue("metadata")), &meta))
			assert.Equal(t, "guide.md", meta["displayName"])

			f, _, err := r.FormFile("file")
			require.NoError(t, err)
			data, _ := io.ReadAll(f)
			f.Close()
			assert.Equal(t, "# Guide", string(data))

			w.Write([]byte(`{"name":"fileSearchStores/a/upload/operations/op1","done":true,"response":{"name":"fileSearchStores/a/documents/guide-1","displayName":"guide.md"}}`))
		},
	})
	defer server.Close()

	req := directRequest(server, model.ActionUpload, map[string]string{"storeId": "fileSearchStores/a"})
	req.File = model.NewSelectedFile("guide.md", []byte("# Guide"), "text/markdown")

	res := newTransport(t, KindDirect, Options{}).Send(context.Background(), req)
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Document)
	assert.Equal(t, "fileSearchStores/a/documents/guide-1", res.Document.Name)
}

func TestDirect_Chat(t *testing.T) {
	server := providerMock(t, map[string]http.HandlerFunc{
		"POST /v1beta/models/gemini-test:generateContent": func(w http.ResponseWriter, r *http.Request) {
			var body generateRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Len(t, body.Contents, 1)
			assert.Equal(t, "What is in the guide?", body.Contents[0].Parts[0].Text)
			require.Len(t, body.Tools, 1)
			assert.Equal(t, []string{"fileSearchStores/a"}, body.Tools[0].FileSearch.FileSearchStoreNames)
			assert.Equal(t, 3, body.Tools[0].FileSearch.TopK)

			w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"It covers "},{"text":"setup."}]}}]}`))
		},
	})
	defer server.Close()

	tr := newTransport(t, KindDirect, Options{Model: "gemini-test", TopK: 3})
	res := tr.Send(context.Background(), directRequest(server, model.ActionChat, map[string]string{
		"storeId": "a",
		"message": "What is in the guide?",
	}))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "It covers setup.", res.Answer)
}

func TestDirect_ChatNoCandidates(t *testing.T) {
	server := providerMock(t, map[string]http.HandlerFunc{
		"POST /v1beta/models/gemini-2.0-flash:generateContent": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"candidates":[]}`))
		},
	})
	defer server.Close()

	res := newTransport(t, KindDirect, Options{}).Send(context.Background(),
		directRequest(server, model.ActionChat, map[string]string{"storeId": "fileSearchStores/a", "message": "hi"}))
	require.True(t, res.Success)
	assert.Equal(t, NoAnswer, res.Answer)
}

func TestDirect_MalformedBody(t *testing.T) {
	server := providerMock(t, map[string]http.HandlerFunc{
		"GET /v1beta/fileSearchStores": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		},
	})
	defer server.Close()

	res := newTransport(t, KindDirect, Options{}).Send(context.Background(), directRequest(server, model.ActionListStores, nil))
	assert.True(t, errors.Is(res.Err(), ErrMalformedResponse))
}

func TestUploadBase(t *testing.T) {
	assert.Equal(t, "https://example.com/upload/v1beta", uploadBase("https://example.com/v1beta"))
	assert.Equal(t, "https://example.com/upload/v1beta", uploadBase("https://example.com/upload/v1beta"))
	assert.True(t, strings.HasSuffix(documentURL("b", "s", "d"), "b/s/documents/d"))
	assert.Equal(t, "fileSearchStores/x", storeResourceName("x"))
	assert.Equal(t, "fileSearchStores/x", storeResourceName("fileSearchStores/x"))
}
