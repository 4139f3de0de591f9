// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/storedesk/internal/model"
)

func newTransport(t *testing.T, kind Kind, opts Options) Transport {
	t.Helper()
	tr, err := New(kind, opts)
	require.NoError(t, err)
	require.Equal(t, kind, tr.Kind())
	return tr
}

func relayRequest(endpoint string, action model.Action, fields map[string]string) *Request {
	return &Request{Endpoint: endpoint, APIKey: "key-123", Action: action, Fields: fields}
}

// =============================================================================
// JSON RELAY
// =============================================================================

func TestJSONRelay_EnvelopeAndDecode(t *testing.T) {
	gotCh := make(chan map[string]string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/webhook/file-store", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotCh <- body

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"stores":[{"name":"fileSearchStores/a","displayName":"A","createTime":"2024-01-01T00:00:00Z"}]}`))
	}))
	defer server.Close()

	tr := newTransport(t, KindJSON, Options{})
	res := tr.Send(context.Background(), relayRequest(server.URL+"/", model.ActionListDocs, map[string]string{"storeId": "fileSearchStores/a"}))

	require.True(t, res.Success, res.Error)
	assert.Equal(t, map[string]string{"action": "list_docs", "apiKey": "key-123", "storeId": "fileSearchStores/a"}, <-gotCh)
	require.Len(t, res.Stores, 1)
	assert.Equal(t, "A", res.Stores[0].DisplayName)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.NotEmpty(t, res.RequestID)
	assert.NoError(t, res.Err())
}

func TestJSONRelay_CustomPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hooks/stores", r.URL.Path)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	tr := newTransport(t, KindJSON, Options{RelayPath: "/hooks/stores/"})
	res := tr.Send(context.Background(), relayRequest(server.URL, model.ActionDeleteStore, map[string]string{"storeId": "s"}))
	assert.True(t, res.Success)
}

func TestJSONRelay_FailureNormalization(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    error
		message string
	}{
		{"non-2xx with success body", http.StatusInternalServerError, `{"success":true}`, ErrHTTPStatus, "HTTP 500: Internal Server Error"},
		{"non-2xx with error text", http.StatusForbidden, `{"success":false,"error":"bad key"}`, ErrHTTPStatus, "bad key"},
		{"non-2xx with html", http.StatusBadGateway, `<html>oops</html>`, ErrHTTPStatus, "HTTP 502: Bad Gateway"},
		{"application error string", http.StatusOK, `{"success":false,"error":"Store not found"}`, ErrApplication, "Store not found"},
		{"application error object", http.StatusOK, `{"success":false,"error":{"message":"quota exceeded"}}`, ErrApplication, "quota exceeded"},
		{"application error bare", http.StatusOK, `{"success":false}`, ErrApplication, "Request failed"},
		{"malformed json", http.StatusOK, `{"success":`, ErrMalformedResponse, ""},
		{"missing success", http.StatusOK, `{"stores":[]}`, ErrMalformedResponse, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			tr := newTransport(t, KindJSON, Options{})
			res := tr.Send(context.Background(), relayRequest(server.URL, model.ActionListStores, nil))

			require.False(t, res.Success)
			assert.True(t, errors.Is(res.Err(), tt.kind), "kind = %v", res.Kind())
			assert.NotEmpty(t, res.Error)
			if tt.message != "" {
				assert.Equal(t, tt.message, res.Error)
			}

			var failure *Failure
			require.True(t, errors.As(res.Err(), &failure))
			assert.Equal(t, tt.status, failure.Status)
		})
	}
}

func TestJSONRelay_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	tr := newTransport(t, KindJSON, Options{})
	res := tr.Send(context.Background(), relayRequest(endpoint, model.ActionListStores, nil))

	require.False(t, res.Success)
	assert.True(t, errors.Is(res.Err(), ErrNetwork))
	assert.Contains(t, res.Error, "CORS")
	assert.Equal(t, 0, res.Status)
}

func TestJSONRelay_ContextTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	tr := newTransport(t, KindJSON, Options{})
	res := tr.Send(ctx, relayRequest(server.URL, model.ActionChat, map[string]string{"storeId": "s", "message": "hi"}))

	require.False(t, res.Success)
	assert.True(t, errors.Is(res.Err(), ErrNetwork))
	assert.Contains(t, res.Error, "timed out")
}

func TestJSONRelay_RejectsFiles(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	req := relayRequest(server.URL, model.ActionUpload, map[string]string{"storeId": "s"})
	req.File = model.NewSelectedFile("a.txt", []byte("hello"), "text/plain")

	res := newTransport(t, KindJSON, Options{}).Send(context.Background(), req)
	require.False(t, res.Success)
	assert.True(t, errors.Is(res.Err(), ErrConfiguration))
	assert.Equal(t, int32(0), calls.Load())
}

func TestRelay_InvalidEndpoint(t *testing.T) {
	res := newTransport(t, KindJSON, Options{}).Send(context.Background(), relayRequest("relay.local", model.ActionListStores, nil))
	assert.True(t, errors.Is(res.Err(), ErrConfiguration))
}

func TestRelay_RateLimitHonoursContext(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	tr := newTransport(t, KindJSON, Options{RequestsPerSecond: 0.01})
	first := tr.Send(context.Background(), relayRequest(server.URL, model.ActionListStores, nil))
	require.True(t, first.Success)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	second := tr.Send(ctx, relayRequest(server.URL, model.ActionListStores, nil))
	require.False(t, second.Success)
	assert.True(t, errors.Is(second.Err(), ErrNetwork))
	assert.Equal(t, int32(1), calls.Load())
}

func TestMultipartRelay_PacingCancelReleasesWriter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	tr := newTransport(t, KindMultipart, Options{RequestsPerSecond: 0.01})
	first := tr.Send(context.Background(), relayRequest(server.URL, model.ActionListStores, nil))
	require.True(t, first.Success, first.Error)

	server.CloseClientConnections()
	before := runtime.NumGoroutine()

	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
		req := relayRequest(server.URL, model.ActionUpload, map[string]string{"storeId": "fileSearchStores/a"})
		req.File = model.NewSelectedFile("notes.txt", []byte("notes"), "text/plain")
		res := tr.Send(ctx, req)
		cancel()
		require.False(t, res.Success)
		assert.True(t, errors.Is(res.Err(), ErrNetwork))
	}

	// Writers exit once their pipe is closed; allow the scheduler to run them.
	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before+2
	}, 2*time.Second, 20*time.Millisecond)
}

// =============================================================================
// MULTIPART RELAY
// =============================================================================

func TestMultipartRelay_FileUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "upload", r.FormValue("action"))
		assert.Equal(t, "key-123", r.FormValue("apiKey"))
		assert.Equal(t, "fileSearchStores/a", r.FormValue("storeId"))

		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "report contents", string(data))
		assert.Equal(t, `report "q1".txt`, header.Filename)
		assert.Equal(t, "text/plain", header.Header.Get("Content-Type"))

		w.Write([]byte(`{"success":true,"document":{"name":"fileSearchStores/a/documents/d1","displayName":"report"}}`))
	}))
	defer server.Close()

	req := relayRequest(server.URL, model.ActionUpload, map[string]string{"storeId": "fileSearchStores/a"})
	req.File = model.NewSelectedFile(`report "q1".txt`, []byte("report contents"), "text/plain")

	res := newTransport(t, KindMultipart, Options{}).Send(context.Background(), req)
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Document)
	assert.Equal(t, "fileSearchStores/a/documents/d1", res.Document.Name)
}

func TestMultipartRelay_JSONWithoutFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "create_store", body["action"])
		assert.Equal(t, "Docs", body["displayName"])
		w.Write([]byte(`{"success":true,"action":"create_store","store":{"name":"fileSearchStores/new","displayName":"Docs"}}`))
	}))
	defer server.Close()

	res := newTransport(t, KindMultipart, Options{}).Send(context.Background(),
		relayRequest(server.URL, model.ActionCreateStore, map[string]string{"displayName": "Docs"}))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "create_store", res.Action)
	require.NotNil(t, res.Store)
	assert.Equal(t, "fileSearchStores/new", res.Store.Name)
}

func TestMultipartRelay_TooLarge(t *testing.T) {
	req := relayRequest("http://127.0.0.1:1", model.ActionUpload, map[string]string{"storeId": "s"})
	req.File = model.NewSelectedFile("big.bin", make([]byte, 64), "application/octet-stream")

	res := newTransport(t, KindMultipart, Options{MaxUploadBytes: 16}).Send(context.Background(), req)
	assert.True(t, errors.Is(res.Err(), ErrInvalidInput))
}

// =============================================================================
// BASE64 RELAY
// =============================================================================

func TestBase64Relay_EmbedsFile(t *testing.T) {
	content := []byte{0x00, 0xff, 0x10, 'P', 'D', 'F'}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		assert.Equal(t, "upload", body["action"])
		assert.Equal(t, "blob.bin", body["fileName"])
		assert.Equal(t, "application/octet-stream", body["mimeType"])
		assert.False(t, strings.HasPrefix(body["file"], "data:"))

		decoded, err := base64.StdEncoding.DecodeString(body["file"])
		require.NoError(t, err)
		assert.Equal(t, content, decoded)

		w.Write([]byte(`{"success":true,"document":{"name":"d"}}`))
	}))
	defer server.Close()

	req := relayRequest(server.URL, model.ActionUpload, map[string]string{"storeId": "s"})
	req.File = model.NewSelectedFile("blob.bin", content, "application/octet-stream")

	res := newTransport(t, KindBase64, Options{}).Send(context.Background(), req)
	require.True(t, res.Success, res.Error)
}

func TestBase64Relay_TooLarge(t *testing.T) {
	req := relayRequest("http://127.0.0.1:1", model.ActionUpload, map[string]string{"storeId": "s"})
	req.File = model.NewSelectedFile("big.bin", make([]byte, 64), "application/octet-stream")

	res := newTransport(t, KindBase64, Options{MaxUploadBytes: 16}).Send(context.Background(), req)
	assert.True(t, errors.Is(res.Err(), ErrInvalidInput))
}

func TestEncodeAttachment_RoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 2, 3, 4, 1000, 4097} {
		data := make([]byte, size)
		for i := range data {
			data[i] = byte(i * 7)
		}
		encoded, err := EncodeAttachment(data)
		require.NoError(t, err)

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		require.NoError(t, err)
		assert.Equal(t, data, decoded, "size %d", size)
	}
}

func TestStripDataURI(t *testing.T) {
	assert.Equal(t, "QUJD", StripDataURI("data:text/plain;base64,QUJD"))
	assert.Equal(t, "QUJD", StripDataURI("QUJD"))
	assert.Equal(t, "data:broken", StripDataURI("data:broken"))
}

func TestNew_UnknownKind(t *testing.T) {
	_, err := New(Kind("carrier-pigeon"), Options{})
	assert.True(t, errors.Is(err, ErrConfiguration))
}
