// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/jeranaias/storedesk/internal/model"
)

// =============================================================================
// DIRECT PROVIDER TRANSPORT
// =============================================================================

// Direct defaults.
const (
	DefaultDirectModel = "gemini-2.0-flash"
	DefaultDirectTopK  = 5

	// maxListPages bounds store listing pagination.
	maxListPages = 50

	// NoAnswer is returned when a chat response carries no text.
	NoAnswer = "No response"
)

// Direct calls the provider's file search REST API without a relay. The
// endpoint is the API base (".../v1beta"); uploads go to the matching
// "/upload" base on the same host.
type Direct struct {
	*base
	model string
	topK  int
}

func newDirect(b *base, opts Options) *Direct {
	d := &Direct{base: b, model: opts.Model, topK: opts.TopK}
	if d.model == "" {
		d.model = DefaultDirectModel
	}
	if d.topK <= 0 {
		d.topK = DefaultDirectTopK
	}
	return d
}

// Kind implements Transport.
func (d *Direct) Kind() Kind { return KindDirect }

// Send implements Transport.
func (d *Direct) Send(ctx context.Context, req *Request) *Result {
	apiBase := strings.TrimRight(req.Endpoint, "/")
	if u, err := url.Parse(apiBase); err != nil || u.Scheme == "" || u.Host == "" {
		return Failf(req.Action, ErrConfiguration, "invalid endpoint %q", req.Endpoint)
	}

	switch req.Action {
	case model.ActionListStores:
		return d.listStores(ctx, req, apiBase)
	case model.ActionCreateStore:
		return d.createStore(ctx, req, apiBase)
	case model.ActionDeleteStore:
		return d.deleteResource(ctx, req, apiBase+"/"+resourcePath(req.Field("storeId")))
	case model.ActionListDocs:
		return d.listDocs(ctx, req, apiBase)
	case model.ActionDeleteDoc:
		return d.deleteResource(ctx, req, documentURL(apiBase, req.Field("storeId"), req.Field("documentId")))
	case model.ActionUpload:
		return d.upload(ctx, req, apiBase)
	case model.ActionChat:
		return d.chat(ctx, req, apiBase)
	}
	return Failf(req.Action, ErrInvalidInput, "unsupported action %q", req.Action)
}

// documentURL accepts either a bare document id or a full resource name.
func documentURL(apiBase, storeID, documentID string) string {
	if strings.Contains(documentID, "/documents/") {
		return apiBase + "/" + resourcePath(documentID)
	}
	return apiBase + "/" + resourcePath(storeID) + "/documents/" + model.EncodeID(documentID)
}

// resourcePath escapes each "/"-separated segment of a resource name so
// reserved characters in an id stay inside its path segment.
func resourcePath(name string) string {
	segments := strings.Split(name, "/")
	for i, seg := range segments {
		segments[i] = model.EncodeID(seg)
	}
	return strings.Join(segments, "/")
}

// uploadBase maps ".../v1beta" to ".../upload/v1beta" on the same host.
func uploadBase(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil {
		return apiBase
	}
	if !strings.HasPrefix(u.Path, "/upload/") {
		u.Path = "/upload" + u.Path
	}
	return u.String()
}

// call performs one provider request and decodes a 2xx JSON body into out.
func (d *Direct) call(ctx context.Context, req *Request, method, target string, body io.Reader, contentType string, out interface{}) *Result {
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		if c, ok := body.(io.Closer); ok {
			_ = c.Close()
		}
		return Failf(req.Action, ErrConfiguration, "failed to create request: %v", err)
	}
	httpReq.Header.Set("x-goog-api-key", req.APIKey)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Action == model.ActionUpload {
		httpReq.Header.Set("X-Goog-Upload-Protocol", "multipart")
	}

	ex, failed := d.do(ctx, req.Action, httpReq)
	if failed != nil {
		return failed
	}
	if !isSuccessStatus(ex.status) {
		res := statusFailure(req.Action, ex.status, ex.body)
		res.RequestID = httpReq.Header.Get("X-Request-ID")
		return res
	}

	if out != nil && len(bytes.TrimSpace(ex.body)) > 0 {
		if err := json.Unmarshal(ex.body, out); err != nil {
			res := Failf(req.Action, ErrMalformedResponse, "Unexpected response from provider: %v", err)
			res.Status = ex.status
			return res
		}
	}

	res := Succeed(req.Action)
	res.Status = ex.status
	res.RequestID = httpReq.Header.Get("X-Request-ID")
	return res
}

func (d *Direct) listStores(ctx context.Context, req *Request, apiBase string) *Result {
	var (
		stores []model.Store
		last   *Result
		token  string
	)
	for page := 0; page < maxListPages; page++ {
		target := apiBase + "/fileSearchStores?pageSize=20"
		if token != "" {
			target += "&pageToken=" + url.QueryEscape(token)
		}

		var body struct {
			FileSearchStores []model.Store `json:"fileSearchStores"`
			NextPageToken    string        `json:"nextPageToken"`
		}
		last = d.call(ctx, req, http.MethodGet, target, nil, "", &body)
		if !last.Success {
			return last
		}
		stores = append(stores, body.FileSearchStores...)
		if body.NextPageToken == "" {
			break
		}
		token = body.NextPageToken
	}
	last.Stores = stores
	if last.Stores == nil {
		last.Stores = []model.Store{}
	}
	return last
}

func (d *Direct) createStore(ctx context.Context, req *Request, apiBase string) *Result {
	payload, _ := json.Marshal(map[string]string{"displayName": req.Field("displayName")})

	var store model.Store
	res := d.call(ctx, req, http.MethodPost, apiBase+"/fileSearchStores", bytes.NewReader(payload), "application/json", &store)
	if res.Success {
		res.Store = &store
	}
	return res
}

func (d *Direct) deleteResource(ctx context.Context, req *Request, target string) *Result {
	return d.call(ctx, req, http.MethodDelete, target+"?force=true", nil, "", nil)
}

func (d *Direct) listDocs(ctx context.Context, req *Request, apiBase string) *Result {
	var body struct {
		Documents []model.Document `json:"documents"`
	}
	res := d.call(ctx, req, http.MethodGet, apiBase+"/"+resourcePath(req.Field("storeId"))+"/documents", nil, "", &body)
	if res.Success {
		res.Documents = body.Documents
		if res.Documents == nil {
			res.Documents = []model.Document{}
		}
	}
	return res
}

func (d *Direct) upload(ctx context.Context, req *Request, apiBase string) *Result {
	if req.File == nil {
		return Fail(req.Action, ErrInvalidInput, "no file selected")
	}
	if d.maxUpload > 0 && req.File.Size > d.maxUpload {
		return Failf(req.Action, ErrInvalidInput, "%s: %s", model.ErrFileTooLarge, req.File.Name)
	}

	target := uploadBase(apiBase) + "/" + resourcePath(req.Field("storeId")) + ":uploadToFileSearchStore"

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		err := writeUploadParts(mw, req.File)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	// The upload reply is a long-running operation; its response, when
	// present, is the created document.
	var op struct {
		Name     string          `json:"name"`
		Done     bool            `json:"done"`
		Response *model.Document `json:"response"`
	}
	res := d.call(ctx, req, http.MethodPost, target, pr, mw.FormDataContentType(), &op)
	pr.Close()
	if res.Success {
		doc := model.Document{Name: op.Name, DisplayName: req.File.Name, MimeType: req.File.MimeType}
		if op.Response != nil && op.Response.Name != "" {
			doc = *op.Response
		}
		res.Document = &doc
	}
	return res
}

func writeUploadParts(mw *multipart.Writer, file *model.SelectedFile) error {
	meta, err := json.Marshal(map[string]string{"displayName": file.Name})
	if err != nil {
		return err
	}
	if err := mw.WriteField("metadata", string(meta)); err != nil {
		return err
	}
	return writeFilePart(mw, "file", file)
}

// generateRequest mirrors the provider's generateContent body with the file
// search tool attached.
type generateRequest struct {
	Contents []content `json:"contents"`
	Tools    []tool    `json:"tools"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text,omitempty"`
}

type tool struct {
	FileSearch fileSearch `json:"fileSearch"`
}

type fileSearch struct {
	FileSearchStoreNames []string `json:"fileSearchStoreNames"`
	TopK                 int      `json:"topK,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// storeResourceName qualifies a bare store id.
func storeResourceName(storeID string) string {
	if strings.HasPrefix(storeID, "fileSearchStores/") {
		return storeID
	}
	return "fileSearchStores/" + storeID
}

func (d *Direct) chat(ctx context.Context, req *Request, apiBase string) *Result {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Field("message")}}}},
		Tools: []tool{{FileSearch: fileSearch{
			FileSearchStoreNames: []string{storeResourceName(req.Field("storeId"))},
			TopK:                 d.topK,
		}}},
	})
	if err != nil {
		return Failf(req.Action, ErrInvalidInput, "failed to encode request: %v", err)
	}

	target := fmt.Sprintf("%s/models/%s:generateContent", apiBase, d.model)
	var gen generateResponse
	res := d.call(ctx, req, http.MethodPost, target, bytes.NewReader(payload), "application/json", &gen)
	if !res.Success {
		return res
	}

	var sb strings.Builder
	if len(gen.Candidates) > 0 {
		for _, p := range gen.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
	}
	res.Answer = sb.String()
	if res.Answer == "" {
		res.Answer = NoAnswer
	}
	return res
}
