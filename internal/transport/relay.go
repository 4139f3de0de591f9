// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"

	"github.com/jeranaias/storedesk/internal/model"
)

// envelope builds the JSON body shared by all relay shapes.
func envelope(req *Request) map[string]interface{} {
	body := make(map[string]interface{}, len(req.Fields)+2)
	for k, v := range req.Fields {
		body[k] = v
	}
	body["action"] = string(req.Action)
	body["apiKey"] = req.APIKey
	return body
}

// postJSON sends a JSON envelope to the relay and decodes the reply.
func (b *base) postJSON(ctx context.Context, req *Request, body map[string]interface{}) *Result {
	target, err := b.relayURL(req.Endpoint)
	if err != nil {
		return Fail(req.Action, ErrConfiguration, err.Error())
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Failf(req.Action, ErrInvalidInput, "failed to encode request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return Failf(req.Action, ErrConfiguration, "failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return b.finishRelay(ctx, req.Action, httpReq)
}

// finishRelay executes the request and applies the relay response contract.
func (b *base) finishRelay(ctx context.Context, action model.Action, httpReq *http.Request) *Result {
	ex, failed := b.do(ctx, action, httpReq)
	if failed != nil {
		return failed
	}
	var res *Result
	if !isSuccessStatus(ex.status) {
		res = statusFailure(action, ex.status, ex.body)
	} else {
		res = decodeRelay(action, ex.body)
	}
	res.Status = ex.status
	res.RequestID = httpReq.Header.Get("X-Request-ID")
	return res
}

// =============================================================================
// JSON RELAY
// =============================================================================

// JSONRelay posts every action as a JSON envelope. It cannot carry files.
type JSONRelay struct {
	*base
}

// Kind implements Transport.
func (t *JSONRelay) Kind() Kind { return KindJSON }

// Send implements Transport.
func (t *JSONRelay) Send(ctx context.Context, req *Request) *Result {
	if req.File != nil {
		return Fail(req.Action, ErrConfiguration,
			"The json transport cannot send files; set relay.transport to multipart or base64")
	}
	return t.postJSON(ctx, req, envelope(req))
}

// =============================================================================
// MULTIPART RELAY
// =============================================================================

// MultipartRelay sends multipart/form-data when a file is attached and a
// JSON envelope otherwise.
type MultipartRelay struct {
	*base
}

// Kind implements Transport.
func (t *MultipartRelay) Kind() Kind { return KindMultipart }

// Send implements Transport.
func (t *MultipartRelay) Send(ctx context.Context, req *Request) *Result {
	if req.File == nil {
		return t.postJSON(ctx, req, envelope(req))
	}

	target, err := t.relayURL(req.Endpoint)
	if err != nil {
		return Fail(req.Action, ErrConfiguration, err.Error())
	}
	if t.maxUpload > 0 && req.File.Size > t.maxUpload {
		return Failf(req.Action, ErrInvalidInput, "%s: %s", model.ErrFileTooLarge, req.File.Name)
	}

	fields := map[string]string{
		"action": string(req.Action),
		"apiKey": req.APIKey,
	}
	for k, v := range req.Fields {
		fields[k] = v
	}

	body, contentType := streamMultipart(fields, "file", req.File)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		body.Close()
		return Failf(req.Action, ErrConfiguration, "failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	return t.finishRelay(ctx, req.Action, httpReq)
}

// streamMultipart writes fields followed by the file part into a pipe so the
// file is never buffered whole. Fields are written in sorted order.
func streamMultipart(fields map[string]string, fileField string, file *model.SelectedFile) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		err := writeMultipart(mw, fields, fileField, file)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	return pr, mw.FormDataContentType()
}

func writeMultipart(mw *multipart.Writer, fields map[string]string, fileField string, file *model.SelectedFile) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return err
		}
	}

	if file == nil {
		return nil
	}
	return writeFilePart(mw, fileField, file)
}

// writeFilePart copies file into a form-data part carrying its MIME type.
func writeFilePart(mw *multipart.Writer, field string, file *model.SelectedFile) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(field), escapeQuotes(file.Name)))
	mimeType := file.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(part, rc)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// =============================================================================
// BASE64 RELAY
// =============================================================================

// ErrEncodingMismatch indicates that base64 round-tripping changed the
// attachment length.
var ErrEncodingMismatch = errors.New("encoded attachment does not match file size")

// Base64Relay always sends JSON; attachments travel as base64 strings.
type Base64Relay struct {
	*base
}

// Kind implements Transport.
func (t *Base64Relay) Kind() Kind { return KindBase64 }

// Send implements Transport.
func (t *Base64Relay) Send(ctx context.Context, req *Request) *Result {
	body := envelope(req)

	if req.File != nil {
		data, err := req.File.ReadAll(t.maxUpload)
		if err != nil {
			if errors.Is(err, model.ErrFileTooLarge) {
				return Fail(req.Action, ErrInvalidInput, err.Error())
			}
			return Failf(req.Action, ErrInvalidInput, "cannot read %s: %v", req.File.Name, err)
		}
		encoded, err := EncodeAttachment(data)
		if err != nil {
			return Fail(req.Action, ErrInvalidInput, err.Error())
		}
		body["file"] = encoded
		body["fileName"] = req.File.Name
		body["mimeType"] = req.File.MimeType
	}

	return t.postJSON(ctx, req, body)
}

// EncodeAttachment base64-encodes data for embedding in JSON. Any data-URI
// prefix is stripped and the result is decoded again to confirm it still
// describes exactly len(data) bytes.
func EncodeAttachment(data []byte) (string, error) {
	encoded := StripDataURI(base64.StdEncoding.EncodeToString(data))

	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncodingMismatch, err)
	}
	if len(decoded) != len(data) {
		return "", fmt.Errorf("%w: %d != %d bytes", ErrEncodingMismatch, len(decoded), len(data))
	}
	return encoded, nil
}

// StripDataURI removes a "data:<mime>;base64," prefix if present.
func StripDataURI(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, ","); i >= 0 {
		return s[i+1:]
	}
	return s
}
