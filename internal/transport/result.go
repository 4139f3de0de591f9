// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/storedesk/internal/model"
)

// Failure kinds. Every failed Result carries exactly one.
var (
	// ErrConfiguration indicates a missing credential, endpoint or an
	// unusable transport setup. Nothing was sent.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidInput indicates a request rejected before dispatch.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNetwork indicates the request never produced an HTTP response.
	ErrNetwork = errors.New("network error")

	// ErrHTTPStatus indicates a non-2xx response.
	ErrHTTPStatus = errors.New("http error")

	// ErrApplication indicates a 2xx response reporting success=false.
	ErrApplication = errors.New("application error")

	// ErrMalformedResponse indicates a body that could not be decoded.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrActionMismatch indicates a create_store reply for another action.
	ErrActionMismatch = errors.New("action mismatch")
)

// Result is the normalized outcome of one action.
type Result struct {
	Success   bool             `json:"success"`
	Error     string           `json:"error,omitempty"`
	Action    string           `json:"action,omitempty"`
	Stores    []model.Store    `json:"stores,omitempty"`
	Store     *model.Store     `json:"store,omitempty"`
	Documents []model.Document `json:"documents,omitempty"`
	Document  *model.Document  `json:"document,omitempty"`
	Answer    string           `json:"answer,omitempty"`

	// Status is the HTTP status, 0 when no response was received.
	Status int `json:"-"`
	// RequestID correlates the result with log lines.
	RequestID string `json:"-"`

	kind error
}

// Kind returns the failure sentinel, or nil on success.
func (r *Result) Kind() error {
	if r == nil || r.Success {
		return nil
	}
	if r.kind == nil {
		return ErrApplication
	}
	return r.kind
}

// Err converts a failed result into a *Failure. It returns nil on success.
func (r *Result) Err() error {
	if r == nil {
		return &Failure{Kind: ErrMalformedResponse, Message: "no result"}
	}
	if r.Success {
		return nil
	}
	return &Failure{
		Action:  model.Action(r.Action),
		Kind:    r.Kind(),
		Message: r.Error,
		Status:  r.Status,
	}
}

// Failure is the error form of a failed Result.
type Failure struct {
	Action  model.Action
	Kind    error
	Message string
	Status  int
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Message != "" {
		return f.Message
	}
	return f.Kind.Error()
}

// Unwrap exposes the failure kind to errors.Is.
func (f *Failure) Unwrap() error {
	return f.Kind
}

// Fail builds a failed result.
func Fail(action model.Action, kind error, message string) *Result {
	if message == "" {
		message = kind.Error()
	}
	return &Result{Success: false, Error: message, Action: string(action), kind: kind}
}

// Failf builds a failed result with a formatted message.
func Failf(action model.Action, kind error, format string, args ...interface{}) *Result {
	return Fail(action, kind, fmt.Sprintf(format, args...))
}

// Succeed builds a successful result for action.
func Succeed(action model.Action) *Result {
	return &Result{Success: true, Action: string(action)}
}

// WithKind re-tags a result. Used by the dispatcher to report an action
// mismatch on an otherwise successful response.
func (r *Result) WithKind(kind error, message string) *Result {
	r.Success = false
	r.kind = kind
	r.Error = message
	return r
}

// =============================================================================
// WIRE DECODING
// =============================================================================

// relayEnvelope mirrors the relay response contract. success is a pointer
// so a missing flag can be told apart from false.
type relayEnvelope struct {
	Success   *bool            `json:"success"`
	Error     json.RawMessage  `json:"error"`
	Message   string           `json:"message"`
	Action    string           `json:"action"`
	Stores    []model.Store    `json:"stores"`
	Store     *model.Store     `json:"store"`
	Documents []model.Document `json:"documents"`
	Document  *model.Document  `json:"document"`
	Answer    string           `json:"answer"`
}

// errorText pulls a human message out of an "error" field that may be a
// string or an object with a message.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return strings.TrimSpace(string(raw))
}

// bodyErrorText extracts an error message from an arbitrary JSON body.
func bodyErrorText(body []byte) string {
	var env struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &env) != nil {
		return ""
	}
	if msg := errorText(env.Error); msg != "" {
		return msg
	}
	return env.Message
}

// decodeRelay converts a 2xx relay body into a Result.
func decodeRelay(action model.Action, body []byte) *Result {
	var env relayEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Failf(action, ErrMalformedResponse, "Unexpected response from relay: %v", err)
	}
	if env.Success == nil {
		return Fail(action, ErrMalformedResponse, "Unexpected response from relay: missing success flag")
	}
	if !*env.Success {
		msg := errorText(env.Error)
		if msg == "" {
			msg = env.Message
		}
		if msg == "" {
			msg = "Request failed"
		}
		res := Fail(action, ErrApplication, msg)
		if env.Action != "" {
			res.Action = env.Action
		}
		return res
	}

	return &Result{
		Success:   true,
		Action:    env.Action,
		Stores:    env.Stores,
		Store:     env.Store,
		Documents: env.Documents,
		Document:  env.Document,
		Answer:    env.Answer,
	}
}
