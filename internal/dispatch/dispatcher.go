// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/storedesk/internal/credentials"
	"github.com/jeranaias/storedesk/internal/model"
	"github.com/jeranaias/storedesk/internal/transport"
)

// Payload keys understood by the transports.
const (
	FieldStoreID     = "storeId"
	FieldDocumentID  = "documentId"
	FieldDisplayName = "displayName"
	FieldMessage     = "message"
)

// Payload is the flat action payload.
type Payload map[string]string

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// =============================================================================
// PER-ACTION INPUT
// =============================================================================

type createStoreInput struct {
	DisplayName string `json:"displayName" validate:"required,max=512"`
}

type storeInput struct {
	StoreID string `json:"storeId" validate:"required"`
}

type deleteDocInput struct {
	StoreID    string `json:"storeId" validate:"required"`
	DocumentID string `json:"documentId" validate:"required"`
}

type chatInput struct {
	StoreID string `json:"storeId" validate:"required"`
	Message string `json:"message" validate:"required"`
}

type uploadInput struct {
	StoreID string              `json:"storeId" validate:"required"`
	File    *model.SelectedFile `json:"file" validate:"required"`
}

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher maps actions onto a transport.
type Dispatcher struct {
	resolver  *credentials.Resolver
	transport transport.Transport
	logger    *zap.Logger
	timeout   time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithTimeout bounds each call. Zero or negative means no bound.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// New creates a dispatcher.
func New(resolver *credentials.Resolver, tr transport.Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver:  resolver,
		transport: tr,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Transport returns the active transport.
func (d *Dispatcher) Transport() transport.Transport {
	return d.transport
}

// Call dispatches one action. It never returns nil.
func (d *Dispatcher) Call(ctx context.Context, action model.Action, data Payload, file *model.SelectedFile) *transport.Result {
	if !action.Valid() {
		return transport.Failf(action, transport.ErrInvalidInput, "Unknown action: %s", action)
	}

	fields := normalize(data)
	if res := checkInput(action, fields, file); res != nil {
		d.logger.Debug("input rejected",
			zap.String("action", action.String()),
			zap.String("reason", res.Error))
		return res
	}

	resolved, err := d.resolver.Resolve()
	if err != nil {
		d.logger.Warn("configuration error",
			zap.String("action", action.String()),
			zap.Error(err))
		return transport.Fail(action, transport.ErrConfiguration, configMessage(err))
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	req := &transport.Request{
		Endpoint: resolved.Endpoint,
		APIKey:   resolved.APIKey,
		Action:   action,
		Fields:   fields,
		File:     file,
	}
	res := d.transport.Send(ctx, req)
	if res == nil {
		return transport.Fail(action, transport.ErrMalformedResponse, "No response from transport")
	}

	// Only create_store replies are checked against the requested action.
	if action == model.ActionCreateStore && res.Success && res.Action != "" && res.Action != action.String() {
		d.logger.Warn("action mismatch",
			zap.String("requested", action.String()),
			zap.String("received", res.Action))
		return res.WithKind(transport.ErrActionMismatch,
			fmt.Sprintf("Unexpected response: expected %s, got %s", action, res.Action))
	}
	if res.Action == "" {
		res.Action = action.String()
	}

	if !res.Success {
		d.logger.Info("action failed",
			zap.String("action", action.String()),
			zap.String("request_id", res.RequestID),
			zap.Int("status", res.Status),
			zap.String("error", res.Error))
	}
	return res
}

// normalize trims every value and folds display names and messages to NFC.
func normalize(data Payload) map[string]string {
	fields := make(map[string]string, len(data))
	for k, v := range data {
		v = strings.TrimSpace(v)
		switch k {
		case FieldDisplayName, FieldMessage:
			v = norm.NFC.String(v)
		}
		fields[k] = v
	}
	return fields
}

// checkInput returns a failed result when the payload misses a required
// field for action, nil otherwise.
func checkInput(action model.Action, f map[string]string, file *model.SelectedFile) *transport.Result {
	var input interface{}
	switch action {
	case model.ActionListStores:
		return nil
	case model.ActionCreateStore:
		input = createStoreInput{DisplayName: f[FieldDisplayName]}
	case model.ActionListDocs, model.ActionDeleteStore:
		input = storeInput{StoreID: f[FieldStoreID]}
	case model.ActionDeleteDoc:
		input = deleteDocInput{StoreID: f[FieldStoreID], DocumentID: f[FieldDocumentID]}
	case model.ActionChat:
		input = chatInput{StoreID: f[FieldStoreID], Message: f[FieldMessage]}
	case model.ActionUpload:
		input = uploadInput{StoreID: f[FieldStoreID], File: file}
	}

	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return transport.Fail(action, transport.ErrInvalidInput, err.Error())
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, fieldMessage(e))
	}
	return transport.Fail(action, transport.ErrInvalidInput, strings.Join(msgs, "; "))
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		if e.Field() == "file" {
			return "No file selected"
		}
		return e.Field() + " is required"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	default:
		return e.Field() + " failed validation on " + e.Tag()
	}
}

// configMessage turns a resolver error into user-facing text.
func configMessage(err error) string {
	switch {
	case errors.Is(err, credentials.ErrNoCredential):
		return "No API key configured. Log in first."
	case errors.Is(err, credentials.ErrNoEndpoint):
		return "No endpoint configured. Set one with 'storedesk endpoint set <url>' or STOREDESK_ENDPOINT."
	default:
		return err.Error()
	}
}

// =============================================================================
// TYPED HELPERS
// =============================================================================

// ListStores returns every store visible to the credential.
func (d *Dispatcher) ListStores(ctx context.Context) ([]model.Store, error) {
	res := d.Call(ctx, model.ActionListStores, nil, nil)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Stores, nil
}

// CreateStore creates a store and returns it. The store may be nil when the
// backend does not echo it.
func (d *Dispatcher) CreateStore(ctx context.Context, displayName string) (*model.Store, error) {
	res := d.Call(ctx, model.ActionCreateStore, Payload{FieldDisplayName: displayName}, nil)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Store, nil
}

// Upload sends file into a store.
func (d *Dispatcher) Upload(ctx context.Context, storeID string, file *model.SelectedFile) (*model.Document, error) {
	res := d.Call(ctx, model.ActionUpload, Payload{FieldStoreID: storeID}, file)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Document, nil
}

// ListDocs returns the documents of a store.
func (d *Dispatcher) ListDocs(ctx context.Context, storeID string) ([]model.Document, error) {
	res := d.Call(ctx, model.ActionListDocs, Payload{FieldStoreID: storeID}, nil)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res.Documents, nil
}

// DeleteStore deletes a store and its documents.
func (d *Dispatcher) DeleteStore(ctx context.Context, storeID string) error {
	return d.Call(ctx, model.ActionDeleteStore, Payload{FieldStoreID: storeID}, nil).Err()
}

// DeleteDoc deletes one document.
func (d *Dispatcher) DeleteDoc(ctx context.Context, storeID, documentID string) error {
	return d.Call(ctx, model.ActionDeleteDoc, Payload{FieldStoreID: storeID, FieldDocumentID: documentID}, nil).Err()
}

// Chat asks a question grounded on a store and returns the answer text.
func (d *Dispatcher) Chat(ctx context.Context, storeID, message string) (string, error) {
	res := d.Call(ctx, model.ActionChat, Payload{FieldStoreID: storeID, FieldMessage: message}, nil)
	if err := res.Err(); err != nil {
		return "", err
	}
	return res.Answer, nil
}
