// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credentials

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/storedesk/internal/config"
)

var (
	// ErrNoCredential indicates no API key has been entered.
	ErrNoCredential = errors.New("no API key configured")

	// ErrNoEndpoint indicates neither a session override nor a build-time
	// default endpoint is available.
	ErrNoEndpoint = errors.New("no endpoint configured")
)

// EndpointSource records where a resolved endpoint came from.
type EndpointSource string

const (
	SourceSession EndpointSource = "session"
	SourceDefault EndpointSource = "default"
	SourceNone    EndpointSource = "none"
)

// Resolved is a snapshot of the active credential and endpoint.
type Resolved struct {
	APIKey         string
	Endpoint       string
	EndpointSource EndpointSource
}

// Resolver reads the credential and endpoint from a Cell on every call.
type Resolver struct {
	cell     Cell
	fallback func() string
}

// NewResolver creates a resolver over cell. fallback supplies the build-time
// or configured default endpoint and may be nil.
func NewResolver(cell Cell, fallback func() string) *Resolver {
	if fallback == nil {
		fallback = func() string { return "" }
	}
	return &Resolver{cell: cell, fallback: fallback}
}

// Credential returns the API key. Whitespace-only values count as absent.
func (r *Resolver) Credential() (string, error) {
	v, ok, err := r.cell.Get(KeyCredential)
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	v = strings.TrimSpace(v)
	if !ok || v == "" {
		return "", ErrNoCredential
	}
	return v, nil
}

// HasCredential reports whether a usable API key is stored.
func (r *Resolver) HasCredential() bool {
	_, err := r.Credential()
	return err == nil
}

// Endpoint returns the session override, else the fallback.
func (r *Resolver) Endpoint() (string, EndpointSource, error) {
	v, ok, err := r.cell.Get(KeyEndpoint)
	if err != nil {
		return "", SourceNone, fmt.Errorf("failed to read endpoint: %w", err)
	}
	if v = strings.TrimSpace(v); ok && v != "" {
		return v, SourceSession, nil
	}
	if v := strings.TrimSpace(r.fallback()); v != "" {
		return v, SourceDefault, nil
	}
	return "", SourceNone, ErrNoEndpoint
}

// Resolve returns both values, or the first configuration error.
func (r *Resolver) Resolve() (Resolved, error) {
	key, err := r.Credential()
	if err != nil {
		return Resolved{}, err
	}
	endpoint, source, err := r.Endpoint()
	if err != nil {
		return Resolved{}, err
	}
	return Resolved{APIKey: key, Endpoint: endpoint, EndpointSource: source}, nil
}

// CheckEndpoint reports ErrNoEndpoint when no endpoint can be resolved. It is
// used at startup to show the blocking configuration notice.
func (r *Resolver) CheckEndpoint() error {
	_, _, err := r.Endpoint()
	return err
}

// SetCredential stores a new API key.
func (r *Resolver) SetCredential(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}
	return r.cell.Set(KeyCredential, apiKey)
}

// ClearCredential removes the API key. The endpoint override is kept.
func (r *Resolver) ClearCredential() error {
	return r.cell.Delete(KeyCredential)
}

// SetEndpoint stores a session endpoint override.
func (r *Resolver) SetEndpoint(endpoint string) error {
	endpoint = strings.TrimSpace(endpoint)
	if err := config.ValidateEndpoint(endpoint); err != nil {
		return err
	}
	return r.cell.Set(KeyEndpoint, strings.TrimRight(endpoint, "/"))
}

// ClearEndpoint removes the session override so the fallback applies.
func (r *Resolver) ClearEndpoint() error {
	return r.cell.Delete(KeyEndpoint)
}
