// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/storedesk/internal/model"
)

// Kind names a transport implementation.
type Kind string

const (
	KindJSON      Kind = "json"
	KindMultipart Kind = "multipart"
	KindBase64    Kind = "base64"
	KindDirect    Kind = "direct"
)

const (
	// MaxResponseSize is the maximum allowed response body size.
	// SECURITY: Response size limit prevents memory exhaustion attacks.
	MaxResponseSize = 10 * 1024 * 1024

	// DefaultRelayPath is appended to the endpoint by relay transports.
	DefaultRelayPath = "webhook/file-store"

	userAgent = "storedesk/1.0"
)

// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
// No client-wide timeout: uploads may legitimately take minutes, so requests
// are bounded by their context instead.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// Request is one action ready to be encoded.
type Request struct {
	Endpoint string
	APIKey   string
	Action   model.Action
	// Fields holds the action payload as flat scalars (storeId, message...).
	Fields map[string]string
	File   *model.SelectedFile
}

// Field returns a payload value or "".
func (r *Request) Field(name string) string {
	if r.Fields == nil {
		return ""
	}
	return r.Fields[name]
}

// Transport sends a request and normalizes the outcome.
type Transport interface {
	Send(ctx context.Context, req *Request) *Result
	Kind() Kind
}

// Options configures every transport.
type Options struct {
	// RelayPath is appended to the endpoint for relay transports.
	RelayPath string
	// RequestsPerSecond paces outbound requests; 0 disables pacing.
	RequestsPerSecond float64
	// MaxUploadBytes bounds files read into memory; 0 disables the bound.
	MaxUploadBytes int64
	// Model and TopK configure the direct chat call.
	Model string
	TopK  int
	// HTTPClient overrides the shared pooled client.
	HTTPClient *http.Client
	// Logger receives request lines. Nil means no logging.
	Logger *zap.Logger
}

// New returns the transport for kind.
func New(kind Kind, opts Options) (Transport, error) {
	b := newBase(opts)
	switch kind {
	case KindJSON:
		return &JSONRelay{base: b}, nil
	case KindMultipart:
		return &MultipartRelay{base: b}, nil
	case KindBase64:
		return &Base64Relay{base: b}, nil
	case KindDirect:
		return newDirect(b, opts), nil
	}
	return nil, fmt.Errorf("%w: unknown transport %q", ErrConfiguration, kind)
}

// =============================================================================
// SHARED PLUMBING
// =============================================================================

// base holds what every transport needs: the client, pacing and logging.
type base struct {
	client    *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
	relayPath string
	maxUpload int64
}

func newBase(opts Options) *base {
	b := &base{
		client:    sharedHTTPClient,
		logger:    opts.Logger,
		relayPath: strings.Trim(opts.RelayPath, "/"),
		maxUpload: opts.MaxUploadBytes,
	}
	if opts.HTTPClient != nil {
		b.client = opts.HTTPClient
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	if b.relayPath == "" {
		b.relayPath = DefaultRelayPath
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		b.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return b
}

// relayURL joins the endpoint and relay path.
func (b *base) relayURL(endpoint string) (string, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid endpoint %q", endpoint)
	}
	return u.String() + "/" + b.relayPath, nil
}

// exchange is a completed HTTP round trip.
type exchange struct {
	status int
	body   []byte
}

// do paces, sends and reads one request. A non-nil *Result means the
// exchange failed before a usable response was read.
func (b *base) do(ctx context.Context, action model.Action, req *http.Request) (*exchange, *Result) {
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", userAgent)

	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			// The request is never sent; closing the body releases a
			// streaming multipart writer blocked on the pipe.
			if req.Body != nil {
				_ = req.Body.Close()
			}
			res := networkFailure(action, req.URL, err)
			res.RequestID = requestID
			return nil, res
		}
	}

	start := time.Now()
	// CLOUD: Secure logging - only method, path and request id; never headers or bodies.
	b.logger.Debug("request",
		zap.String("component", "transport"),
		zap.String("action", string(action)),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.String("request_id", requestID),
	)

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Warn("request failed",
			zap.String("component", "transport"),
			zap.String("action", string(action)),
			zap.String("request_id", requestID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		res := networkFailure(action, req.URL, err)
		res.RequestID = requestID
		return nil, res
	}
	defer resp.Body.Close()

	body, err := readResponse(resp)
	b.logger.Info("response",
		zap.String("component", "transport"),
		zap.String("action", string(action)),
		zap.String("request_id", requestID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	if err != nil {
		res := Failf(action, ErrMalformedResponse, "Failed to read response: %v", err)
		res.Status = resp.StatusCode
		res.RequestID = requestID
		return nil, res
	}

	return &exchange{status: resp.StatusCode, body: body}, nil
}

// readResponse reads the response body with size limits to prevent memory exhaustion.
//
// SECURITY: Response size limit prevents memory exhaustion attacks.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}

// statusFailure builds the failure for a non-2xx response.
func statusFailure(action model.Action, status int, body []byte) *Result {
	msg := bodyErrorText(body)
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
	}
	res := Fail(action, ErrHTTPStatus, msg)
	res.Status = status
	return res
}

// networkFailure builds the failure for a request that got no response.
func networkFailure(action model.Action, target *url.URL, err error) *Result {
	host := ""
	if target != nil {
		host = target.Host
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Failf(action, ErrNetwork, "Request to %s timed out", host)
	case errors.Is(err, context.Canceled):
		return Failf(action, ErrNetwork, "Request to %s was cancelled", host)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Failf(action, ErrNetwork,
			"Network error: cannot resolve %s. Check the endpoint URL and your connection.", host)
	}
	return Failf(action, ErrNetwork,
		"Network error: cannot reach %s (%v). Check the endpoint URL and your connection; "+
			"the server may also be rejecting cross-origin (CORS) or unauthenticated requests.", host, unwrapURLError(err))
}

func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}

func isSuccessStatus(status int) bool {
	return status >= 200 && status < 300
}
