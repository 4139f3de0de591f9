// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Unified error handling for storedesk commands.
//
// STANDARDIZED PATTERN:
//   - Handlers always return errors (never just print and return nil)
//   - main decides how to display them and which exit code to use
//
// ERROR HANDLING: Errors must not be silently ignored

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/storedesk/internal/console"
	"github.com/jeranaias/storedesk/internal/credentials"
	"github.com/jeranaias/storedesk/internal/transport"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a missing credential or endpoint
	ExitConfigError = 3
	// ExitNetworkError indicates the request never got an HTTP response
	ExitNetworkError = 5
	// ExitBackendError indicates the backend answered with a failure
	ExitBackendError = 6
	// ExitCancelled indicates the user declined a confirmation
	ExitCancelled = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError reports a malformed command line.
type UsageError struct {
	Command string // Command that was invoked (e.g., "stores")
	Reason  string // What is wrong
	Hint    string // Example of valid usage (optional)
}

func (e *UsageError) Error() string {
	msg := e.Reason
	if e.Command != "" {
		msg = e.Command + ": " + e.Reason
	}
	if e.Hint != "" {
		msg += "\nUsage: " + e.Hint
	}
	return msg
}

// ErrMissingArgument creates a usage error for a missing positional.
func ErrMissingArgument(command, argName, usage string) error {
	return &UsageError{Command: command, Reason: "missing " + argName, Hint: usage}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err in a consistent format. In JSON mode the error is
// written as the JSONResponse envelope.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		resp := NewJSONErrorResponse(command, err)
		resp.ErrorType = errorType(err)
		_ = resp.Print(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// errorType names the failure category for machine consumers.
func errorType(err error) string {
	var usage *UsageError
	switch {
	case errors.As(err, &usage):
		return "usage_error"
	case errors.Is(err, transport.ErrConfiguration),
		errors.Is(err, credentials.ErrNoCredential),
		errors.Is(err, credentials.ErrNoEndpoint):
		return "configuration_error"
	case errors.Is(err, transport.ErrInvalidInput):
		return "input_error"
	case errors.Is(err, transport.ErrNetwork):
		return "network_error"
	case errors.Is(err, transport.ErrHTTPStatus):
		return "http_error"
	case errors.Is(err, transport.ErrApplication), errors.Is(err, transport.ErrActionMismatch):
		return "application_error"
	case errors.Is(err, transport.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, console.ErrCancelled):
		return "cancelled"
	}
	return "generic_error"
}

// GetExitCode determines the appropriate exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	switch {
	case errors.As(err, &usage), errors.Is(err, transport.ErrInvalidInput),
		errors.Is(err, console.ErrEmptyName), errors.Is(err, console.ErrNoSelection),
		errors.Is(err, console.ErrEmptyMessage):
		return ExitUsageError
	case errors.Is(err, transport.ErrConfiguration),
		errors.Is(err, credentials.ErrNoCredential),
		errors.Is(err, credentials.ErrNoEndpoint):
		return ExitConfigError
	case errors.Is(err, transport.ErrNetwork):
		return ExitNetworkError
	case errors.Is(err, transport.ErrHTTPStatus),
		errors.Is(err, transport.ErrApplication),
		errors.Is(err, transport.ErrMalformedResponse),
		errors.Is(err, transport.ErrActionMismatch):
		return ExitBackendError
	case errors.Is(err, console.ErrCancelled):
		return ExitCancelled
	}
	return ExitGeneralError
}

// marshalIndent is json.MarshalIndent with the package's indentation.
func marshalIndent(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
