// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Unified confirmation handling for destructive commands.
//
// USABILITY: TTY detection for proper terminal handling
//
// A single pattern for every destructive command:
//  1. If --confirm flag is present, proceed without prompting
//  2. If --json mode, require --confirm flag (no interactive prompts in JSON mode)
//  3. If stdin is not a TTY, require --confirm flag (can't prompt)
//  4. Otherwise, show interactive prompt for confirmation

package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/storedesk/internal/console"
)

// ConfirmationOptions carries the flags that decide whether to prompt.
type ConfirmationOptions struct {
	// ConfirmFlag indicates if --confirm flag was passed (skip interactive prompt)
	ConfirmFlag bool
	// JSONMode indicates if --json flag was passed (requires ConfirmFlag)
	JSONMode bool
}

// optionsFrom builds ConfirmationOptions from parsed args.
func optionsFrom(args Args) ConfirmationOptions {
	return ConfirmationOptions{ConfirmFlag: args.Confirm, JSONMode: args.JSON}
}

// RequireConfirmation checks if the user has confirmed a destructive action.
// prompt is shown as-is followed by "[y/N]".
//
// Returns:
//
//	bool  - true if confirmed, false if declined
//	error - non-nil if confirmation is required but cannot be asked
func RequireConfirmation(env *Env, prompt string, opts ConfirmationOptions) (bool, error) {
	if opts.ConfirmFlag {
		return true, nil
	}

	if opts.JSONMode {
		return false, &UsageError{Reason: "confirmation required: use --confirm for destructive actions in JSON mode"}
	}

	// Can't prompt if stdin is not a TTY (e.g., piped input, cron jobs, CI/CD)
	if !env.Interactive {
		return false, &UsageError{Reason: "confirmation required but stdin is not a terminal; use --confirm"}
	}

	fmt.Fprintln(env.Err)
	fmt.Fprintf(env.Err, "%s [y/N]: ", WarningStyle.Render(prompt))

	input, err := env.readLine()
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}

	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}

// promptConfirmer adapts RequireConfirmation to console.Confirmer. The
// controller only sees yes or no, so the reason a prompt could not be
// shown is kept in err for the command to return.
type promptConfirmer struct {
	env  *Env
	opts ConfirmationOptions
	err  error
}

func (c *promptConfirmer) Confirm(prompt string) bool {
	ok, err := RequireConfirmation(c.env, prompt, c.opts)
	if err != nil {
		c.err = err
		return false
	}
	return ok
}

// result folds a controller error and a prompt failure into one error.
func (c *promptConfirmer) result(err error) error {
	if c.err != nil && errors.Is(err, console.ErrCancelled) {
		return c.err
	}
	return err
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

// notifier prints controller notifications to stderr so stdout stays clean
// for data and JSON.
func notifier(env *Env, args Args) console.Notifier {
	return console.NotifierFunc(func(message string, severity console.Severity) {
		if args.Quiet && severity != console.SeverityError {
			return
		}
		// Errors are printed once by main.
		if severity == console.SeverityError {
			return
		}
		style, tag := severityStyle(severity)
		fmt.Fprintf(env.Err, "%s %s\n", style.Render(tag), message)
	})
}
