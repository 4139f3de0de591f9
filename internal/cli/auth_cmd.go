// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - login, logout and endpoint commands.

package cli

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/storedesk/internal/credentials"
)

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

// LoginData is the JSON shape of login.
type LoginData struct {
	LoggedIn bool   `json:"logged_in"`
	Key      string `json:"key"`
	Endpoint string `json:"endpoint,omitempty"`
}

// HandleLogin saves an API key. The key comes from --key, or is read
// without echo from the terminal, or as one line from piped stdin.
func HandleLogin(env *Env, args Args) error {
	key := args.Parser.Flag("key")
	if key == "" {
		var err error
		key, err = readKey(env, args)
		if err != nil {
			return err
		}
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return &UsageError{Command: "login", Reason: "API key cannot be empty", Hint: "storedesk login [--key KEY]"}
	}

	if err := env.Resolver.SetCredential(key); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	env.Logger.Info("credential saved")

	endpoint, _, epErr := env.Resolver.Endpoint()
	data := LoginData{LoggedIn: true, Key: maskKey(key), Endpoint: endpoint}
	if args.JSON {
		return NewJSONResponse("login", data).Print(env.Out)
	}

	env.printf("%s Logged in with key %s\n", SuccessStyle.Render("[OK]"), data.Key)
	if errors.Is(epErr, credentials.ErrNoEndpoint) {
		fmt.Fprintf(env.Err, "%s No endpoint configured yet. Run 'storedesk endpoint set <url>'.\n", WarningStyle.Render("[WARN]"))
	}
	return nil
}

func readKey(env *Env, args Args) (string, error) {
	if args.JSON && env.Interactive {
		return "", &UsageError{Command: "login", Reason: "use --key in JSON mode"}
	}
	if env.Interactive {
		fmt.Fprint(env.Err, "API key: ")
	}
	if env.readSecret != nil {
		return env.readSecret()
	}
	line, err := env.readLine()
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return line, nil
}

// HandleLogout removes the saved API key. The endpoint override is kept.
func HandleLogout(env *Env, args Args) error {
	if err := env.Resolver.ClearCredential(); err != nil {
		return fmt.Errorf("failed to remove API key: %w", err)
	}
	env.Logger.Info("credential cleared")
	if args.JSON {
		return NewJSONResponse("logout", map[string]bool{"logged_in": false}).Print(env.Out)
	}
	env.printf("%s Logged out\n", SuccessStyle.Render("[OK]"))
	return nil
}

// maskKey shows only the ends of a key.
// SECURITY: keys are never printed in full.
func maskKey(key string) string {
	if len(key) <= 12 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// =============================================================================
// ENDPOINT
// =============================================================================

// EndpointData is the JSON shape of endpoint show.
type EndpointData struct {
	Endpoint string `json:"endpoint"`
	Source   string `json:"source"`
}

// HandleEndpoint handles "endpoint show|set|clear".
func HandleEndpoint(env *Env, args Args) error {
	switch args.Subcommand {
	case "", "show":
		return endpointShow(env, args)
	case "set":
		url := args.Parser.Positional(1)
		if url == "" {
			return ErrMissingArgument("endpoint set", "url", "storedesk endpoint set <url>")
		}
		if err := env.Resolver.SetEndpoint(url); err != nil {
			return &UsageError{Command: "endpoint set", Reason: err.Error()}
		}
		env.Logger.Info("endpoint override saved", zap.String("endpoint", url))
		return endpointShow(env, args)
	case "clear":
		if err := env.Resolver.ClearEndpoint(); err != nil {
			return fmt.Errorf("failed to clear endpoint: %w", err)
		}
		env.Logger.Info("endpoint override cleared")
		if !args.JSON {
			env.printf("%s Endpoint override cleared\n", SuccessStyle.Render("[OK]"))
		}
		return endpointShow(env, Args{JSON: args.JSON, Quiet: true, Parser: args.Parser})
	}
	return &UsageError{Command: "endpoint", Reason: "unknown subcommand " + args.Subcommand, Hint: "storedesk endpoint show|set|clear"}
}

func endpointShow(env *Env, args Args) error {
	endpoint, source, err := env.Resolver.Endpoint()
	if err != nil {
		if errors.Is(err, credentials.ErrNoEndpoint) && args.Quiet {
			return nil
		}
		return err
	}
	if args.JSON {
		return NewJSONResponse("endpoint", EndpointData{Endpoint: endpoint, Source: string(source)}).Print(env.Out)
	}
	env.printf("%s%s\n", RenderLabel("Endpoint"), endpoint)
	env.printf("%s%s\n", RenderLabel("Source"), source)
	return nil
}
