// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - config show|get|set|path.

package cli

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jeranaias/storedesk/internal/config"
)

// ConfigValue is the JSON shape of a single key.
type ConfigValue struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// HandleConfig handles the config command.
func HandleConfig(env *Env, args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(env, args)

	case "get":
		key := args.Parser.Positional(1)
		if key == "" {
			return ErrMissingArgument("config get", "key", "storedesk config get <key>")
		}
		value, err := env.Config.Get(key)
		if err != nil {
			return &UsageError{Command: "config get", Reason: err.Error(), Hint: "storedesk config show"}
		}
		if args.JSON {
			return NewJSONResponse("config get", ConfigValue{Key: key, Value: value}).Print(env.Out)
		}
		env.printf("%v\n", value)
		return nil

	case "set":
		key := args.Parser.Positional(1)
		value := JoinPositionalArgs(args.Parser, 2)
		if key == "" || args.Parser.PositionalCount() < 3 {
			return ErrMissingArgument("config set", "key and value", "storedesk config set <key> <value>")
		}
		updated := env.Config.Clone()
		if err := updated.Set(key, value); err != nil {
			return &UsageError{Command: "config set", Reason: err.Error()}
		}
		if err := updated.Validate(); err != nil {
			return &UsageError{Command: "config set", Reason: err.Error()}
		}
		if err := config.Save(updated); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		env.Config = updated
		env.Logger.Info("config updated", zap.String("key", key))

		if args.JSON {
			current, _ := updated.Get(key)
			return NewJSONResponse("config set", ConfigValue{Key: key, Value: current}).Print(env.Out)
		}
		env.printf("%s %s updated\n", SuccessStyle.Render("[OK]"), key)
		return nil

	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		if args.JSON {
			return NewJSONResponse("config path", map[string]string{"path": path}).Print(env.Out)
		}
		env.printf("%s\n", path)
		return nil
	}
	return &UsageError{Command: "config", Reason: "unknown subcommand " + args.Subcommand, Hint: "storedesk config show|get|set|path"}
}

func configShow(env *Env, args Args) error {
	if args.JSON {
		return NewJSONResponse("config show", env.Config).Print(env.Out)
	}
	env.printf("%s\n", TitleStyle.Render("Configuration"))
	env.printf("%s\n", RenderSeparator(40))
	for _, key := range config.GetAllKeys() {
		value, err := env.Config.Get(key)
		if err != nil {
			continue
		}
		env.printf("%s %v\n", LabelStyle.Width(28).Render(key), value)
	}
	return nil
}
