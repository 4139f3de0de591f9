// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// logs_cmd.go - show recent log entries.

package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/storedesk/internal/logging"
)

// defaultLogLines is how many entries logs shows without --lines.
const defaultLogLines = 50

// LogsData is the JSON shape of logs.
type LogsData struct {
	Path    string          `json:"path"`
	Entries []logging.Entry `json:"entries"`
}

// HandleLogs prints recent log entries, newest first.
func HandleLogs(env *Env, args Args) error {
	lines := args.Parser.FlagIntOrDefault("lines", defaultLogLines)
	if lines <= 0 {
		return &UsageError{Command: "logs", Reason: "--lines must be positive", Hint: "storedesk logs --lines 20"}
	}
	level := args.Parser.Flag("level")
	if level != "" {
		if _, err := logging.ParseLevel(level); err != nil {
			return &UsageError{Command: "logs", Reason: err.Error(), Hint: "storedesk logs --level warn"}
		}
	}

	path, err := env.Config.LogPath()
	if err != nil {
		return err
	}
	if path == "" {
		return &UsageError{Command: "logs", Reason: "logging is disabled (logging.path = off)"}
	}

	entries, err := logging.ReadRecent(path, level, lines)
	if err != nil {
		return fmt.Errorf("failed to read log: %w", err)
	}

	if args.JSON {
		return NewJSONResponse("logs", LogsData{Path: path, Entries: entries}).Print(env.Out)
	}
	if len(entries) == 0 {
		env.printf("%s\n", DimStyle.Render("No log entries in "+path))
		return nil
	}
	for _, e := range entries {
		env.printf("%s %s %s%s\n",
			DimStyle.Render(e.Timestamp),
			levelStyle(e.Level).Render(fmt.Sprintf("%-5s", e.Level)),
			e.Message,
			DimStyle.Render(formatFields(e.Fields)))
	}
	return nil
}

func levelStyle(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return ErrorStyle
	case "WARN":
		return WarningStyle
	case "DEBUG":
		return DimStyle
	}
	return InfoStyle
}

// formatFields renders extra fields as " k=v" pairs in key order.
func formatFields(fields map[string]interface{}) string {
	if len(fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	return b.String()
}
