// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = ParseLevel(" DEBUG ")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, lvl)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNew_EmptyPathIsNop(t *testing.T) {
	logger, err := New(Options{})
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("dropped")
}

func TestNew_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "storedesk.log")

	logger, err := New(Options{Path: path, Level: "info"})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("dispatch", zap.String("component", "dispatch"), zap.String("action", "list_stores"))
	logger.Warn("slow response", zap.String("component", "transport"))
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.NotContains(t, text, "hidden")
	assert.Contains(t, text, `"message":"dispatch"`)
	assert.Contains(t, text, `"level":"INFO"`)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(text), "\n")+1)
}

func TestReadRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storedesk.log")
	lines := []string{
		`{"level":"INFO","timestamp":"2025-01-01T00:00:00Z","message":"first","component":"dispatch","action":"list_stores"}`,
		`not json`,
		`{"level":"ERROR","timestamp":"2025-01-01T00:00:01Z","message":"second"}`,
		`{"level":"INFO","timestamp":"2025-01-01T00:00:02Z","message":"third"}`,
	}
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600))

	entries, err := ReadRecent(path, "", 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "third", entries[0].Message)
	assert.Equal(t, "first", entries[2].Message)
	assert.Equal(t, "dispatch", entries[2].Component)
	assert.Equal(t, "list_stores", entries[2].Fields["action"])

	entries, err = ReadRecent(path, "error", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0].Message)

	entries, err = ReadRecent(path, "", 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestReadRecent_MissingFile(t *testing.T) {
	entries, err := ReadRecent(filepath.Join(t.TempDir(), "absent.log"), "", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
