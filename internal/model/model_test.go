// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeNames(stores []Store) []string {
	names := make([]string, len(stores))
	for i, s := range stores {
		names[i] = s.Name
	}
	return names
}

func TestSortStores_NewestFirst(t *testing.T) {
	stores := []Store{
		{Name: "a", CreateTime: "2024-01-01T00:00:00Z"},
		{Name: "b", CreateTime: "2024-06-01T00:00:00Z"},
	}
	SortStores(stores)
	assert.Equal(t, []string{"b", "a"}, storeNames(stores))
}

func TestSortStores_StableAndMissingLast(t *testing.T) {
	stores := []Store{
		{Name: "no-time"},
		{Name: "tie-1", CreateTime: "2024-03-01T00:00:00Z"},
		{Name: "garbage", CreateTime: "yesterday"},
		{Name: "tie-2", CreateTime: "2024-03-01T00:00:00Z"},
		{Name: "newest", CreateTime: "2024-03-01T00:00:00.5Z"},
	}
	SortStores(stores)
	assert.Equal(t, []string{"newest", "tie-1", "tie-2", "no-time", "garbage"}, storeNames(stores))
}

func TestSortDocuments(t *testing.T) {
	docs := []Document{
		{Name: "old", CreateTime: "2023-01-01T00:00:00Z"},
		{Name: "new", CreateTime: "2025-01-01T00:00:00Z"},
	}
	SortDocuments(docs)
	assert.Equal(t, "new", docs[0].Name)
}

func TestUniqueStores(t *testing.T) {
	in := []Store{{Name: "a", DisplayName: "first"}, {Name: "b"}, {Name: "a", DisplayName: "dup"}}
	out := UniqueStores(in)
	require.Len(t, out, 2)
	assert.Equal(t, "first", out[0].DisplayName)
}

func TestCreatedAt_Epoch(t *testing.T) {
	assert.Equal(t, time.Unix(0, 0).UTC(), Store{}.CreatedAt())
	assert.Equal(t, time.Unix(0, 0).UTC(), Document{CreateTime: "nope"}.CreatedAt())
}

func TestIdentifiers(t *testing.T) {
	id := "fileSearchStores/my store-123"
	segment := EncodeID(id)
	assert.NotContains(t, segment, "/")
	assert.Equal(t, id, DecodeID(segment))
	assert.Equal(t, "my store-123", DisplaySuffix(DecodeID(segment)))

	assert.Equal(t, "plain", DisplaySuffix("plain"))
	assert.Equal(t, "doc", DisplaySuffix("fileSearchStores/s/documents/doc/"))
	assert.Equal(t, "%zz", DecodeID("%zz"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Named", Store{Name: "fileSearchStores/x", DisplayName: "Named"}.Title())
	assert.Equal(t, "x", Store{Name: "fileSearchStores/x", DisplayName: "  "}.Title())
	assert.Equal(t, "d1", Document{Name: "fileSearchStores/x/documents/d1"}.Title())
}

func TestAction(t *testing.T) {
	assert.True(t, ActionChat.Valid())
	assert.False(t, Action("drop_tables").Valid())
	assert.True(t, ActionDeleteDoc.Mutating())
	assert.False(t, ActionListDocs.Mutating())
	assert.Len(t, Actions, 7)
}

func TestTurns(t *testing.T) {
	u := NewUserTurn("hi")
	a := NewAssistantTurn("hello")

	assert.True(t, u.IsUser)
	assert.False(t, a.IsUser)
	assert.NotEqual(t, u.ID, a.ID)
	assert.Equal(t, "You", u.Speaker())
	assert.Equal(t, "Assistant", a.Speaker())
	assert.False(t, u.Time().IsZero())
}

func TestSelectFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text content\n"), 0600))

	f, err := SelectFile(path, 0)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", f.Name)
	assert.Equal(t, int64(19), f.Size)
	assert.True(t, strings.HasPrefix(f.MimeType, "text/plain"), f.MimeType)

	data, err := f.ReadAll(0)
	require.NoError(t, err)
	assert.Equal(t, "plain text content\n", string(data))

	_, err = SelectFile(path, 5)
	assert.True(t, errors.Is(err, ErrFileTooLarge))

	_, err = SelectFile(dir, 0)
	assert.Error(t, err)
}

func TestNewSelectedFile(t *testing.T) {
	f := NewSelectedFile("doc.pdf", []byte("%PDF-1.4\n"), "")
	assert.Equal(t, "application/pdf", f.MimeType)

	_, err := f.ReadAll(3)
	assert.True(t, errors.Is(err, ErrFileTooLarge))

	data, err := f.ReadAll(100)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4\n", string(data))

	// Each Open starts from the beginning.
	data, err = f.ReadAll(0)
	require.NoError(t, err)
	assert.Len(t, data, 9)

	var empty *SelectedFile
	_, err = empty.Open()
	assert.Error(t, err)
}
