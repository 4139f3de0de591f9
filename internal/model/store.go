// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// epoch is the sort position of records without a usable createTime.
var epoch = time.Unix(0, 0).UTC()

// =============================================================================
// STORE
// =============================================================================

// Store is a named container of documents.
type Store struct {
	Name                 string `json:"name"`
	DisplayName          string `json:"displayName,omitempty"`
	CreateTime           string `json:"createTime,omitempty"`
	UpdateTime           string `json:"updateTime,omitempty"`
	ActiveDocumentsCount string `json:"activeDocumentsCount,omitempty"`
	SizeBytes            string `json:"sizeBytes,omitempty"`
}

// CreatedAt parses CreateTime, returning the Unix epoch when it is missing
// or malformed.
func (s Store) CreatedAt() time.Time {
	return parseTimestamp(s.CreateTime)
}

// Title is the display name, or the final identifier segment when the
// backend returned none.
func (s Store) Title() string {
	if strings.TrimSpace(s.DisplayName) != "" {
		return s.DisplayName
	}
	return DisplaySuffix(s.Name)
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a file that has been ingested into a store.
type Document struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	CreateTime  string `json:"createTime,omitempty"`
	UpdateTime  string `json:"updateTime,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	SizeBytes   string `json:"sizeBytes,omitempty"`
	State       string `json:"state,omitempty"`
}

// CreatedAt parses CreateTime, returning the Unix epoch when it is missing
// or malformed.
func (d Document) CreatedAt() time.Time {
	return parseTimestamp(d.CreateTime)
}

// Title is the display name, or the final identifier segment.
func (d Document) Title() string {
	if strings.TrimSpace(d.DisplayName) != "" {
		return d.DisplayName
	}
	return DisplaySuffix(d.Name)
}

func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return epoch
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return epoch
	}
	return t
}

// =============================================================================
// ORDERING
// =============================================================================

// SortStores orders stores by creation time, newest first. The sort is
// stable so records with equal timestamps keep their backend order.
func SortStores(stores []Store) {
	sort.SliceStable(stores, func(i, j int) bool {
		return stores[i].CreatedAt().After(stores[j].CreatedAt())
	})
}

// SortDocuments orders documents by creation time, newest first (stable).
func SortDocuments(docs []Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt().After(docs[j].CreatedAt())
	})
}

// UniqueStores drops later records whose Name repeats an earlier one.
func UniqueStores(stores []Store) []Store {
	seen := make(map[string]bool, len(stores))
	out := make([]Store, 0, len(stores))
	for _, s := range stores {
		if seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		out = append(out, s)
	}
	return out
}

// UniqueDocuments drops later records whose Name repeats an earlier one.
func UniqueDocuments(docs []Document) []Document {
	seen := make(map[string]bool, len(docs))
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EncodeID percent-encodes an identifier so it fits in one path segment.
func EncodeID(id string) string {
	return url.PathEscape(id)
}

// DecodeID reverses EncodeID. Malformed escapes yield the input unchanged.
func DecodeID(segment string) string {
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return segment
	}
	return decoded
}

// DisplaySuffix returns the final "/"-delimited segment of id.
func DisplaySuffix(id string) string {
	id = strings.TrimRight(id, "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}
