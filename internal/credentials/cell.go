// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credentials

import "sync"

// Cell keys.
const (
	KeyCredential = "api_key"
	KeyEndpoint   = "endpoint_url"
)

// Cell is a small key-value store. Get reports ok=false for missing keys.
type Cell interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryCell is a Cell that lives as long as the process.
type MemoryCell struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryCell returns an empty in-memory cell.
func NewMemoryCell() *MemoryCell {
	return &MemoryCell{values: make(map[string]string)}
}

// Get implements Cell.
func (c *MemoryCell) Get(key string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok, nil
}

// Set implements Cell.
func (c *MemoryCell) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

// Delete implements Cell. Deleting a missing key is not an error.
func (c *MemoryCell) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}
