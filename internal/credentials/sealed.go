// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// SECURITY: Values written through a SealedCell are AES-256-GCM encrypted with
// a key derived from a passphrase. The salt lives in the wrapped cell.

const (
	// SealedPrefix marks an encrypted value.
	SealedPrefix = "ENC:"

	// PBKDF2Iterations follows the OWASP 2023 recommendation for SHA-256.
	PBKDF2Iterations = 600000

	keySize  = 32
	saltSize = 32
	saltKey  = "__salt"
)

// ErrWrongPassphrase is returned when a sealed value fails authentication.
var ErrWrongPassphrase = errors.New("cannot unseal credential: wrong passphrase or corrupted value")

// SealedCell encrypts values before handing them to the wrapped cell.
type SealedCell struct {
	inner Cell
	aead  cipher.AEAD
}

// NewSealedCell derives the sealing key from passphrase. The salt is created
// on first use and stored in inner.
func NewSealedCell(inner Cell, passphrase string) (*SealedCell, error) {
	if passphrase == "" {
		return nil, errors.New("sealed cell requires a passphrase")
	}

	salt, err := loadOrCreateSalt(inner)
	if err != nil {
		return nil, err
	}

	key := pbkdf2.Key([]byte(passphrase), salt, PBKDF2Iterations, keySize, sha256.New)
	defer zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &SealedCell{inner: inner, aead: aead}, nil
}

func loadOrCreateSalt(inner Cell) ([]byte, error) {
	encoded, ok, err := inner.Get(saltKey)
	if err != nil {
		return nil, err
	}
	if ok {
		salt, err := hex.DecodeString(encoded)
		if err != nil || len(salt) != saltSize {
			return nil, errors.New("stored salt is corrupted")
		}
		return salt, nil
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	if err := inner.Set(saltKey, hex.EncodeToString(salt)); err != nil {
		return nil, err
	}
	return salt, nil
}

// Get implements Cell. Values stored before sealing was enabled are returned
// as they are and re-sealed on the next Set.
func (c *SealedCell) Get(key string) (string, bool, error) {
	raw, ok, err := c.inner.Get(key)
	if err != nil || !ok {
		return "", ok, err
	}
	if !strings.HasPrefix(raw, SealedPrefix) {
		return raw, true, nil
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(raw, SealedPrefix))
	if err != nil {
		return "", false, ErrWrongPassphrase
	}
	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return "", false, ErrWrongPassphrase
	}
	// The key name is authenticated so values cannot be swapped between keys.
	plain, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(key))
	if err != nil {
		return "", false, ErrWrongPassphrase
	}
	return string(plain), true, nil
}

// Set implements Cell.
func (c *SealedCell) Set(key, value string) error {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(value), []byte(key))
	return c.inner.Set(key, SealedPrefix+base64.StdEncoding.EncodeToString(sealed))
}

// Delete implements Cell.
func (c *SealedCell) Delete(key string) error {
	return c.inner.Delete(key)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
