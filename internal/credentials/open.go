// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credentials

import (
	"io"

	"github.com/jeranaias/storedesk/internal/config"
)

// Open builds the cell described by cfg. The returned closer releases the
// underlying database and is never nil.
func Open(cfg *config.Config) (Cell, io.Closer, error) {
	var (
		cell   Cell
		closer io.Closer = nopCloser{}
	)

	switch cfg.Credentials.Store {
	case config.CellMemory:
		cell = NewMemoryCell()
	default:
		path, err := cfg.CredentialDBPath()
		if err != nil {
			return nil, nil, err
		}
		db, err := OpenSQLiteCell(path)
		if err != nil {
			return nil, nil, err
		}
		cell, closer = db, db
	}

	if pass := cfg.Passphrase(); pass != "" {
		sealed, err := NewSealedCell(cell, pass)
		if err != nil {
			closer.Close()
			return nil, nil, err
		}
		cell = sealed
	}

	return cell, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
