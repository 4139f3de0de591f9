// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// ErrFileTooLarge is returned when a file exceeds the configured upload limit.
var ErrFileTooLarge = errors.New("file exceeds upload size limit")

// SelectedFile is a file staged for upload.
type SelectedFile struct {
	Name     string
	Size     int64
	MimeType string
	Path     string

	open func() (io.ReadCloser, error)
}

// SelectFile stats path and sniffs its MIME type. maxSize <= 0 disables the
// size check.
func SelectFile(path string, maxSize int64) (*SelectedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot select file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot select file: %s is a directory", path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, filepath.Base(path), info.Size())
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read file: %w", err)
	}

	return &SelectedFile{
		Name:     filepath.Base(path),
		Size:     info.Size(),
		MimeType: mtype.String(),
		Path:     path,
		open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// NewSelectedFile wraps in-memory content. An empty mimeType is sniffed.
func NewSelectedFile(name string, data []byte, mimeType string) *SelectedFile {
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	buf := append([]byte(nil), data...)
	return &SelectedFile{
		Name:     name,
		Size:     int64(len(buf)),
		MimeType: mimeType,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		},
	}
}

// Open returns a fresh reader over the file content.
func (f *SelectedFile) Open() (io.ReadCloser, error) {
	if f == nil || f.open == nil {
		return nil, errors.New("no file content")
	}
	return f.open()
}

// ReadAll reads the file, refusing content larger than limit (limit <= 0
// disables the check).
func (f *SelectedFile) ReadAll(limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	if limit <= 0 {
		return io.ReadAll(rc)
	}
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, f.Name)
	}
	return data, nil
}
