// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce collapses editor save bursts into one reload.
const DefaultWatchDebounce = 250 * time.Millisecond

// ReloadFunc receives the reloaded config, or the error that kept the
// previous config in place.
type ReloadFunc func(cfg *Config, err error)

// Watcher reloads the global config when the config file changes on disk.
//
// The directory is watched rather than the file so that atomic saves
// (write temp + rename) are observed.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onReload ReloadFunc
	names    map[string]bool

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher creates a watcher on the config directory. Call Start to begin
// delivering reloads and Close to stop.
func NewWatcher(onReload ReloadFunc) (*Watcher, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	if err := EnsureConfigDir(); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}

	tomlPath, _ := ConfigPathTOML()
	jsonPath, _ := ConfigPathJSON()

	return &Watcher{
		watcher:  fw,
		debounce: DefaultWatchDebounce,
		onReload: onReload,
		names: map[string]bool{
			filepath.Base(tomlPath): true,
			filepath.Base(jsonPath): true,
			".env":                  true,
		},
		done: make(chan struct{}),
	}, nil
}

// WithDebounce sets the debounce window.
func (w *Watcher) WithDebounce(d time.Duration) *Watcher {
	w.debounce = d
	return w
}

// Start processes events until ctx is cancelled or Close is called.
func (w *Watcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	go w.processEvents(ctx)
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.names[filepath.Base(event.Name)] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.schedule()
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	err := ReloadGlobal()
	if w.onReload != nil {
		w.onReload(Global(), err)
	}
}

// Close stops the watcher and releases the fsnotify handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	cancel := w.cancel
	w.mu.Unlock()

	err := w.watcher.Close()
	if cancel != nil {
		cancel()
		<-w.done
	}
	return err
}
