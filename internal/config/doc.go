// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for storedesk.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - RelayConfig: Transport selection, endpoint fallback, pacing and timeout
//   - StoresConfig: Optimistic or deferred reconciliation after create
//   - CredentialsConfig: Where the credential and endpoint override are kept
//   - Watcher: fsnotify based reload of the global config
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (STOREDESK_*), including values from .env files
//   - ~/.storedesk/config.toml
//   - ~/.storedesk/config.json
//   - Built-in defaults, including the DefaultEndpoint set at build time
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	delay := cfg.ReloadDelay()
package config
