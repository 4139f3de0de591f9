// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for storedesk.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// .env and environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.storedesk/config.toml
//   - ~/.storedesk/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/docker/go-units"
	"github.com/joho/godotenv"

	"github.com/jeranaias/storedesk/internal/logging"
	"github.com/jeranaias/storedesk/internal/util"
)

// DefaultEndpoint is the build-time fallback endpoint. Release builds set it
// with -ldflags "-X github.com/jeranaias/storedesk/internal/config.DefaultEndpoint=https://...".
var DefaultEndpoint = ""

// DirectBaseURL is the provider REST base used when the direct transport is
// selected and no endpoint is configured.
const DirectBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Transport names accepted by relay.transport.
const (
	TransportJSON      = "json"
	TransportMultipart = "multipart"
	TransportBase64    = "base64"
	TransportDirect    = "direct"
)

// Reconcile policies accepted by stores.reconcile.
const (
	ReconcileOptimistic = "optimistic"
	ReconcileDeferred   = "deferred"
)

// Credential cell backends accepted by credentials.store.
const (
	CellSQLite = "sqlite"
	CellMemory = "memory"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete storedesk configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Relay selects the backend shape and the endpoint fallback.
	Relay RelayConfig `toml:"relay" json:"relay"`

	// Direct holds provider settings for the direct transport.
	Direct DirectConfig `toml:"direct" json:"direct"`

	// Stores controls store list reconciliation.
	Stores StoresConfig `toml:"stores" json:"stores"`

	// Upload limits document uploads.
	Upload UploadConfig `toml:"upload" json:"upload"`

	// Credentials selects where the credential and endpoint override live.
	Credentials CredentialsConfig `toml:"credentials" json:"credentials"`

	// Logging configures the rotating log file.
	Logging LoggingConfig `toml:"logging" json:"logging"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// RelayConfig contains transport selection and endpoint settings.
type RelayConfig struct {
	// Transport is one of "json", "multipart", "base64", "direct".
	Transport string `toml:"transport" json:"transport"`
	// DefaultEndpoint is the deployment fallback when no session override is set.
	DefaultEndpoint string `toml:"default_endpoint" json:"default_endpoint"`
	// Path is appended to the endpoint for relay transports.
	Path string `toml:"path" json:"path"`
	// RequestTimeoutSecs bounds a single dispatch. 0 disables the bound.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// RequestsPerSecond paces outbound requests. 0 disables pacing.
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// DirectConfig contains settings for talking to the provider API directly.
type DirectConfig struct {
	// Model answers chat requests.
	Model string `toml:"model" json:"model"`
	// TopK is the number of retrieved chunks per chat request.
	TopK int `toml:"top_k" json:"top_k"`
}

// StoresConfig controls how store creation is reconciled.
type StoresConfig struct {
	// Reconcile is "optimistic" (insert returned store) or "deferred" (reload later).
	Reconcile string `toml:"reconcile" json:"reconcile"`
	// ReloadDelaySecs is the deferred reload delay.
	ReloadDelaySecs int `toml:"reload_delay_secs" json:"reload_delay_secs"`
}

// UploadConfig limits uploads.
type UploadConfig struct {
	// MaxSize is a human size such as "100MB".
	MaxSize string `toml:"max_size" json:"max_size"`
}

// CredentialsConfig selects the credential cell.
type CredentialsConfig struct {
	// Store is "sqlite" (persisted) or "memory" (process lifetime).
	Store string `toml:"store" json:"store"`
	// DBPath overrides the sqlite file location.
	DBPath string `toml:"db_path" json:"db_path"`
	// PassphraseEnv names an env var; when set and non-empty the cell is sealed.
	PassphraseEnv string `toml:"passphrase_env" json:"passphrase_env"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	// Path overrides ~/.storedesk/logs/storedesk.log. "off" disables logging.
	Path string `toml:"path" json:"path"`
	// Level is debug, info, warn or error.
	Level string `toml:"level" json:"level"`
}

// UIConfig contains terminal presentation settings.
type UIConfig struct {
	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme" json:"theme"`
	// WordWrap is the markdown wrap width for answers.
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// ToastSeconds is how long notifications stay visible.
	ToastSeconds int `toml:"toast_seconds" json:"toast_seconds"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",

		Relay: RelayConfig{
			Transport:          TransportMultipart,
			DefaultEndpoint:    DefaultEndpoint,
			Path:               "webhook/file-store",
			RequestTimeoutSecs: 0,
			RequestsPerSecond:  0,
		},

		Direct: DirectConfig{
			Model: "gemini-2.0-flash",
			TopK:  5,
		},

		Stores: StoresConfig{
			Reconcile:       ReconcileOptimistic,
			ReloadDelaySecs: 5,
		},

		Upload: UploadConfig{
			MaxSize: "100MB",
		},

		Credentials: CredentialsConfig{
			Store:         CellSQLite,
			PassphraseEnv: "STOREDESK_PASSPHRASE",
		},

		Logging: LoggingConfig{
			Level: "info",
		},

		UI: UIConfig{
			Theme:        "auto",
			WordWrap:     80,
			ToastSeconds: 4,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the storedesk configuration directory path.
// STOREDESK_HOME overrides the default of ~/.storedesk.
func ConfigDir() (string, error) {
	if dir := os.Getenv("STOREDESK_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".storedesk"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// CredentialDBPath returns the sqlite credential cell location.
func (c *Config) CredentialDBPath() (string, error) {
	if c.Credentials.DBPath != "" {
		return c.Credentials.DBPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.db"), nil
}

// LogPath returns the log file location, or "" when logging is off.
func (c *Config) LogPath() (string, error) {
	switch strings.ToLower(c.Logging.Path) {
	case "off", "none":
		return "", nil
	case "":
		dir, err := ConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "logs", "storedesk.log"), nil
	}
	return c.Logging.Path, nil
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// .env files and environment overrides are applied last.
func Load() (*Config, error) {
	LoadDotEnv()

	cfg := Default()
	var loadErr error

	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
				cfg = Default()
			} else {
				return finish(cfg)
			}
		}
	}

	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
				cfg = Default()
			} else {
				return finish(cfg)
			}
		}
	}

	cfg, err := finish(cfg)
	if err != nil {
		return nil, err
	}
	// Defaults are still usable; the load error is informational.
	return cfg, loadErr
}

// finish applies env overrides, migration, defaults and validation.
func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.Migrate()
	if err := fillDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from ./.env and ~/.storedesk/.env.
// Variables already present in the environment win; missing files are ignored.
func LoadDotEnv() {
	candidates := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// LoadTOML loads configuration from a TOML file.
// SECURITY: Checks and fixes file permissions on load.
func LoadTOML(cfg *Config, path string) error {
	// Permissions might not be fixable on every filesystem; loading continues.
	_ = ensureSecurePermissions(path)

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	_ = ensureSecurePermissions(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// fillDefaults fills in any missing values with defaults.
// Zero is meaningful for the timeout and pacing knobs, so they are left alone.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	if cfg.Relay.Transport == "" {
		cfg.Relay.Transport = defaults.Relay.Transport
	}
	if cfg.Relay.DefaultEndpoint == "" {
		cfg.Relay.DefaultEndpoint = defaults.Relay.DefaultEndpoint
	}
	if cfg.Relay.Path == "" {
		cfg.Relay.Path = defaults.Relay.Path
	}

	if cfg.Direct.Model == "" {
		cfg.Direct.Model = defaults.Direct.Model
	}
	if cfg.Direct.TopK == 0 {
		cfg.Direct.TopK = defaults.Direct.TopK
	}

	if cfg.Stores.Reconcile == "" {
		cfg.Stores.Reconcile = defaults.Stores.Reconcile
	}

	if cfg.Upload.MaxSize == "" {
		cfg.Upload.MaxSize = defaults.Upload.MaxSize
	}

	if cfg.Credentials.Store == "" {
		cfg.Credentials.Store = defaults.Credentials.Store
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}

	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}
	if cfg.UI.WordWrap == 0 {
		cfg.UI.WordWrap = defaults.UI.WordWrap
	}
	if cfg.UI.ToastSeconds == 0 {
		cfg.UI.ToastSeconds = defaults.UI.ToastSeconds
	}

	return nil
}

// Migrate normalizes enumerations written in mixed case by hand edits.
func (c *Config) Migrate() {
	c.Relay.Transport = strings.ToLower(strings.TrimSpace(c.Relay.Transport))
	c.Stores.Reconcile = strings.ToLower(strings.TrimSpace(c.Stores.Reconcile))
	c.Credentials.Store = strings.ToLower(strings.TrimSpace(c.Credentials.Store))
	c.UI.Theme = strings.ToLower(strings.TrimSpace(c.UI.Theme))
	c.Relay.DefaultEndpoint = strings.TrimSpace(c.Relay.DefaultEndpoint)
	c.Relay.Path = strings.Trim(strings.TrimSpace(c.Relay.Path), "/")
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// FallbackEndpoint returns the endpoint used when no session override exists.
// The direct transport falls back to the provider base URL.
func (c *Config) FallbackEndpoint() string {
	if c.Relay.DefaultEndpoint != "" {
		return c.Relay.DefaultEndpoint
	}
	if c.Relay.Transport == TransportDirect {
		return DirectBaseURL
	}
	return ""
}

// ReloadDelay returns the deferred reconcile delay.
func (c *Config) ReloadDelay() time.Duration {
	return time.Duration(c.Stores.ReloadDelaySecs) * time.Second
}

// RequestTimeout returns the per-dispatch bound, or 0 for none.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Relay.RequestTimeoutSecs) * time.Second
}

// ToastDuration returns how long notifications stay on screen.
func (c *Config) ToastDuration() time.Duration {
	return time.Duration(c.UI.ToastSeconds) * time.Second
}

// MaxUploadBytes parses upload.max_size.
func (c *Config) MaxUploadBytes() (int64, error) {
	n, err := units.FromHumanSize(c.Upload.MaxSize)
	if err != nil {
		return 0, fmt.Errorf("upload.max_size: %w", err)
	}
	return n, nil
}

// Passphrase returns the sealing passphrase from the configured env var.
func (c *Config) Passphrase() string {
	if c.Credentials.PassphraseEnv == "" {
		return ""
	}
	return os.Getenv(c.Credentials.PassphraseEnv)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Writes with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString("# storedesk configuration file\n")
	buf.WriteString("# Generated by storedesk - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write with fsync prevents data loss on crash
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch c.Relay.Transport {
	case TransportJSON, TransportMultipart, TransportBase64, TransportDirect:
	default:
		errs = append(errs, ValidationError{
			Field:   "relay.transport",
			Message: fmt.Sprintf("invalid transport '%s', must be one of: json, multipart, base64, direct", c.Relay.Transport),
		})
	}

	if c.Relay.DefaultEndpoint != "" {
		if err := ValidateEndpoint(c.Relay.DefaultEndpoint); err != nil {
			errs = append(errs, ValidationError{Field: "relay.default_endpoint", Message: err.Error()})
		}
	}
	if c.Relay.RequestTimeoutSecs < 0 {
		errs = append(errs, ValidationError{Field: "relay.request_timeout_secs", Message: "must be 0 (disabled) or positive"})
	}
	if c.Relay.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{Field: "relay.requests_per_second", Message: "must be 0 (disabled) or positive"})
	}

	if c.Direct.TopK < 1 || c.Direct.TopK > 20 {
		errs = append(errs, ValidationError{Field: "direct.top_k", Message: fmt.Sprintf("%d out of range 1-20", c.Direct.TopK)})
	}

	switch c.Stores.Reconcile {
	case ReconcileOptimistic, ReconcileDeferred:
	default:
		errs = append(errs, ValidationError{
			Field:   "stores.reconcile",
			Message: fmt.Sprintf("invalid policy '%s', must be one of: optimistic, deferred", c.Stores.Reconcile),
		})
	}
	if c.Stores.ReloadDelaySecs < 0 || c.Stores.ReloadDelaySecs > 300 {
		errs = append(errs, ValidationError{Field: "stores.reload_delay_secs", Message: "must be between 0 and 300"})
	}

	if n, err := c.MaxUploadBytes(); err != nil {
		errs = append(errs, ValidationError{Field: "upload.max_size", Message: err.Error()})
	} else if n <= 0 {
		errs = append(errs, ValidationError{Field: "upload.max_size", Message: "must be positive"})
	}

	switch c.Credentials.Store {
	case CellSQLite, CellMemory:
	default:
		errs = append(errs, ValidationError{
			Field:   "credentials.store",
			Message: fmt.Sprintf("invalid store '%s', must be one of: sqlite, memory", c.Credentials.Store),
		})
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, ValidationError{Field: "logging.level", Message: err.Error()})
	}

	switch c.UI.Theme {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.WordWrap < 20 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "must be at least 20"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateEndpoint checks that raw is an absolute http(s) URL.
func ValidateEndpoint(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL must use http or https, got %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host, got %q", raw)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - STOREDESK_ENDPOINT: overrides relay.default_endpoint
//   - STOREDESK_TRANSPORT: overrides relay.transport
//   - STOREDESK_RELAY_PATH: overrides relay.path
//   - STOREDESK_RECONCILE: overrides stores.reconcile
//   - STOREDESK_LOG_LEVEL: overrides logging.level
//   - STOREDESK_CREDENTIAL_STORE: overrides credentials.store
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("STOREDESK_ENDPOINT"); v != "" {
		c.Relay.DefaultEndpoint = v
	}
	if v := os.Getenv("STOREDESK_TRANSPORT"); v != "" {
		c.Relay.Transport = v
	}
	if v := os.Getenv("STOREDESK_RELAY_PATH"); v != "" {
		c.Relay.Path = v
	}
	if v := os.Getenv("STOREDESK_RECONCILE"); v != "" {
		c.Stores.Reconcile = v
	}
	if v := os.Getenv("STOREDESK_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STOREDESK_CREDENTIAL_STORE"); v != "" {
		c.Credentials.Store = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "relay.transport").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "stores.reconcile").
// String values are converted to the field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct by toml tag.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("'%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// fieldByTag finds the struct field whose toml tag matches name.
func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strings.TrimSpace(strVal), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strings.TrimSpace(strVal), 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strings.TrimSpace(strVal))
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation.
func GetAllKeys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		name := section.Tag.Get("toml")
		if section.Type.Kind() != reflect.Struct {
			keys = append(keys, name)
			continue
		}
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, name+"."+section.Type.Field(j).Tag.Get("toml"))
		}
	}
	return keys
}

// Clone creates a copy of the configuration. Config holds only value types.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns an indented JSON rendering of the config.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults for invalid settings)\n", err)
		}
		if cfg == nil {
			cfg = Fallback()
		}
		globalConfigMu.Lock()
		globalConfig = cfg
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// Fallback builds the config used when Load fails validation: defaults with
// environment overrides applied, and every invalid key reset to its default.
func Fallback() *Config {
	cfg := Default()
	cfg.ApplyEnvOverrides()
	cfg.Migrate()
	_ = fillDefaults(cfg)

	var errs ValidateErrors
	if errors.As(cfg.Validate(), &errs) {
		defaults := Default()
		for _, e := range errs {
			if v, err := defaults.Get(e.Field); err == nil {
				_ = cfg.Set(e.Field, v)
			}
		}
	}
	return cfg
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
// An invalid file leaves the current config in place.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	SetGlobal(cfg)
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
