// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rigrun-assist/internal/remote"
	"github.com/jeranaias/rigrun-assist/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigrun-assist configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Remote endpoints
	Endpoint EndpointConfig `toml:"endpoint" json:"endpoint"`

	// Chat session settings
	Session SessionConfig `toml:"session" json:"session"`

	// Logging
	Log LogConfig `toml:"log" json:"log"`

	// Terminal UI
	UI UIConfig `toml:"ui" json:"ui"`
}

// EndpointConfig contains the chat and upload endpoint settings.
type EndpointConfig struct {
	// ChatURL receives {user_id, message, reset} and answers {reply}
	ChatURL string `toml:"chat_url" json:"chat_url"`
	// UploadURL receives a multipart "file" field and answers {message}
	UploadURL string `toml:"upload_url" json:"upload_url"`
	// TimeoutSecs bounds a chat request and the wait for an upload reply; 0 disables it
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// MaxResponseBytes caps how much of a response body is read
	MaxResponseBytes int64 `toml:"max_response_bytes" json:"max_response_bytes"`
	// RequestsPerSecond paces outbound requests (0 = unlimited)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
	// Burst is the number of requests allowed at once when paced
	Burst int `toml:"burst" json:"burst"`
}

// SessionConfig contains chat session settings.
type SessionConfig struct {
	// UserID is sent unchanged as user_id on every chat request
	UserID string `toml:"user_id" json:"user_id"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	// Level is one of: debug, info, warn, error
	Level string `toml:"level" json:"level"`
	// Format is "console" or "json"
	Format string `toml:"format" json:"format"`
	// File receives log output; empty discards logs in the TUI and uses
	// stderr in line mode
	File string `toml:"file" json:"file"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// Markdown renders assistant replies as markdown
	Markdown bool `toml:"markdown" json:"markdown"`
	// Theme is the markdown style: auto, dark, light, notty
	Theme string `toml:"theme" json:"theme"`
	// ExportDir is where /export writes transcripts (empty = current directory)
	ExportDir string `toml:"export_dir" json:"export_dir"`
}

// Default returns a Config with the default settings.
func Default() *Config {
	return &Config{
		Version: "1",
		Endpoint: EndpointConfig{
			ChatURL:          remote.DefaultChatURL,
			UploadURL:        remote.DefaultUploadURL,
			TimeoutSecs:      int(remote.DefaultTimeout / time.Second),
			MaxResponseBytes: remote.MaxResponseSize,
			Burst:            1,
		},
		Session: SessionConfig{
			UserID: "user123",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		UI: UIConfig{
			Markdown: true,
			Theme:    "auto",
		},
	}
}

// RemoteConfig converts the endpoint settings into a client configuration.
func (c *Config) RemoteConfig() *remote.Config {
	return &remote.Config{
		ChatURL:           c.Endpoint.ChatURL,
		UploadURL:         c.Endpoint.UploadURL,
		Timeout:           time.Duration(c.Endpoint.TimeoutSecs) * time.Second,
		RequestsPerSecond: c.Endpoint.RequestsPerSecond,
		Burst:             c.Endpoint.Burst,
		MaxResponseSize:   c.Endpoint.MaxResponseBytes,
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigrun-assist"), nil
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

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the default location.
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	for _, pathFn := range []func() (string, error){ConfigPathTOML, ConfigPathJSON} {
		path, err := pathFn()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr == nil {
			return LoadFromPath(path)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile loads path, or the default location when path is empty.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Load()
	}
	return LoadFromPath(path)
}

// LoadTOML decodes a TOML file into cfg.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadJSON decodes a JSON file into cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return fillDefaults(cfg)
}

// LoadFromPath loads configuration from a specific file with env overrides
// and validation applied.
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

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in values a file left empty.
func fillDefaults(cfg *Config) error {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}

	// Endpoint
	if cfg.Endpoint.ChatURL == "" {
		cfg.Endpoint.ChatURL = defaults.Endpoint.ChatURL
	}
	if cfg.Endpoint.UploadURL == "" {
		cfg.Endpoint.UploadURL = defaults.Endpoint.UploadURL
	}
	if cfg.Endpoint.MaxResponseBytes == 0 {
		cfg.Endpoint.MaxResponseBytes = defaults.Endpoint.MaxResponseBytes
	}
	if cfg.Endpoint.Burst == 0 {
		cfg.Endpoint.Burst = defaults.Endpoint.Burst
	}

	// Session
	if cfg.Session.UserID == "" {
		cfg.Session.UserID = defaults.Session.UserID
	}

	// Log
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}

	// UI
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = defaults.UI.Theme
	}

	return nil
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

// SaveTOML writes the configuration to a TOML file atomically with 0600
// permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# rigrun-assist configuration file")
	fmt.Fprintln(&buf, "# Generated by rigrun-assist - edit with care")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration to a JSON file atomically with 0600
// permissions.
func SaveJSON(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

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
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	// Endpoint
	if err := validateEndpointURL(c.Endpoint.ChatURL); err != nil {
		errs = append(errs, ValidationError{Field: "endpoint.chat_url", Message: err.Error()})
	}
	if err := validateEndpointURL(c.Endpoint.UploadURL); err != nil {
		errs = append(errs, ValidationError{Field: "endpoint.upload_url", Message: err.Error()})
	}
	if c.Endpoint.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "endpoint.timeout_secs",
			Message: fmt.Sprintf("must not be negative, got %d", c.Endpoint.TimeoutSecs),
		})
	}
	if c.Endpoint.MaxResponseBytes < 0 {
		errs = append(errs, ValidationError{
			Field:   "endpoint.max_response_bytes",
			Message: fmt.Sprintf("must not be negative, got %d", c.Endpoint.MaxResponseBytes),
		})
	}
	if c.Endpoint.RequestsPerSecond < 0 {
		errs = append(errs, ValidationError{
			Field:   "endpoint.requests_per_second",
			Message: fmt.Sprintf("must not be negative, got %g", c.Endpoint.RequestsPerSecond),
		})
	}
	if c.Endpoint.Burst < 0 {
		errs = append(errs, ValidationError{
			Field:   "endpoint.burst",
			Message: fmt.Sprintf("must not be negative, got %d", c.Endpoint.Burst),
		})
	}

	// Session
	if strings.TrimSpace(c.Session.UserID) == "" {
		errs = append(errs, ValidationError{Field: "session.user_id", Message: "must not be empty"})
	}

	// Log
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level),
		})
	}
	validFormats := map[string]bool{"console": true, "json": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		errs = append(errs, ValidationError{
			Field:   "log.format",
			Message: fmt.Sprintf("invalid format '%s', must be one of: console, json", c.Log.Format),
		})
	}

	// UI
	validThemes := map[string]bool{"auto": true, "dark": true, "light": true, "notty": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light, notty", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateEndpointURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides:
//   - RIGRUN_ASSIST_CHAT_URL: overrides endpoint.chat_url
//   - RIGRUN_ASSIST_UPLOAD_URL: overrides endpoint.upload_url
//   - RIGRUN_ASSIST_TIMEOUT: overrides endpoint.timeout_secs
//   - RIGRUN_ASSIST_USER_ID: overrides session.user_id
//   - RIGRUN_ASSIST_LOG_LEVEL: overrides log.level
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RIGRUN_ASSIST_CHAT_URL"); v != "" {
		c.Endpoint.ChatURL = v
	}
	if v := os.Getenv("RIGRUN_ASSIST_UPLOAD_URL"); v != "" {
		c.Endpoint.UploadURL = v
	}
	if v := os.Getenv("RIGRUN_ASSIST_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			c.Endpoint.TimeoutSecs = secs
		}
	}
	if v := os.Getenv("RIGRUN_ASSIST_USER_ID"); v != "" {
		c.Session.UserID = v
	}
	if v := os.Getenv("RIGRUN_ASSIST_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g., "session.user_id").
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value using dot notation (e.g., "session.user_id").
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

func (c *Config) lookup(key string) (reflect.Value, error) {
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)
		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a struct", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

// normalizeFieldName converts a snake_case or kebab-case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		result.WriteString(strings.ToUpper(part[:1]))
		result.WriteString(strings.ToLower(part[1:]))
	}
	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			lower := strings.ToLower(strVal)
			field.SetBool(lower == "1" || lower == "true" || lower == "yes")
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("cannot assign nil")
	}
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
	return []string{
		"version",
		"endpoint.chat_url",
		"endpoint.upload_url",
		"endpoint.timeout_secs",
		"endpoint.max_response_bytes",
		"endpoint.requests_per_second",
		"endpoint.burst",
		"session.user_id",
		"log.level",
		"log.format",
		"log.file",
		"ui.markdown",
		"ui.theme",
		"ui.export_dir",
	}
}
