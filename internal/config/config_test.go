// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Endpoint.ChatURL != "http://127.0.0.1:8000/chat" {
		t.Errorf("ChatURL = %q, want http://127.0.0.1:8000/chat", cfg.Endpoint.ChatURL)
	}
	if cfg.Endpoint.UploadURL != "http://127.0.0.1:8000/upload" {
		t.Errorf("UploadURL = %q, want http://127.0.0.1:8000/upload", cfg.Endpoint.UploadURL)
	}
	if cfg.Session.UserID != "user123" {
		t.Errorf("UserID = %q, want user123", cfg.Session.UserID)
	}
	if !cfg.UI.Markdown {
		t.Error("Markdown should default to true")
	}
	require.NoError(t, cfg.Validate())
}

func TestRemoteConfig(t *testing.T) {
	cfg := Default()
	cfg.Endpoint.TimeoutSecs = 5
	cfg.Endpoint.RequestsPerSecond = 2

	rc := cfg.RemoteConfig()
	require.Equal(t, cfg.Endpoint.ChatURL, rc.ChatURL)
	require.Equal(t, 5*time.Second, rc.Timeout)
	require.Equal(t, 2.0, rc.RequestsPerSecond)
	require.Equal(t, cfg.Endpoint.MaxResponseBytes, rc.MaxResponseSize)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

func TestLoadFromPath_TOMLPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[endpoint]
chat_url = "https://assist.example.com/chat"

[session]
user_id = "alice"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "https://assist.example.com/chat", cfg.Endpoint.ChatURL)
	require.Equal(t, "http://127.0.0.1:8000/upload", cfg.Endpoint.UploadURL, "unset values keep defaults")
	require.Equal(t, "alice", cfg.Session.UserID)
	require.Equal(t, "info", cfg.Log.Level)
	require.True(t, cfg.UI.Markdown)
}

func TestLoadFromPath_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"session":{"user_id":"bob"},"ui":{"markdown":false}}`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "bob", cfg.Session.UserID)
	require.False(t, cfg.UI.Markdown)
}

func TestLoadFromPath_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[endpoint]\nchat_url = \"ftp://x\"\n"), 0600))

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	require.Equal(t, "endpoint.chat_url", verrs[0].Field)
}

func TestLoadFromPath_Missing(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Session.UserID = "carol"
	cfg.UI.ExportDir = "/tmp/exports"

	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "# rigrun-assist configuration file"))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "carol", loaded.Session.UserID)
	require.Equal(t, "/tmp/exports", loaded.UI.ExportDir)
}

func TestSave_DefaultLocation(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("RIGRUN_ASSIST_USER_ID", "")

	cfg, err := LoadFile("")
	require.NoError(t, err)
	require.Equal(t, Default().Session.UserID, cfg.Session.UserID, "no file yet")

	cfg.Session.UserID = "erin"
	require.NoError(t, Save(cfg))

	_, err = os.Stat(filepath.Join(home, ".rigrun-assist", "config.toml"))
	require.NoError(t, err)

	loaded, err := LoadFile("")
	require.NoError(t, err)
	require.Equal(t, "erin", loaded.Session.UserID)
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad chat scheme", func(c *Config) { c.Endpoint.ChatURL = "ws://host/chat" }, "endpoint.chat_url"},
		{"no upload host", func(c *Config) { c.Endpoint.UploadURL = "http:///upload" }, "endpoint.upload_url"},
		{"negative timeout", func(c *Config) { c.Endpoint.TimeoutSecs = -1 }, "endpoint.timeout_secs"},
		{"negative rate", func(c *Config) { c.Endpoint.RequestsPerSecond = -1 }, "endpoint.requests_per_second"},
		{"empty user", func(c *Config) { c.Session.UserID = "  " }, "session.user_id"},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs), "Validate() = %v, want ValidateErrors", err)
			require.Len(t, verrs, 1)
			if verrs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", verrs[0].Field, tt.field)
			}
		})
	}
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RIGRUN_ASSIST_CHAT_URL", "http://10.0.0.2:9000/chat")
	t.Setenv("RIGRUN_ASSIST_UPLOAD_URL", "http://10.0.0.2:9000/upload")
	t.Setenv("RIGRUN_ASSIST_USER_ID", "dave")
	t.Setenv("RIGRUN_ASSIST_LOG_LEVEL", "debug")
	t.Setenv("RIGRUN_ASSIST_TIMEOUT", "12")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	require.Equal(t, "http://10.0.0.2:9000/chat", cfg.Endpoint.ChatURL)
	require.Equal(t, "http://10.0.0.2:9000/upload", cfg.Endpoint.UploadURL)
	require.Equal(t, "dave", cfg.Session.UserID)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 12, cfg.Endpoint.TimeoutSecs)
}

func TestApplyEnvOverrides_BadTimeoutIgnored(t *testing.T) {
	t.Setenv("RIGRUN_ASSIST_TIMEOUT", "soon")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	require.Equal(t, 60, cfg.Endpoint.TimeoutSecs)
}

// =============================================================================
// GET / SET
// =============================================================================

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("session.user_id", "erin"))
	v, err := cfg.Get("session.user_id")
	require.NoError(t, err)
	require.Equal(t, "erin", v)

	require.NoError(t, cfg.Set("endpoint.timeout_secs", "30"))
	require.Equal(t, 30, cfg.Endpoint.TimeoutSecs)

	require.NoError(t, cfg.Set("endpoint.requests_per_second", "1.5"))
	require.Equal(t, 1.5, cfg.Endpoint.RequestsPerSecond)

	require.NoError(t, cfg.Set("ui.markdown", "no"))
	require.False(t, cfg.UI.Markdown)

	_, err = cfg.Get("endpoint.nope")
	require.Error(t, err)
	require.Error(t, cfg.Set("session.user_id.more", "x"))
	require.Error(t, cfg.Set("endpoint.timeout_secs", "soon"))
}

func TestGetAllKeys_Resolve(t *testing.T) {
	cfg := Default()
	for _, key := range GetAllKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q) error: %v", key, err)
		}
	}
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	changes := make(chan *Config, 4)
	w, err := Watch(path, func(c *Config) { changes <- c }, nil)
	require.NoError(t, err)
	defer w.Close()

	cfg := Default()
	cfg.Session.UserID = "frank"
	require.NoError(t, SaveTOML(cfg, path))

	select {
	case got := <-changes:
		require.Equal(t, "frank", got.Session.UserID)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after config write")
	}
}

func TestWatch_ReportsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	errs := make(chan error, 4)
	w, err := Watch(path, func(*Config) {}, func(err error) { errs <- err })
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"loud\"\n"), 0600))

	select {
	case err := <-errs:
		require.Contains(t, err.Error(), "log.level")
	case <-time.After(5 * time.Second):
		t.Fatal("no error after invalid write")
	}
}

func TestWatch_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveTOML(Default(), path))

	changes := make(chan *Config, 4)
	w, err := Watch(path, func(c *Config) { changes <- c }, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0600))

	select {
	case <-changes:
		t.Fatal("reloaded for an unrelated file")
	case <-time.After(500 * time.Millisecond):
	}
	require.NoError(t, w.Close())
}
