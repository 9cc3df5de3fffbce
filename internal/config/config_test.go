package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/chanlog/internal/model"
)

var envKeys = []string{
	"CHANLOG_MODE", "CHANLOG_CONFIG", "CHANLOG_LOG_LEVEL", "CHANLOG_LOG_FILE",
	"CHANLOG_ECHO", "CHANLOG_SHUTDOWN_TIMEOUT", "CHANLOG_LOG_DIR",
	"CHANLOG_FLUSH_INTERVAL", "CHANLOG_FLUSH_IMMEDIATELY", "CHANLOG_TIMESTAMP_FORMAT",
	"CHANLOG_FORMATS", "CHANLOG_SERVER", "CHANLOG_REPLAY_FILE", "CHANLOG_CONNECTOR",
	"CHANLOG_NETWORK", "CHANLOG_TLS", "CHANLOG_NICK", "CHANLOG_CHANNELS", "CHANLOG_OPERATORS",
	"CHANLOG_WEBHOOK_URL", "CHANLOG_WEBHOOK_BATCH_SIZE", "CHANLOG_WEBHOOK_FLUSH_INTERVAL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	assert.Equal(t, "stream", cfg.Mode)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Output.Echo)
	assert.Empty(t, cfg.Output.Webhook.URL)
	assert.Equal(t, 50, cfg.Output.Webhook.BatchSize)
	assert.Empty(t, cfg.Networks)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "logs", cfg.Settings.LogDir)
	assert.Equal(t, "[off]", cfg.Settings.Defaults.NoLogPrefix)
	assert.Equal(t, "%Y-%m-%d", cfg.Settings.Defaults.FilenameTimestamp)
	assert.Equal(t, "%Y-%m", cfg.Settings.Directories.TimestampFormat)
	assert.True(t, cfg.Settings.Directories.Enabled)
}

func TestLoad_NetworkFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHANLOG_SERVER", "irc.example.org:6697")
	t.Setenv("CHANLOG_TLS", "true")
	t.Setenv("CHANLOG_NETWORK", "example")
	t.Setenv("CHANLOG_CHANNELS", "#a, #b,,")
	t.Setenv("CHANLOG_FORMATS", "plain")

	cfg := Load()

	require.Len(t, cfg.Networks, 1)
	n := cfg.Networks[0]
	assert.Equal(t, "irc", n.Provider)
	assert.Equal(t, "example", n.Name)
	assert.True(t, n.TLS)
	assert.Equal(t, []string{"#a", "#b"}, n.Channels)
	assert.Equal(t, []string{"plain"}, cfg.Settings.Defaults.Formats)
}

func TestLoad_ReplayFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHANLOG_REPLAY_FILE", "session.irc")

	cfg := Load()

	require.Len(t, cfg.Networks, 1)
	assert.Equal(t, "replay", cfg.Networks[0].Provider)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHANLOG_FLUSH_INTERVAL", "soon")
	t.Setenv("CHANLOG_ECHO", "maybe")
	t.Setenv("CHANLOG_WEBHOOK_BATCH_SIZE", "lots")

	cfg := Load()

	assert.Equal(t, 10*time.Second, cfg.Settings.FlushInterval)
	assert.False(t, cfg.Output.Echo)
	assert.Equal(t, 50, cfg.Output.Webhook.BatchSize)
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile_OverlaysBase(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "chanlog.yaml", `
networks:
  - name: libera
    server: irc.libera.chat:6697
    tls: true
    channels: ["#go-nuts"]
settings:
  log_dir: /var/log/chanlog
  flush_interval: 30s
  directories:
    timestamp: false
  channels:
    "#Secret":
      enable: false
      formats: [markup]
`)

	cfg, err := LoadFile(path, Load())
	require.NoError(t, err)

	require.Len(t, cfg.Networks, 1)
	n := cfg.Networks[0]
	assert.Equal(t, "irc", n.Provider)
	assert.Equal(t, "chanlog", n.Nick)
	assert.Equal(t, "chanlog", n.User)

	s := cfg.Settings
	assert.Equal(t, "/var/log/chanlog", s.LogDir)
	assert.Equal(t, 30*time.Second, s.FlushInterval)
	assert.False(t, s.Directories.Timestamp)
	assert.True(t, s.Directories.Network, "unset keys keep defaults")

	secret := s.Channel("#secret")
	assert.False(t, secret.Enable)
	assert.Equal(t, []model.Format{model.Markup}, secret.ActiveFormats())
	assert.Equal(t, "[off]", secret.NoLogPrefix)

	other := s.Channel("#other")
	assert.True(t, other.Enable)
	assert.Equal(t, []model.Format{model.Plain, model.Markup}, other.ActiveFormats())
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), Load())
	require.Error(t, err)

	path := writeFile(t, t.TempDir(), "bad.yaml", "settings: [unclosed")
	_, err = LoadFile(path, Load())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}

func validConfig(t *testing.T) Config {
	t.Helper()
	replay := writeFile(t, t.TempDir(), "session.irc", ":a!a@h JOIN #a\n")
	return Config{
		Mode: "stream",
		Networks: []NetworkConfig{
			{Provider: "irc", Name: "libera", Server: "irc.libera.chat:6697", Nick: "chanlog"},
			{Provider: "replay", Name: "archive", ReplayFile: replay},
		},
		Settings:        DefaultSettings(),
		ShutdownTimeout: time.Second,
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())
}

func TestValidate_Problems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Mode = "replay" }, "mode"},
		{"no networks", func(c *Config) { c.Networks = nil }, "no networks"},
		{"missing server", func(c *Config) { c.Networks[0].Server = "" }, "server is required"},
		{"unknown provider", func(c *Config) { c.Networks[0].Provider = "slack" }, "unknown provider"},
		{"duplicate names", func(c *Config) { c.Networks[1].Name = "libera" }, "duplicate"},
		{"missing replay file", func(c *Config) { c.Networks[1].ReplayFile = "/nonexistent/x.irc" }, "replay file"},
		{"irc in query mode", func(c *Config) { c.Mode = "query" }, "query mode"},
		{"empty log dir", func(c *Config) { c.Settings.LogDir = "" }, "log directory"},
		{"zero flush interval", func(c *Config) { c.Settings.FlushInterval = 0 }, "flush interval"},
		{"bad format", func(c *Config) { c.Settings.Defaults.Formats = []string{"pdf"} }, "pdf"},
		{"bad pattern", func(c *Config) { c.Settings.Defaults.FilenameTimestamp = "%Q" }, "strftime"},
		{"bad operator mask", func(c *Config) { c.Settings.Operators = []string{"op!*@[host"} }, "hostmask"},
		{"bad webhook url", func(c *Config) {
			c.Output.Webhook = WebhookConfig{URL: "ftp://mirror.example", BatchSize: 1, FlushInterval: time.Second}
		}, "http(s)"},
		{"bad webhook batch", func(c *Config) {
			c.Output.Webhook = WebhookConfig{URL: "https://mirror.example/hook", FlushInterval: time.Second}
		}, "batch_size"},
		{"bad webhook format", func(c *Config) {
			c.Output.Webhook = WebhookConfig{URL: "https://mirror.example/hook", BatchSize: 1, FlushInterval: time.Second, Formats: []string{"pdf"}}
		}, "webhook"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig(t)
	cfg.Mode = "loud"
	cfg.Settings.LogDir = ""
	cfg.Networks[0].Nick = ""

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"mode", "log directory", "nick"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestStoreReplace(t *testing.T) {
	st := NewStore(DefaultSettings())
	assert.Equal(t, "logs", st.Settings().LogDir)

	next := DefaultSettings()
	next.LogDir = "elsewhere"
	st.Replace(next)
	assert.Equal(t, "elsewhere", st.Settings().LogDir)
}

func TestWatchReloadsSettings(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "chanlog.yaml", "settings:\n  log_dir: first\n")

	base := Load()
	cfg, err := LoadFile(path, base)
	require.NoError(t, err)
	store := NewStore(cfg.Settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, base, store) }()

	// Give the watcher time to register before changing the file.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "chanlog.yaml", "settings:\n  log_dir: second\n")

	assert.Eventually(t, func() bool {
		return store.Settings().LogDir == "second"
	}, 3*time.Second, 20*time.Millisecond)

	// An invalid file is ignored.
	writeFile(t, dir, "chanlog.yaml", "settings:\n  log_dir: \"\"\n")
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, "second", store.Settings().LogDir)

	cancel()
	require.NoError(t, <-done)
}
