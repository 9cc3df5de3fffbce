package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"

	"github.com/crimson-sun/chanlog/internal/model"
)

// Version is the chanlog release.
const Version = "0.4.0"

// Config holds all chanlog configuration.
type Config struct {
	Mode            string          `yaml:"mode"` // "stream" or "query"
	ConfigFile      string          `yaml:"-"`
	Networks        []NetworkConfig `yaml:"networks"`
	Logging         LoggingConfig   `yaml:"logging"`
	Output          OutputConfig    `yaml:"output"`
	Settings        Settings        `yaml:"settings"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout"`
}

// NetworkConfig describes one protocol session and the connector that drives it.
type NetworkConfig struct {
	Provider   string   `yaml:"provider"` // "irc" or "replay"
	Name       string   `yaml:"name"`
	Server     string   `yaml:"server"` // host:port
	TLS        bool     `yaml:"tls"`
	Nick       string   `yaml:"nick"`
	User       string   `yaml:"user"`
	RealName   string   `yaml:"real_name"`
	Password   string   `yaml:"password"`
	Channels   []string `yaml:"channels"`
	ReplayFile string   `yaml:"replay_file"`
}

// LoggingConfig controls chanlog's own diagnostic log.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // empty logs to stderr
}

// OutputConfig holds output destination settings beyond the transcript files.
type OutputConfig struct {
	Echo    bool          `yaml:"echo"` // mirror plain records to stdout
	Webhook WebhookConfig `yaml:"webhook"`
}

// WebhookConfig mirrors transcript records to an HTTP endpoint. An empty URL
// disables the mirror.
type WebhookConfig struct {
	URL           string            `yaml:"url"`
	Headers       map[string]string `yaml:"headers"`
	BatchSize     int               `yaml:"batch_size"`
	FlushInterval time.Duration     `yaml:"flush_interval"`
	Formats       []string          `yaml:"formats"`
}

// Load reads configuration from environment variables with sensible defaults.
// A YAML file named by CHANLOG_CONFIG is layered on top by LoadFile.
func Load() Config {
	settings := DefaultSettings()
	settings.LogDir = getenv("CHANLOG_LOG_DIR", settings.LogDir)
	settings.FlushInterval = getenvDuration("CHANLOG_FLUSH_INTERVAL", settings.FlushInterval)
	settings.FlushImmediately = getenvBool("CHANLOG_FLUSH_IMMEDIATELY", settings.FlushImmediately)
	settings.TimestampFormat = getenv("CHANLOG_TIMESTAMP_FORMAT", settings.TimestampFormat)
	if v := os.Getenv("CHANLOG_FORMATS"); v != "" {
		settings.Defaults.Formats = splitList(v)
	}
	settings.Operators = splitList(os.Getenv("CHANLOG_OPERATORS"))

	cfg := Config{
		Mode:       getenv("CHANLOG_MODE", "stream"),
		ConfigFile: os.Getenv("CHANLOG_CONFIG"),
		Logging: LoggingConfig{
			Level: getenv("CHANLOG_LOG_LEVEL", "info"),
			File:  os.Getenv("CHANLOG_LOG_FILE"),
		},
		Output: OutputConfig{
			Echo: getenvBool("CHANLOG_ECHO", false),
			Webhook: WebhookConfig{
				URL:           os.Getenv("CHANLOG_WEBHOOK_URL"),
				BatchSize:     getenvInt("CHANLOG_WEBHOOK_BATCH_SIZE", 50),
				FlushInterval: getenvDuration("CHANLOG_WEBHOOK_FLUSH_INTERVAL", 5*time.Second),
				Formats:       []string{"plain"},
			},
		},
		Settings:        settings,
		ShutdownTimeout: getenvDuration("CHANLOG_SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if nc, ok := loadNetwork(); ok {
		cfg.Networks = []NetworkConfig{nc}
	}
	return cfg
}

// loadNetwork reads the single-network shorthand from the environment.
func loadNetwork() (NetworkConfig, bool) {
	server := os.Getenv("CHANLOG_SERVER")
	replay := os.Getenv("CHANLOG_REPLAY_FILE")
	if server == "" && replay == "" {
		return NetworkConfig{}, false
	}
	provider := "irc"
	if server == "" {
		provider = "replay"
	}
	return NetworkConfig{
		Provider:   getenv("CHANLOG_CONNECTOR", provider),
		Name:       getenv("CHANLOG_NETWORK", "default"),
		Server:     server,
		TLS:        getenvBool("CHANLOG_TLS", false),
		Nick:       getenv("CHANLOG_NICK", "chanlog"),
		User:       getenv("CHANLOG_USER", "chanlog"),
		RealName:   getenv("CHANLOG_REAL_NAME", "chanlog "+Version),
		Password:   os.Getenv("CHANLOG_PASSWORD"),
		Channels:   splitList(os.Getenv("CHANLOG_CHANNELS")),
		ReplayFile: replay,
	}, true
}

// Validate checks the configuration and reports every problem found.
func (c Config) Validate() error {
	var errs []error

	switch c.Mode {
	case "stream", "query":
	default:
		errs = append(errs, fmt.Errorf("mode must be \"stream\" or \"query\", got %q", c.Mode))
	}

	if len(c.Networks) == 0 {
		errs = append(errs, errors.New("no networks configured (set CHANLOG_SERVER, CHANLOG_REPLAY_FILE or networks in the config file)"))
	}
	seen := make(map[string]bool)
	for i, n := range c.Networks {
		errs = append(errs, n.validate(i, c.Mode)...)
		if seen[n.Name] {
			errs = append(errs, fmt.Errorf("networks[%d]: duplicate network name %q", i, n.Name))
		}
		seen[n.Name] = true
	}

	if err := c.Settings.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, c.Output.Webhook.validate()...)
	if c.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be >= 0, got %v", c.ShutdownTimeout))
	}
	return errors.Join(errs...)
}

func (n NetworkConfig) validate(i int, mode string) []error {
	var errs []error
	if n.Name == "" {
		errs = append(errs, fmt.Errorf("networks[%d]: name is required", i))
	}
	switch n.Provider {
	case "irc":
		if mode == "query" {
			errs = append(errs, fmt.Errorf("networks[%d]: the irc connector cannot run in query mode", i))
		}
		if n.Server == "" {
			errs = append(errs, fmt.Errorf("networks[%d]: server is required for the irc connector", i))
		}
		if n.Nick == "" {
			errs = append(errs, fmt.Errorf("networks[%d]: nick is required for the irc connector", i))
		}
	case "replay":
		if n.ReplayFile == "" {
			errs = append(errs, fmt.Errorf("networks[%d]: replay_file is required for the replay connector", i))
		} else if _, err := os.Stat(n.ReplayFile); err != nil {
			errs = append(errs, fmt.Errorf("networks[%d]: replay file: %w", i, err))
		}
	default:
		errs = append(errs, fmt.Errorf("networks[%d]: unknown provider %q", i, n.Provider))
	}
	return errs
}

func (w WebhookConfig) validate() []error {
	if w.URL == "" {
		return nil
	}
	var errs []error
	u, err := url.Parse(w.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("webhook: url must be an absolute http(s) URL, got %q", w.URL))
	}
	if w.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("webhook: batch_size must be >= 1, got %d", w.BatchSize))
	}
	if w.FlushInterval <= 0 {
		errs = append(errs, fmt.Errorf("webhook: flush_interval must be > 0, got %v", w.FlushInterval))
	}
	for _, f := range w.Formats {
		if _, err := model.ParseFormat(f); err != nil {
			errs = append(errs, fmt.Errorf("webhook: %w", err))
		}
	}
	return errs
}

// Validate checks transcript settings.
func (s Settings) Validate() error {
	var errs []error
	if s.LogDir == "" {
		errs = append(errs, errors.New("log directory must not be empty"))
	}
	if s.FlushInterval <= 0 {
		errs = append(errs, fmt.Errorf("flush interval must be > 0, got %v", s.FlushInterval))
	}
	patterns := map[string]string{
		"timestamp_format":             s.TimestampFormat,
		"directories.timestamp_format": s.Directories.TimestampFormat,
		"defaults.filename_timestamp":  s.Defaults.FilenameTimestamp,
	}
	for name, o := range s.Channels {
		if o.FilenameTimestamp != nil {
			patterns["channels."+name+".filename_timestamp"] = *o.FilenameTimestamp
		}
		for _, f := range o.Formats {
			if _, err := model.ParseFormat(f); err != nil {
				errs = append(errs, fmt.Errorf("channels.%s.formats: %w", name, err))
			}
		}
	}
	for name, p := range patterns {
		if p == "" {
			continue
		}
		if _, err := strftime.New(p); err != nil {
			errs = append(errs, fmt.Errorf("%s: bad strftime pattern %q: %w", name, p, err))
		}
	}
	for _, f := range s.Defaults.Formats {
		if _, err := model.ParseFormat(f); err != nil {
			errs = append(errs, fmt.Errorf("defaults.formats: %w", err))
		}
	}
	for _, op := range s.Operators {
		if _, err := path.Match(op, ""); err != nil {
			errs = append(errs, fmt.Errorf("operators: bad hostmask pattern %q: %w", op, err))
		}
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
