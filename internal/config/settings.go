package config

import (
	"sync/atomic"
	"time"

	"github.com/crimson-sun/chanlog/internal/irc"
	"github.com/crimson-sun/chanlog/internal/model"
)

// Settings is the transcript policy the logging engine reads. Values are
// global unless they live in ChannelSettings, which can be overridden per
// channel.
type Settings struct {
	LogDir           string        `yaml:"log_dir"`
	FlushImmediately bool          `yaml:"flush_immediately"`
	FlushInterval    time.Duration `yaml:"flush_interval"`
	TimestampFormat  string        `yaml:"timestamp_format"` // empty disables line timestamps
	CommandPrefix    string        `yaml:"command_prefix"`
	Operators        []string      `yaml:"operators"` // nick!user@host globs allowed to toggle logging
	Directories      Directories   `yaml:"directories"`
	Markup           Markup        `yaml:"markup"`

	Defaults ChannelSettings            `yaml:"defaults"`
	Channels map[string]ChannelOverride `yaml:"channels"`
}

// Directories controls how log files are partitioned below LogDir.
type Directories struct {
	Enabled         bool   `yaml:"enabled"`
	Network         bool   `yaml:"network"`
	Channel         bool   `yaml:"channel"`
	Timestamp       bool   `yaml:"timestamp"`
	TimestampFormat string `yaml:"timestamp_format"`
}

// Markup holds the asset locations referenced by the HTML document shell.
type Markup struct {
	Stylesheet string `yaml:"stylesheet"`
	Script     string `yaml:"script"`
}

// ChannelSettings are the per-channel values after overrides are applied.
type ChannelSettings struct {
	Enable            bool     `yaml:"enable"`
	StripFormatting   bool     `yaml:"strip_formatting"`
	Timestamp         bool     `yaml:"timestamp"`
	NoLogPrefix       string   `yaml:"no_log_prefix"`
	RotateLogs        bool     `yaml:"rotate_logs"`
	FilenameTimestamp string   `yaml:"filename_timestamp"`
	Formats           []string `yaml:"formats"`
}

// ChannelOverride replaces individual defaults for one channel. Nil fields
// inherit from Settings.Defaults.
type ChannelOverride struct {
	Enable            *bool    `yaml:"enable"`
	StripFormatting   *bool    `yaml:"strip_formatting"`
	Timestamp         *bool    `yaml:"timestamp"`
	NoLogPrefix       *string  `yaml:"no_log_prefix"`
	RotateLogs        *bool    `yaml:"rotate_logs"`
	FilenameTimestamp *string  `yaml:"filename_timestamp"`
	Formats           []string `yaml:"formats"`
}

// DefaultSettings returns the built-in transcript policy.
func DefaultSettings() Settings {
	return Settings{
		LogDir:           "logs",
		FlushImmediately: true,
		FlushInterval:    10 * time.Second,
		TimestampFormat:  "%Y-%m-%dT%H:%M:%S",
		CommandPrefix:    "@",
		Directories: Directories{
			Enabled:         true,
			Network:         true,
			Channel:         true,
			Timestamp:       true,
			TimestampFormat: "%Y-%m",
		},
		Markup: Markup{
			Stylesheet: "/chatlogs/style.css",
			Script:     "/chatlogs/chatlogs.js",
		},
		Defaults: ChannelSettings{
			Enable:            true,
			StripFormatting:   true,
			Timestamp:         true,
			NoLogPrefix:       "[off]",
			RotateLogs:        true,
			FilenameTimestamp: "%Y-%m-%d",
			Formats:           []string{"plain", "markup"},
		},
	}
}

// Channel resolves the effective settings for channel.
func (s *Settings) Channel(channel string) ChannelSettings {
	cs := s.Defaults
	o, ok := s.override(channel)
	if !ok {
		return cs
	}
	if o.Enable != nil {
		cs.Enable = *o.Enable
	}
	if o.StripFormatting != nil {
		cs.StripFormatting = *o.StripFormatting
	}
	if o.Timestamp != nil {
		cs.Timestamp = *o.Timestamp
	}
	if o.NoLogPrefix != nil {
		cs.NoLogPrefix = *o.NoLogPrefix
	}
	if o.RotateLogs != nil {
		cs.RotateLogs = *o.RotateLogs
	}
	if o.FilenameTimestamp != nil {
		cs.FilenameTimestamp = *o.FilenameTimestamp
	}
	if o.Formats != nil {
		cs.Formats = o.Formats
	}
	return cs
}

func (s *Settings) override(channel string) (ChannelOverride, bool) {
	if o, ok := s.Channels[channel]; ok {
		return o, true
	}
	key := irc.Fold(channel)
	for name, o := range s.Channels {
		if irc.Fold(name) == key {
			return o, true
		}
	}
	return ChannelOverride{}, false
}

// ActiveFormats returns the parsed formats, skipping unknown names.
func (cs ChannelSettings) ActiveFormats() []model.Format {
	var out []model.Format
	seen := make(map[model.Format]bool)
	for _, name := range cs.Formats {
		f, err := model.ParseFormat(name)
		if err != nil || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Source is the narrow read-only view of configuration the engine consumes.
type Source interface {
	Settings() *Settings
}

// Store holds the active Settings and allows them to be swapped at runtime.
type Store struct {
	cur atomic.Pointer[Settings]
}

// NewStore returns a Store serving s.
func NewStore(s Settings) *Store {
	st := &Store{}
	st.cur.Store(&s)
	return st
}

// Settings returns the current settings. Callers must not modify the result.
func (st *Store) Settings() *Settings {
	return st.cur.Load()
}

// Replace swaps in new settings.
func (st *Store) Replace(s Settings) {
	st.cur.Store(&s)
}

// Static serves fixed settings.
type Static Settings

// Settings implements Source.
func (s *Static) Settings() *Settings {
	return (*Settings)(s)
}

var (
	_ Source = (*Store)(nil)
	_ Source = (*Static)(nil)
)
