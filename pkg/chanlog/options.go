package chanlog

import (
	"log/slog"
	"time"

	"github.com/crimson-sun/chanlog/internal/config"
)

type options struct {
	settings config.Settings
	logger   *slog.Logger
	now      func() time.Time
	err      error
}

// Option configures a Logger.
type Option func(*options)

// WithConfigFile loads transcript settings from the settings section of a
// YAML config file. Options applied after it override individual values.
func WithConfigFile(path string) Option {
	return func(o *options) {
		cfg, err := config.LoadFile(path, config.Config{Settings: o.settings})
		if err != nil {
			o.err = err
			return
		}
		o.settings = cfg.Settings
	}
}

// WithLogDir sets the directory transcripts are written below. Default: "logs".
func WithLogDir(dir string) Option {
	return func(o *options) {
		o.settings.LogDir = dir
	}
}

// WithFormats selects the transcript formats for every channel: "plain",
// "markup" or both. Default: both.
func WithFormats(formats ...string) Option {
	return func(o *options) {
		o.settings.Defaults.Formats = formats
	}
}

// WithFlushInterval buffers writes and flushes them every d instead of after
// each line.
func WithFlushInterval(d time.Duration) Option {
	return func(o *options) {
		o.settings.FlushImmediately = false
		o.settings.FlushInterval = d
	}
}

// WithTimestampFormat sets the strftime pattern for line timestamps. An empty
// pattern disables them.
func WithTimestampFormat(pattern string) Option {
	return func(o *options) {
		o.settings.TimestampFormat = pattern
	}
}

// WithOperators sets the nick!user@host globs allowed to switch logging on
// and off.
func WithOperators(masks ...string) Option {
	return func(o *options) {
		o.settings.Operators = masks
	}
}

// WithLogger sets the diagnostic logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// withClock overrides the wall clock used for flushes and reply timestamps.
func withClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func defaultOptions() options {
	return options{
		settings: config.DefaultSettings(),
		now:      time.Now,
	}
}
