package pipeline

import (
	"time"

	"github.com/crimson-sun/chanlog/internal/config"
)

// flushTimer fires every flush interval. The interval is re-read from the
// settings on each reset so reloaded configuration takes effect.
type flushTimer struct {
	settings config.Source
	interval time.Duration
	ticker   *time.Ticker
}

func newFlushTimer(settings config.Source) *flushTimer {
	d := flushInterval(settings)
	return &flushTimer{settings: settings, interval: d, ticker: time.NewTicker(d)}
}

// C returns the channel the timer fires on.
func (f *flushTimer) C() <-chan time.Time {
	return f.ticker.C
}

// reset picks up a changed interval.
func (f *flushTimer) reset() {
	if d := flushInterval(f.settings); d != f.interval {
		f.interval = d
		f.ticker.Reset(d)
	}
}

func (f *flushTimer) stop() {
	f.ticker.Stop()
}

func flushInterval(settings config.Source) time.Duration {
	if d := settings.Settings().FlushInterval; d > 0 {
		return d
	}
	return config.DefaultSettings().FlushInterval
}
