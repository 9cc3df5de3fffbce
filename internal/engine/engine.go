// Package engine turns protocol messages into channel transcript records.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/engine/classifier"
	"github.com/crimson-sun/chanlog/internal/engine/formatter"
	"github.com/crimson-sun/chanlog/internal/engine/gate"
	"github.com/crimson-sun/chanlog/internal/engine/snapshot"
	"github.com/crimson-sun/chanlog/internal/irc"
	"github.com/crimson-sun/chanlog/internal/model"
	"github.com/crimson-sun/chanlog/internal/output"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithGate shares a suppression gate between engines.
func WithGate(g *gate.Gate) Option {
	return func(e *Engine) { e.gate = g }
}

// Engine orchestrates classify → suppress → format → write for every message
// of every connection. Callers serialize Process per connection and must
// apply each message to the connection's live state before processing it.
type Engine struct {
	src     config.Source
	out     output.Output
	tracker *snapshot.Tracker
	anchors *anchors
	gate    *gate.Gate
	log     *slog.Logger
}

// New creates an Engine writing to out under the policy served by src.
func New(src config.Source, out output.Output, opts ...Option) *Engine {
	e := &Engine{
		src:     src,
		out:     out,
		tracker: snapshot.New(),
		anchors: newAnchors(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.gate == nil {
		e.gate = gate.New()
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Gate returns the engine's suppression gate.
func (e *Engine) Gate() *gate.Gate { return e.gate }

// Process logs m, received on conn at received, and returns the replies the
// session should send for any administrative command it carried. A failing
// message is logged and skipped; only write errors are returned.
func (e *Engine) Process(ctx context.Context, conn irc.Conn, m *irc.Message, received time.Time) (replies []*irc.Message, err error) {
	before := e.tracker.Before(conn)
	defer e.tracker.After(conn, m)
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("dropping message after panic",
				"network", conn.Network(), "command", m.Command, "panic", fmt.Sprint(r))
			replies, err = nil, nil
		}
	}()

	ev, ok := classifier.Classify(m, received)
	if !ok {
		return nil, nil
	}
	state := conn.State()
	if ev.Nick == "" {
		ev.Nick = state.Nick
	}
	ev.Outgoing = irc.EqualFold(ev.Nick, state.Nick)

	settings := e.src.Settings()
	if ev.Kind == model.Chat && !ev.Outgoing {
		replies = e.command(ev, state, settings)
	}

	records := e.render(conn, ev, channelsFor(ev, state, before), settings)
	if len(records) == 0 {
		return replies, nil
	}
	if err := e.out.Write(ctx, records); err != nil {
		return replies, fmt.Errorf("engine: write %s: %w", ev.Kind, err)
	}
	return replies, nil
}

// Seed captures conn's roster before its first message is applied to live
// state, so a departure arriving first is still attributed. Later calls are
// no-ops.
func (e *Engine) Seed(conn irc.Conn) {
	e.tracker.Seed(conn)
}

// Observe advances conn's lagging roster past m without logging it.
func (e *Engine) Observe(conn irc.Conn, m *irc.Message) {
	e.tracker.Before(conn)
	e.tracker.After(conn, m)
}

// render formats ev for every channel it belongs to, in every active format.
func (e *Engine) render(conn irc.Conn, ev model.Event, channels []string, s *config.Settings) []model.Record {
	var records []model.Record
	for _, ch := range channels {
		cs := s.Channel(ch)
		p := gate.Policy{NoLogPrefix: cs.NoLogPrefix, CommandPrefix: s.CommandPrefix, BotNick: conn.State().Nick}
		if e.gate.Suppressed(ch, ev, p) {
			continue
		}
		opts := formatter.OptionsFor(s, ch)
		if opts.Timestamp && opts.TimestampFormat != "" {
			opts.Anchor = e.anchors.next(conn.ID(), irc.Fold(ch), ev.Time)
		}
		for _, f := range cs.ActiveFormats() {
			line, ok := formatter.Format(ev, ch, f, opts)
			if !ok {
				continue
			}
			records = append(records, model.Record{
				ConnID:  conn.ID(),
				Network: conn.Network(),
				Channel: irc.Fold(ch),
				Format:  f,
				Time:    ev.Time,
				Line:    line,
			})
		}
	}
	return records
}

// channelsFor resolves the channels an event is logged to. Quits carry no
// channel and are attributed through the lagging roster; nick changes go to
// every channel that lists the new nick after the change.
func channelsFor(ev model.Event, live, before *irc.State) []string {
	var out []string
	switch ev.Kind {
	case model.Chat, model.Action, model.Notice, model.ModeChange:
		for _, t := range ev.Targets {
			if live.IsChannel(t) {
				out = append(out, t)
			}
		}
	case model.Join, model.Part, model.Kick, model.TopicChange:
		out = ev.Targets
	case model.NickChange:
		out = channelNames(live, live.ChannelsWith(ev.NewNick))
	case model.Quit:
		out = channelNames(before, before.ChannelsWith(ev.Nick))
	}
	return dedupe(out)
}

func channelNames(s *irc.State, keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.Channels[k].Name)
	}
	return out
}

func dedupe(channels []string) []string {
	if len(channels) < 2 {
		return channels
	}
	seen := make(map[string]bool, len(channels))
	out := channels[:0:0]
	for _, ch := range channels {
		key := irc.Fold(ch)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ch)
	}
	return out
}

// Flush checks rotation and flushes every open log.
func (e *Engine) Flush(now time.Time) error {
	return e.out.Flush(now)
}

// Forget releases everything held for a connection that has ended.
func (e *Engine) Forget(connID string) error {
	e.tracker.Forget(connID)
	e.anchors.forget(connID)
	return e.out.Release(connID)
}

// Reset closes every log and drops all rosters. Logging resumes on the next
// message.
func (e *Engine) Reset() error {
	e.tracker.Reset()
	e.anchors.reset()
	return e.out.Close()
}

// Close finalizes and closes every log. It is safe to call more than once.
func (e *Engine) Close() error {
	return e.out.Close()
}
