package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/connector"
	"github.com/crimson-sun/chanlog/internal/irc"
)

// Processor is the logging engine as driven by the pipeline.
type Processor interface {
	Process(ctx context.Context, conn irc.Conn, m *irc.Message, received time.Time) ([]*irc.Message, error)
	Seed(conn irc.Conn)
	Observe(conn irc.Conn, m *irc.Message)
	Flush(now time.Time) error
	Forget(connID string) error
}

// Source pairs a connector with the network it serves.
type Source struct {
	Connector connector.Connector
	Network   config.NetworkConfig
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the diagnostic logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithClock overrides the wall clock. Flushes and echoes follow the stream
// clock, which this only advances between events.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline feeds connector deliveries through the engine one at a time and
// periodically flushes the engine's logs. Live session state, rosters and
// log handles are only touched from the goroutine running Stream or Query.
type Pipeline struct {
	proc     Processor
	settings config.Source
	log      *slog.Logger
	now      func() time.Time

	// latest event time and the wall time it was seen at
	eventTime time.Time
	eventWall time.Time
}

// New creates a Pipeline. settings supplies the flush interval, re-read
// after every flush.
func New(proc Processor, settings config.Source, opts ...Option) *Pipeline {
	p := &Pipeline{proc: proc, settings: settings, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	return p
}

// Stream runs every source until the context is cancelled or all sources
// stop. Logs are flushed one last time before returning.
func (p *Pipeline) Stream(ctx context.Context, sources ...Source) error {
	merged, err := p.merge(ctx, sources)
	if err != nil {
		return err
	}

	flush := newFlushTimer(p.settings)
	defer flush.stop()

	for {
		select {
		case <-ctx.Done():
			p.flush()
			return ctx.Err()
		case d, ok := <-merged:
			if !ok {
				p.flush()
				return nil
			}
			p.handle(ctx, d)
		case <-flush.C():
			p.flush()
			flush.reset()
		}
	}
}

// merge starts every source and forwards their deliveries onto one channel,
// closed once all sources are exhausted.
func (p *Pipeline) merge(ctx context.Context, sources []Source) (<-chan connector.Delivery, error) {
	chans := make([]<-chan connector.Delivery, 0, len(sources))
	for _, src := range sources {
		ch, err := src.Connector.Stream(ctx, src.Network)
		if err != nil {
			return nil, fmt.Errorf("pipeline stream %s: %w", src.Network.Name, err)
		}
		chans = append(chans, ch)
	}

	merged := make(chan connector.Delivery, 64)
	var g errgroup.Group
	for _, ch := range chans {
		g.Go(func() error {
			for d := range ch {
				select {
				case merged <- d:
				case <-ctx.Done():
					// Let the connector notice cancellation and close ch.
				}
			}
			return nil
		})
	}
	go func() {
		g.Wait()
		close(merged)
	}()
	return merged, nil
}

// Query replays a bounded batch from one source, then flushes and releases
// every session it touched.
func (p *Pipeline) Query(ctx context.Context, src Source, params connector.QueryParams) error {
	batch, err := src.Connector.Query(ctx, src.Network, params)
	if err != nil {
		return fmt.Errorf("pipeline query: %w", err)
	}

	sessions := make(map[string]bool)
	for _, d := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		sessions[d.Session.ID()] = true
		p.handle(ctx, d)
	}
	p.flush()
	for id := range sessions {
		if err := p.proc.Forget(id); err != nil {
			p.log.Warn("releasing session logs failed", "session", id, "error", err)
		}
	}
	return nil
}

func (p *Pipeline) handle(ctx context.Context, d connector.Delivery) {
	sess := d.Session
	if d.End {
		p.log.Info("session ended", "network", sess.Network(), "session", sess.ID())
		if err := p.proc.Forget(sess.ID()); err != nil {
			p.log.Warn("releasing session logs failed", "network", sess.Network(), "error", err)
		}
		return
	}

	p.proc.Seed(sess)
	sess.State().Apply(d.Msg)
	if d.StateOnly {
		p.proc.Observe(sess, d.Msg)
		return
	}

	p.observe(d)
	replies, err := p.proc.Process(ctx, sess, d.Msg, d.Received)
	if err != nil {
		p.log.Error("logging message failed", "network", sess.Network(), "command", d.Msg.Command, "error", err)
	}
	for _, r := range replies {
		p.reply(ctx, sess, r)
	}
}

// reply sends r and logs it as our own message; servers do not echo what
// a client sends.
func (p *Pipeline) reply(ctx context.Context, sess connector.Session, r *irc.Message) {
	if err := sess.Send(r); err != nil {
		p.log.Warn("sending reply failed", "network", sess.Network(), "target", r.Param(0), "error", err)
		return
	}
	echo := r.WithPrefix(sess.State().Nick)
	sess.State().Apply(echo)
	if _, err := p.proc.Process(ctx, sess, echo, p.clock()); err != nil {
		p.log.Error("logging reply failed", "network", sess.Network(), "error", err)
	}
}

// observe advances the stream clock to the delivery's event time.
func (p *Pipeline) observe(d connector.Delivery) {
	t := d.Received
	if tagged, ok := d.Msg.Time(); ok {
		t = tagged
	}
	if t.After(p.eventTime) {
		p.eventTime = t
		p.eventWall = p.now()
	}
}

// clock is the latest event time plus the wall time elapsed since it
// arrived, so flushes of replayed history land on the history's dates.
// Before any event it is the wall clock.
func (p *Pipeline) clock() time.Time {
	now := p.now()
	if p.eventTime.IsZero() {
		return now.UTC()
	}
	return p.eventTime.Add(now.Sub(p.eventWall)).UTC()
}

func (p *Pipeline) flush() {
	if err := p.proc.Flush(p.clock()); err != nil {
		p.log.Warn("flushing logs failed", "error", err)
	}
}
