package chanlog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/engine"
	"github.com/crimson-sun/chanlog/internal/irc"
	"github.com/crimson-sun/chanlog/internal/output/file"
)

var errClosed = errors.New("chanlog: logger closed")

// Logger writes channel transcripts for any number of sessions.
type Logger struct {
	mu     sync.Mutex
	engine *engine.Engine
	log    *slog.Logger
	now    func() time.Time
	closed bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New creates a Logger. Transcripts are opened lazily on the first line
// logged to each channel.
func New(opts ...Option) (*Logger, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.err != nil {
		return nil, fmt.Errorf("chanlog: %w", o.err)
	}
	if err := o.settings.Validate(); err != nil {
		return nil, fmt.Errorf("chanlog: %w", err)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	src := config.NewStore(o.settings)
	store := file.New(src, file.WithLogger(o.logger))
	l := &Logger{
		engine: engine.New(src, store, engine.WithLogger(o.logger)),
		log:    o.logger,
		now:    o.now,
	}
	if !o.settings.FlushImmediately && o.settings.FlushInterval > 0 {
		l.stop = make(chan struct{})
		l.done = make(chan struct{})
		go l.flushLoop(o.settings.FlushInterval)
	}
	return l, nil
}

func (l *Logger) flushLoop(every time.Duration) {
	defer close(l.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			if err := l.Flush(); err != nil {
				l.log.Warn("flushing logs failed", "error", err)
			}
		}
	}
}

// Session starts logging a new connection to network where the client is
// known as nick. Replies to logging commands are written to w as raw
// protocol lines; a nil w drops them.
func (l *Logger) Session(network, nick string, w io.Writer) *Session {
	return &Session{l: l, sess: irc.NewSession(network, nick, w)}
}

// Flush writes buffered transcript lines to disk and rotates logs whose
// date has changed.
func (l *Logger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	return l.engine.Flush(l.now().UTC())
}

// Close finalizes every open transcript. The Logger must not be used
// afterwards. Concurrent calls are safe.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() {
		if l.stop != nil {
			close(l.stop)
			<-l.done
		}
	})
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.engine.Close()
}

// Session is one connection fed to a Logger.
type Session struct {
	l    *Logger
	sess *irc.Session
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.sess.ID() }

// Feed logs one raw line received from the server. Lines that are not
// loggable, such as numerics, only update channel membership.
func (s *Session) Feed(line string) error {
	m, err := irc.Parse(line)
	if err != nil {
		return fmt.Errorf("chanlog: %w", err)
	}
	return s.deliver(m, s.l.now().UTC())
}

// Sent logs a line the client sent itself. Servers do not echo a client's
// own messages, so without this they would be missing from the transcript.
func (s *Session) Sent(line string) error {
	m, err := irc.Parse(line)
	if err != nil {
		return fmt.Errorf("chanlog: %w", err)
	}
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if s.l.closed {
		return errClosed
	}
	return s.echo(m)
}

// Close releases the session's transcripts. Call it when the connection ends.
func (s *Session) Close() error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if s.l.closed {
		return nil
	}
	return s.l.engine.Forget(s.sess.ID())
}

func (s *Session) deliver(m *irc.Message, received time.Time) error {
	s.l.mu.Lock()
	defer s.l.mu.Unlock()
	if s.l.closed {
		return errClosed
	}

	s.l.engine.Seed(s.sess)
	s.sess.State().Apply(m)
	replies, err := s.l.engine.Process(context.Background(), s.sess, m, received)
	errs := []error{err}
	for _, r := range replies {
		if err := s.sess.Send(r); err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, s.echo(r))
	}
	return errors.Join(errs...)
}

// echo logs m as sent by the session's own nick. Callers hold l.mu.
func (s *Session) echo(m *irc.Message) error {
	own := m.WithPrefix(s.sess.State().Nick)
	s.sess.State().Apply(own)
	_, err := s.l.engine.Process(context.Background(), s.sess, own, s.l.now().UTC())
	return err
}
