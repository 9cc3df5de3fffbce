package file

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/model"
	"github.com/crimson-sun/chanlog/internal/output"
)

// Key identifies one log stream. At most one Handle is open per Key.
type Key struct {
	ConnID  string
	Channel string // folded
	Format  model.Format
}

// Option configures a Store.
type Option func(*Store)

// WithBufSize sets the per-handle bufio.Writer size. Default: 16KB.
func WithBufSize(bytes int) Option {
	return func(s *Store) { s.bufSize = bytes }
}

// WithLogger sets the logger used to report open failures. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

type entry struct {
	h       Handle
	network string
	path    string
}

// Store is the log handle cache. It opens channel logs lazily, rotates them
// when their target path changes, and owns every file it opens.
//
// Rotation follows a single clock that never goes backwards: the latest of
// every record time and flush time seen so far. A record stamped before the
// last rotation is written to the current file, never to a finalized one.
type Store struct {
	src     config.Source
	bufSize int
	log     *slog.Logger

	mu      sync.Mutex
	handles map[Key]*entry
	clock   time.Time
}

// New creates a Store reading its policy from src.
func New(src config.Source, opts ...Option) *Store {
	s := &Store{
		src:     src,
		bufSize: defaultBufSize,
		handles: make(map[Key]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Write checks rotation and appends each record to its log.
func (s *Store) Write(_ context.Context, batch []model.Record) error {
	if len(batch) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	flushNow := s.src.Settings().FlushImmediately
	now := s.advance(batch[0].Time)
	errs := s.checkRotation(now)
	for _, rec := range batch {
		key := Key{ConnID: rec.ConnID, Channel: rec.Channel, Format: rec.Format}
		h := s.handle(key, rec.Network, now)
		if err := h.WriteString(rec.Line); err != nil {
			errs = append(errs, err)
			continue
		}
		if flushNow {
			if err := h.Flush(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Handle returns the open log for key, opening it if needed. Open failures
// yield a handle that discards writes.
func (s *Store) Handle(key Key, network string, now time.Time) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle(key, network, s.advance(now))
}

// CheckRotation closes every handle whose target path has changed at now.
// The next write to the key opens the new file.
func (s *Store) CheckRotation(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.checkRotation(s.advance(now))...)
}

// Flush checks rotation and flushes every open handle. Flushing a handle
// that was closed underneath us is not an error.
func (s *Store) Flush(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := s.checkRotation(s.advance(now))
	for _, e := range s.handles {
		if err := e.h.Flush(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Release finalizes and closes every handle belonging to connID.
func (s *Store) Release(connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for key, e := range s.handles {
		if key.ConnID != connID {
			continue
		}
		if err := finalize(key, e.h); err != nil {
			errs = append(errs, err)
		}
		delete(s.handles, key)
	}
	return errors.Join(errs...)
}

// Close finalizes and closes every handle and empties the cache. The Store
// stays usable; a second Close with nothing open is a no-op.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for key, e := range s.handles {
		if err := finalize(key, e.h); err != nil {
			errs = append(errs, err)
		}
		delete(s.handles, key)
	}
	return errors.Join(errs...)
}

// Len returns the number of cached handles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// advance moves the rotation clock forward to t and returns it. Callers
// hold s.mu.
func (s *Store) advance(t time.Time) time.Time {
	if t.After(s.clock) {
		s.clock = t
	}
	return s.clock
}

func (s *Store) handle(key Key, network string, now time.Time) Handle {
	if e, ok := s.handles[key]; ok {
		return e.h
	}
	settings := s.src.Settings()
	dir, path := s.target(settings, key, network, now)
	h, err := s.open(settings, key, dir, path, now)
	if err != nil {
		s.log.Error("cannot open channel log, discarding records",
			"network", network, "channel", key.Channel, "format", key.Format.String(),
			"path", path, "error", err)
		h = discardHandle{path: path}
	}
	s.handles[key] = &entry{h: h, network: network, path: path}
	return h
}

func (s *Store) open(settings *config.Settings, key Key, dir, path string, now time.Time) (Handle, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	writeHeader := false
	if key.Format == model.Markup {
		has, err := containsMarker(path, []byte(headerMarker))
		if err != nil {
			return nil, err
		}
		writeHeader = !has
	}
	h, err := openHandle(path, s.bufSize)
	if err != nil {
		return nil, err
	}
	if writeHeader {
		if err := h.WriteString(markupHeader(key.Channel, now, settings)); err != nil {
			h.Close()
			return nil, err
		}
	}
	s.log.Debug("opened channel log", "channel", key.Channel, "format", key.Format.String(), "path", path)
	return h, nil
}

// target computes the directory and file a key writes to at now.
func (s *Store) target(settings *config.Settings, key Key, network string, now time.Time) (dir, path string) {
	cs := settings.Channel(key.Channel)
	dir = ResolveDir(settings.LogDir, network, key.Channel, now, settings.Directories)
	return dir, filepath.Join(dir, FileName(key.Channel, key.Format, RotationKey(cs, now)))
}

func (s *Store) checkRotation(now time.Time) []error {
	if len(s.handles) == 0 {
		return nil
	}
	settings := s.src.Settings()
	var errs []error
	for key, e := range s.handles {
		if _, path := s.target(settings, key, e.network, now); path == e.path {
			continue
		}
		s.log.Debug("rotating channel log", "channel", key.Channel, "format", key.Format.String(), "path", e.path)
		if err := finalize(key, e.h); err != nil {
			errs = append(errs, err)
		}
		delete(s.handles, key)
	}
	return errs
}

// finalize writes the markup footer, if any, and closes h.
func finalize(key Key, h Handle) error {
	var errs []error
	if key.Format == model.Markup {
		if _, ok := h.(*fileHandle); ok {
			if err := h.WriteString(markupFooter); err != nil && !errors.Is(err, os.ErrClosed) {
				errs = append(errs, err)
			}
		}
	}
	if err := h.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

var _ output.Output = (*Store)(nil)
