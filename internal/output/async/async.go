package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crimson-sun/chanlog/internal/model"
	"github.com/crimson-sun/chanlog/internal/output"
)

const (
	defaultBufferSize   = 1024
	defaultDrainTimeout = 5 * time.Second
)

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets the channel buffer capacity. Default: 1024.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithOnError sets the callback invoked when the inner output fails.
// Default: logs a warning via slog.
func WithOnError(f func(error)) Option {
	return func(a *Async) { a.errFunc = f }
}

// WithDropOnFull makes Write return immediately (dropping the batch) when the
// buffer is full, instead of blocking. Use for outputs where lossiness is
// acceptable, such as a webhook mirror.
func WithDropOnFull() Option {
	return func(a *Async) { a.dropOnFull = true }
}

// WithDrainTimeout bounds how long Close waits for queued work. Default: 5s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

type jobKind int

const (
	jobWrite jobKind = iota
	jobFlush
	jobRelease
)

type job struct {
	kind   jobKind
	batch  []model.Record
	now    time.Time
	connID string
}

// Async decouples the pipeline from a slow output via a buffered channel.
// Writes, flushes and releases are queued in order; a background goroutine
// applies them to the wrapped output. Errors from the inner output are
// passed to errFunc rather than propagated to the caller. Calls made after
// Close are dropped.
type Async struct {
	inner        output.Output
	ch           chan job
	done         chan struct{}
	errFunc      func(error)
	bufSize      int
	dropOnFull   bool
	drainTimeout time.Duration

	mu     sync.RWMutex
	closed bool
}

// New wraps an output.Output in an async channel-based writer.
// The background drain goroutine starts immediately.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
		errFunc:      func(err error) { slog.Warn("async output error", "error", err) },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ch = make(chan job, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write queues a copy of the batch. By default it blocks while the queue is
// full (backpressure). With WithDropOnFull it returns nil immediately and
// the batch is lost.
func (a *Async) Write(_ context.Context, batch []model.Record) error {
	j := job{kind: jobWrite, batch: append([]model.Record(nil), batch...)}
	if !a.dropOnFull {
		a.enqueue(j)
		return nil
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}
	select {
	case a.ch <- j:
	default:
		slog.Warn("async output buffer full, dropping records",
			"records", len(batch))
	}
	return nil
}

// Flush queues a flush of the inner output behind any pending writes.
func (a *Async) Flush(now time.Time) error {
	a.enqueue(job{kind: jobFlush, now: now})
	return nil
}

// Release queues the release of connID behind any pending writes.
func (a *Async) Release(connID string) error {
	a.enqueue(job{kind: jobRelease, connID: connID})
	return nil
}

func (a *Async) enqueue(j job) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	a.ch <- j
}

// Close closes the queue, waits for the drain goroutine to finish (with a
// timeout), then closes the inner output.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(a.drainTimeout):
		slog.Warn("async output drain timed out")
	}
	return a.inner.Close()
}

// drain applies queued jobs to the inner output.
func (a *Async) drain() {
	defer close(a.done)
	for j := range a.ch {
		var err error
		switch j.kind {
		case jobWrite:
			err = a.inner.Write(context.Background(), j.batch)
		case jobFlush:
			err = a.inner.Flush(j.now)
		case jobRelease:
			err = a.inner.Release(j.connID)
		}
		if err != nil {
			a.errFunc(err)
		}
	}
}

var _ output.Output = (*Async)(nil)
