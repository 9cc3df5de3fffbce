package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crimson-sun/chanlog/internal/model"
)

type mockOutput struct {
	mu      sync.Mutex
	records []model.Record
	calls   []string
	closed  bool
	err     error         // if set, Write returns this
	delay   time.Duration // if >0, Write sleeps first
}

func (m *mockOutput) Write(_ context.Context, batch []model.Record) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.records = append(m.records, batch...)
	m.calls = append(m.calls, "write")
	m.mu.Unlock()
	return m.err
}

func (m *mockOutput) Flush(time.Time) error {
	m.mu.Lock()
	m.calls = append(m.calls, "flush")
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) Release(connID string) error {
	m.mu.Lock()
	m.calls = append(m.calls, "release "+connID)
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func testBatch(line string) []model.Record {
	return []model.Record{{ConnID: "c1", Network: "libera", Channel: "#go", Format: model.Plain, Line: line}}
}

func TestRecordsFlowThrough(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))

	for i := 0; i < 10; i++ {
		if err := a.Write(context.Background(), testBatch("hi\n")); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if inner.recordCount() != 10 {
		t.Errorf("got %d records, want 10", inner.recordCount())
	}
	if !inner.closed {
		t.Error("inner output not closed")
	}
}

func TestOrderPreserved(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))

	a.Write(context.Background(), testBatch("a\n"))
	a.Flush(time.Now())
	a.Release("c1")
	a.Write(context.Background(), testBatch("b\n"))
	a.Close()

	want := []string{"write", "flush", "release c1", "write"}
	if len(inner.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", inner.calls, want)
	}
	for i := range want {
		if inner.calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, inner.calls[i], want[i])
		}
	}
}

func TestBatchIsCopied(t *testing.T) {
	inner := &mockOutput{delay: 20 * time.Millisecond}
	a := New(inner, WithBufferSize(4))

	batch := testBatch("original\n")
	a.Write(context.Background(), batch)
	batch[0].Line = "mutated\n"
	a.Close()

	if inner.records[0].Line != "original\n" {
		t.Errorf("queued record changed to %q", inner.records[0].Line)
	}
}

func TestBackpressureBlocks(t *testing.T) {
	// Inner output is slow; buffer size is 1.
	inner := &mockOutput{delay: 50 * time.Millisecond}
	a := New(inner, WithBufferSize(1))

	// First write fills the buffer.
	a.Write(context.Background(), testBatch("first\n"))

	// Second write should block until the drain goroutine consumes the first.
	done := make(chan struct{})
	go func() {
		a.Write(context.Background(), testBatch("second\n"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Write blocked indefinitely (expected eventual unblock via drain)")
	}

	a.Close()
}

func TestDropOnFull(t *testing.T) {
	// Slow inner output + tiny buffer + drop mode.
	inner := &mockOutput{delay: 100 * time.Millisecond}
	a := New(inner, WithBufferSize(1), WithDropOnFull())

	// Rapid-fire writes. Some will be dropped.
	for i := 0; i < 20; i++ {
		a.Write(context.Background(), testBatch("burst\n"))
	}

	a.Close()

	if inner.recordCount() == 20 {
		t.Error("expected some records to be dropped in drop-on-full mode")
	}
	if inner.recordCount() == 0 {
		t.Error("expected at least some records to be delivered")
	}
}

func TestCloseDrainsRemaining(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(100))

	for i := 0; i < 50; i++ {
		a.Write(context.Background(), testBatch("drain\n"))
	}

	a.Close()

	if inner.recordCount() != 50 {
		t.Errorf("after Close, got %d records, want 50 (drain incomplete)", inner.recordCount())
	}
}

func TestErrorCallbackInvoked(t *testing.T) {
	inner := &mockOutput{err: errors.New("write failed")}
	var errorCount atomic.Int64
	a := New(inner, WithBufferSize(16), WithOnError(func(err error) {
		errorCount.Add(1)
	}))

	for i := 0; i < 5; i++ {
		a.Write(context.Background(), testBatch("failing\n"))
	}

	a.Close()

	if errorCount.Load() != 5 {
		t.Errorf("error callback called %d times, want 5", errorCount.Load())
	}
}

func TestCallsAfterCloseAreDropped(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))
	a.Close()

	if err := a.Write(context.Background(), testBatch("late\n")); err != nil {
		t.Errorf("Write after Close: %v", err)
	}
	a.Flush(time.Now())
	a.Release("c1")
	if n := inner.recordCount(); n != 0 {
		t.Errorf("got %d records after Close, want 0", n)
	}
}

func TestNoGoroutineLeakAfterClose(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))

	a.Write(context.Background(), testBatch("leak-check\n"))
	a.Close()

	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("drain goroutine did not exit after Close")
	}
}

func TestCloseIdempotent(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))

	a.Write(context.Background(), testBatch("idempotent\n"))

	if err := a.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}
