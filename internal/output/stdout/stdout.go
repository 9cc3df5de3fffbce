package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/crimson-sun/chanlog/internal/model"
	"github.com/crimson-sun/chanlog/internal/output"
)

// Option configures an Output.
type Option func(*Output)

// WithWriter redirects output away from os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *Output) { o.w = w }
}

// WithJSON emits one JSON object per record instead of a text line.
func WithJSON(pretty bool) Option {
	return func(o *Output) {
		o.json = true
		o.pretty = pretty
	}
}

// WithFormats limits echoing to the given formats. Default: plain only.
func WithFormats(formats ...model.Format) Option {
	return func(o *Output) { o.formats = formats }
}

// Output mirrors transcript records to stdout.
type Output struct {
	mu      sync.Mutex
	w       io.Writer
	json    bool
	pretty  bool
	formats []model.Format
}

// New creates a stdout Output.
func New(opts ...Option) *Output {
	o := &Output{w: os.Stdout, formats: []model.Format{model.Plain}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Output) Write(_ context.Context, batch []model.Record) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var enc *json.Encoder
	if o.json {
		enc = json.NewEncoder(o.w)
		if o.pretty {
			enc.SetIndent("", "  ")
		}
	}
	for _, rec := range batch {
		if !output.Wants(o.formats, rec.Format) {
			continue
		}
		var err error
		if enc != nil {
			err = enc.Encode(output.NewPayload(rec))
		} else {
			_, err = fmt.Fprintf(o.w, "[%s %s] %s", rec.Network, rec.Channel, rec.Line)
		}
		if err != nil {
			return fmt.Errorf("stdout output: %w", err)
		}
	}
	return nil
}

// Flush is a no-op; writes are unbuffered.
func (o *Output) Flush(time.Time) error { return nil }

// Release is a no-op; nothing is held per connection.
func (o *Output) Release(string) error { return nil }

func (o *Output) Close() error { return nil }

var _ output.Output = (*Output)(nil)
