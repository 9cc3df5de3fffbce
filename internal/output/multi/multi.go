package multi

import (
	"context"
	"errors"
	"time"

	"github.com/crimson-sun/chanlog/internal/model"
	"github.com/crimson-sun/chanlog/internal/output"
)

// Multi fans out record batches to multiple output.Output implementations.
// Each call is delivered to every wrapped output sequentially. If one output
// fails, the remaining outputs still receive the call.
type Multi struct {
	outputs []output.Output
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers the batch to every wrapped output.
func (m *Multi) Write(ctx context.Context, batch []model.Record) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Write(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Flush flushes every wrapped output.
func (m *Multi) Flush(now time.Time) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Flush(now); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Release releases connID on every wrapped output.
func (m *Multi) Release(connID string) error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Release(connID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ output.Output = (*Multi)(nil)
