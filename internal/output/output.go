package output

import (
	"context"
	"strings"
	"time"

	"github.com/crimson-sun/chanlog/internal/model"
)

// Output defines the interface for rendered transcript destinations.
type Output interface {
	// Write appends one event's records. The batch shares a single timestamp.
	Write(ctx context.Context, batch []model.Record) error
	// Flush makes buffered records durable. now drives any time-based rotation.
	Flush(now time.Time) error
	// Release finalizes everything held for a connection that has ended.
	Release(connID string) error
	Close() error
}

// Payload is the JSON shape of a record sent to stdout or a webhook.
type Payload struct {
	Network string    `json:"network"`
	Channel string    `json:"channel"`
	Format  string    `json:"format"`
	Time    time.Time `json:"time"`
	Line    string    `json:"line"`
}

// NewPayload converts rec, dropping the line terminator.
func NewPayload(rec model.Record) Payload {
	return Payload{
		Network: rec.Network,
		Channel: rec.Channel,
		Format:  rec.Format.String(),
		Time:    rec.Time,
		Line:    strings.TrimSuffix(rec.Line, "\n"),
	}
}

// Wants reports whether f is one of formats.
func Wants(formats []model.Format, f model.Format) bool {
	for _, want := range formats {
		if want == f {
			return true
		}
	}
	return false
}
