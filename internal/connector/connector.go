package connector

import (
	"context"
	"time"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/irc"
)

// Connector defines the interface all message source connectors must implement.
type Connector interface {
	// Stream opens a long-lived session and sends messages as they arrive.
	// The channel is closed when the connector stops for good.
	Stream(ctx context.Context, cfg config.NetworkConfig) (<-chan Delivery, error)

	// Query reads a bounded batch of messages matching params.
	Query(ctx context.Context, cfg config.NetworkConfig, params QueryParams) ([]Delivery, error)
}

// Session is a protocol session messages are delivered for and replies are
// sent through.
type Session interface {
	irc.Conn
	irc.Sender
}

// Delivery is one message received on a session. A Delivery with End set
// carries no message and marks the end of the session.
type Delivery struct {
	Session  Session
	Msg      *irc.Message
	Received time.Time
	End      bool

	// StateOnly deliveries update rosters but are not logged. Query uses
	// them for membership changes outside the requested window.
	StateOnly bool
}

// QueryParams defines filters for one-shot reads.
type QueryParams struct {
	Start time.Time
	End   time.Time
	Limit int
}

// Match reports whether a message at t passes the time window.
func (p QueryParams) Match(t time.Time) bool {
	if !p.Start.IsZero() && t.Before(p.Start) {
		return false
	}
	if !p.End.IsZero() && !t.Before(p.End) {
		return false
	}
	return true
}
