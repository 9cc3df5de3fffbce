// Package snapshot keeps per-connection rosters that trail live state by one
// message, so departures can be attributed after live state has dropped the
// departing user.
package snapshot

import (
	"sync"

	"github.com/crimson-sun/chanlog/internal/irc"
)

// Tracker holds one lagging roster per connection.
type Tracker struct {
	mu    sync.Mutex
	snaps map[string]*irc.State
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{snaps: make(map[string]*irc.State)}
}

// Before returns conn's roster as of the previous message. Without a Seed,
// the first call for a connection copies its live state. The result is owned by the Tracker and
// must not be modified.
func (t *Tracker) Before(conn irc.Conn) *irc.State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.get(conn)
}

// Seed copies conn's live state as its roster unless one is already held.
// Calling it before the first message reaches live state keeps that
// message's effect out of the roster.
func (t *Tracker) Seed(conn irc.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.get(conn)
}

// After advances conn's roster past m.
func (t *Tracker) After(conn irc.Conn, m *irc.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.get(conn).Apply(m)
}

// Forget drops the roster for a connection that has ended.
func (t *Tracker) Forget(connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.snaps, connID)
}

// Reset drops every roster.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snaps = make(map[string]*irc.State)
}

// Len returns the number of tracked connections.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.snaps)
}

func (t *Tracker) get(conn irc.Conn) *irc.State {
	s, ok := t.snaps[conn.ID()]
	if !ok {
		s = conn.State().Copy()
		t.snaps[conn.ID()] = s
	}
	return s
}
