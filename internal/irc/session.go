package irc

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// Conn is the engine's view of one protocol session. Implementations own
// the live State; consumers must treat it as read-only.
type Conn interface {
	ID() string
	Network() string
	State() *State
}

// Sender delivers messages back to the server.
type Sender interface {
	Send(m *Message) error
}

// Session is the Conn shared by all connectors. The live State is only
// mutated by whoever drives message delivery (the pipeline), never by the
// goroutine reading from the network.
type Session struct {
	id      string
	network string
	state   *State

	mu sync.Mutex
	w  io.Writer
}

// NewSession creates a session for network with a fresh identity. Messages
// passed to Send are written to w; a nil w discards them.
func NewSession(network, nick string, w io.Writer) *Session {
	return &Session{
		id:      uuid.NewString(),
		network: network,
		state:   NewState(nick),
		w:       w,
	}
}

func (s *Session) ID() string      { return s.id }
func (s *Session) Network() string { return s.network }
func (s *Session) State() *State   { return s.state }

// Send writes m in wire form followed by CRLF.
func (s *Session) Send(m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return nil
	}
	if _, err := io.WriteString(s.w, m.String()+"\r\n"); err != nil {
		return fmt.Errorf("irc session %s: send %s: %w", s.network, m.Command, err)
	}
	return nil
}

var (
	_ Conn   = (*Session)(nil)
	_ Sender = (*Session)(nil)
)
