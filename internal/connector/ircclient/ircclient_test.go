package ircclient

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/connector"
	"github.com/crimson-sun/chanlog/internal/irc"
)

// fakeServer is the far end of a net.Pipe speaking just enough IRC.
type fakeServer struct {
	t    *testing.T
	conn net.Conn
	r    *bufio.Reader
}

func (s *fakeServer) expect(want string) {
	s.t.Helper()
	s.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	line, err := s.r.ReadString('\n')
	require.NoError(s.t, err)
	assert.Equal(s.t, want, strings.TrimRight(line, "\r\n"))
}

func (s *fakeServer) send(line string) {
	s.t.Helper()
	s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := s.conn.Write([]byte(line + "\r\n"))
	require.NoError(s.t, err)
}

func testConfig() config.NetworkConfig {
	return config.NetworkConfig{
		Provider: "irc",
		Name:     "example",
		Server:   "irc.example.org:6667",
		Nick:     "logbot",
		User:     "logger",
		RealName: "chat logger",
		Password: "hunter2",
		Channels: []string{"#go", "#chat"},
	}
}

func next(t *testing.T, ch <-chan connector.Delivery) connector.Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "stream closed")
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return connector.Delivery{}
	}
}

func TestRegistered(t *testing.T) {
	ctor, err := connector.Get("irc")
	require.NoError(t, err)
	assert.IsType(t, &Connector{}, ctor())
}

func TestSessionLifecycle(t *testing.T) {
	servers := make(chan *fakeServer, 1)
	var dials atomic.Int32
	c := &Connector{
		minBackoff: time.Hour,
		dial: func(ctx context.Context, cfg config.NetworkConfig) (net.Conn, error) {
			if dials.Add(1) > 1 {
				return nil, errors.New("no more servers")
			}
			client, server := net.Pipe()
			servers <- &fakeServer{t: t, conn: server, r: bufio.NewReader(server)}
			return client, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := c.Stream(ctx, testConfig())
	require.NoError(t, err)

	srv := <-servers
	srv.expect("CAP REQ server-time")
	srv.expect("PASS hunter2")
	srv.expect("NICK logbot")
	srv.expect("USER logger 0 * :chat logger")

	srv.send(":srv 433 * logbot :Nickname is already in use")
	srv.expect("NICK logbot_")
	srv.send(":srv CAP * ACK :server-time")
	srv.expect("CAP END")

	srv.send(":srv 001 logbot_ :Welcome")
	srv.expect("JOIN #go")
	srv.expect("JOIN #chat")

	d := next(t, ch)
	assert.Equal(t, "001", d.Msg.Command)
	sess := d.Session
	assert.Equal(t, "example", sess.Network())

	srv.send("PING :abc")
	srv.expect("PONG abc")

	srv.send("@time=2026-01-01T00:00:00Z :alice!a@h PRIVMSG #go :hi")
	d = next(t, ch)
	assert.Equal(t, "PRIVMSG", d.Msg.Command)
	at, ok := d.Msg.Time()
	require.True(t, ok)
	assert.Equal(t, 2026, at.Year())

	// Replies go out through the delivered session.
	go func() { _ = sess.Send(irc.Privmsg("#go", "hello back")) }()
	srv.expect("PRIVMSG #go :hello back")

	srv.conn.Close()
	d = next(t, ch)
	assert.True(t, d.End)
	assert.Same(t, sess, d.Session)

	cancel()
	for range ch {
	}
}

func TestStreamRequiresServer(t *testing.T) {
	_, err := (&Connector{}).Stream(context.Background(), config.NetworkConfig{Name: "x"})
	assert.Error(t, err)
}

func TestQueryUnsupported(t *testing.T) {
	_, err := (&Connector{}).Query(context.Background(), testConfig(), connector.QueryParams{})
	assert.ErrorIs(t, err, errQueryUnsupported)
}
