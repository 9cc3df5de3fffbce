// Package ircclient connects to a live IRC server, keeps the connection
// registered and alive, and streams everything it hears. Lost connections
// are retried with exponential backoff; each attempt is a new session.
package ircclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/connector"
	"github.com/crimson-sun/chanlog/internal/irc"
)

const (
	dialTimeout       = 30 * time.Second
	defaultMinBackoff = 2 * time.Second
	defaultMaxBackoff = 2 * time.Minute
	maxLine           = 8 * 1024
)

var errQueryUnsupported = errors.New("irc connector: query is not supported on live connections")

func init() {
	connector.Register("irc", func() connector.Connector {
		return &Connector{}
	})
}

// Connector implements connector.Connector for live IRC servers.
type Connector struct {
	dial       func(ctx context.Context, cfg config.NetworkConfig) (net.Conn, error)
	minBackoff time.Duration
	maxBackoff time.Duration
}

func (c *Connector) Query(context.Context, config.NetworkConfig, connector.QueryParams) ([]connector.Delivery, error) {
	return nil, errQueryUnsupported
}

func (c *Connector) Stream(ctx context.Context, cfg config.NetworkConfig) (<-chan connector.Delivery, error) {
	if cfg.Server == "" {
		return nil, fmt.Errorf("irc connector: network %q has no server", cfg.Name)
	}
	minWait, maxWait := c.minBackoff, c.maxBackoff
	if minWait <= 0 {
		minWait = defaultMinBackoff
	}
	if maxWait < minWait {
		maxWait = max(defaultMaxBackoff, minWait)
	}

	ch := make(chan connector.Delivery, 64)
	go func() {
		defer close(ch)
		wait := minWait
		for {
			registered, err := c.session(ctx, cfg, ch)
			if ctx.Err() != nil {
				return
			}
			if registered {
				wait = minWait
			}
			slog.Warn("irc connection lost", "network", cfg.Name, "server", cfg.Server, "error", err, "retry_in", wait)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return
			}
			wait = min(wait*2, maxWait)
		}
	}()
	return ch, nil
}

// session runs one connection until it drops. It reports whether the server
// accepted the registration.
func (c *Connector) session(ctx context.Context, cfg config.NetworkConfig, ch chan<- connector.Delivery) (registered bool, err error) {
	dial := c.dial
	if dial == nil {
		dial = dialServer
	}
	conn, err := dial(ctx, cfg)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", cfg.Server, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	sess := irc.NewSession(cfg.Name, cfg.Nick, conn)
	deliver := func(d connector.Delivery) bool {
		select {
		case ch <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}
	defer deliver(connector.Delivery{Session: sess, End: true})

	nick := cfg.Nick
	if err := register(sess, cfg, nick); err != nil {
		return false, err
	}
	slog.Info("irc connected", "network", cfg.Name, "server", cfg.Server, "session", sess.ID())

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 1024), maxLine)
	for sc.Scan() {
		m, err := irc.Parse(sc.Text())
		if err != nil {
			slog.Debug("skipping malformed line", "network", cfg.Name, "error", err)
			continue
		}

		switch m.Command {
		case "PING":
			if err := sess.Send(&irc.Message{Command: "PONG", Params: m.Params}); err != nil {
				return registered, err
			}
			continue
		case "CAP":
			if sub := m.Param(1); sub == "ACK" || sub == "NAK" {
				if err := sess.Send(&irc.Message{Command: "CAP", Params: []string{"END"}}); err != nil {
					return registered, err
				}
			}
			continue
		case "433": // ERR_NICKNAMEINUSE
			if !registered {
				nick += "_"
				if err := sess.Send(&irc.Message{Command: "NICK", Params: []string{nick}}); err != nil {
					return registered, err
				}
			}
			continue
		case "001":
			registered = true
			for _, name := range cfg.Channels {
				if err := sess.Send(&irc.Message{Command: "JOIN", Params: []string{name}}); err != nil {
					return registered, err
				}
			}
		case "ERROR":
			slog.Warn("irc server error", "network", cfg.Name, "message", m.Param(0))
		}

		if !deliver(connector.Delivery{Session: sess, Msg: m, Received: time.Now().UTC()}) {
			return registered, ctx.Err()
		}
	}
	if err := sc.Err(); err != nil {
		return registered, err
	}
	return registered, errors.New("connection closed by server")
}

// register sends the connection registration sequence. server-time is
// requested so replayed and lagged messages keep their original timestamps.
func register(sess *irc.Session, cfg config.NetworkConfig, nick string) error {
	msgs := []*irc.Message{
		{Command: "CAP", Params: []string{"REQ", "server-time"}},
	}
	if cfg.Password != "" {
		msgs = append(msgs, &irc.Message{Command: "PASS", Params: []string{cfg.Password}})
	}
	user := cfg.User
	if user == "" {
		user = nick
	}
	realName := cfg.RealName
	if realName == "" {
		realName = nick
	}
	msgs = append(msgs,
		&irc.Message{Command: "NICK", Params: []string{nick}},
		&irc.Message{Command: "USER", Params: []string{user, "0", "*", realName}},
	)
	for _, m := range msgs {
		if err := sess.Send(m); err != nil {
			return err
		}
	}
	return nil
}

func dialServer(ctx context.Context, cfg config.NetworkConfig) (net.Conn, error) {
	d := &net.Dialer{Timeout: dialTimeout, KeepAlive: 2 * time.Minute}
	if !cfg.TLS {
		return d.DialContext(ctx, "tcp", cfg.Server)
	}
	host := cfg.Server
	if h, _, err := net.SplitHostPort(cfg.Server); err == nil {
		host = h
	}
	td := &tls.Dialer{NetDialer: d, Config: &tls.Config{ServerName: strings.TrimSuffix(host, "."), MinVersion: tls.VersionTLS12}}
	return td.DialContext(ctx, "tcp", cfg.Server)
}
