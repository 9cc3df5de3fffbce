// Package replay feeds recorded protocol traffic from a file, one raw line
// per message. Lines may carry an IRCv3 time tag; lines without one are
// stamped with the time they are read.
package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/connector"
	"github.com/crimson-sun/chanlog/internal/irc"
)

const maxLine = 64 * 1024

func init() {
	connector.Register("replay", func() connector.Connector {
		return &Connector{}
	})
}

// Connector implements connector.Connector over a recorded traffic file.
type Connector struct {
	now func() time.Time
}

func (c *Connector) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now()
}

func (c *Connector) Stream(ctx context.Context, cfg config.NetworkConfig) (<-chan connector.Delivery, error) {
	f, err := os.Open(cfg.ReplayFile)
	if err != nil {
		return nil, fmt.Errorf("replay connector: %w", err)
	}
	sess := irc.NewSession(cfg.Name, cfg.Nick, nil)

	ch := make(chan connector.Delivery, 64)
	go func() {
		defer close(ch)
		defer f.Close()

		err := c.read(f, cfg.Name, func(m *irc.Message, received time.Time) bool {
			select {
			case ch <- connector.Delivery{Session: sess, Msg: m, Received: received}:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil {
			slog.Error("replay read failed", "network", cfg.Name, "file", cfg.ReplayFile, "error", err)
		}
		select {
		case ch <- connector.Delivery{Session: sess, End: true}:
		case <-ctx.Done():
		}
	}()
	return ch, nil
}

func (c *Connector) Query(ctx context.Context, cfg config.NetworkConfig, params connector.QueryParams) ([]connector.Delivery, error) {
	f, err := os.Open(cfg.ReplayFile)
	if err != nil {
		return nil, fmt.Errorf("replay connector: %w", err)
	}
	defer f.Close()
	sess := irc.NewSession(cfg.Name, cfg.Nick, nil)

	var results []connector.Delivery
	matched := 0
	err = c.read(f, cfg.Name, func(m *irc.Message, received time.Time) bool {
		if ctx.Err() != nil {
			return false
		}
		at := received
		if t, ok := m.Time(); ok {
			at = t
		}
		if !params.Match(at) {
			// Membership changes outside the window still shape the rosters.
			if affectsRoster(m) {
				results = append(results, connector.Delivery{Session: sess, Msg: m, Received: received, StateOnly: true})
			}
			return true
		}
		results = append(results, connector.Delivery{Session: sess, Msg: m, Received: received})
		matched++
		return params.Limit <= 0 || matched < params.Limit
	})
	if err != nil {
		return nil, fmt.Errorf("replay connector: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// read parses r line by line, calling emit for each message until emit
// returns false. Malformed lines are skipped.
func (c *Connector) read(r io.Reader, network string, emit func(*irc.Message, time.Time) bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if line == "" {
			continue
		}
		m, err := irc.Parse(line)
		if errors.Is(err, irc.ErrMalformed) {
			slog.Debug("skipping malformed replay line", "network", network, "line", lineNo)
			continue
		}
		if err != nil {
			return err
		}
		if !emit(m, c.clock().UTC()) {
			return nil
		}
	}
	return sc.Err()
}

func affectsRoster(m *irc.Message) bool {
	switch m.Command {
	case "001", "005", "353", "JOIN", "PART", "KICK", "QUIT", "NICK":
		return true
	}
	return false
}
