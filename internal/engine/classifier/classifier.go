// Package classifier maps protocol messages onto transcript events.
package classifier

import (
	"strings"
	"time"

	"github.com/crimson-sun/chanlog/internal/irc"
	"github.com/crimson-sun/chanlog/internal/model"
)

// Classify turns m into an Event. It reports false for messages that never
// appear in a transcript and for messages missing required parameters. The
// event time is the server-time tag when present, otherwise received.
func Classify(m *irc.Message, received time.Time) (model.Event, bool) {
	ev := model.Event{
		Time:    received.UTC(),
		Nick:    m.Nick(),
		Address: m.Prefix,
	}
	if t, ok := m.Time(); ok {
		ev.Time = t
	}

	switch m.Command {
	case "PRIVMSG":
		if len(m.Params) < 2 {
			return ev, false
		}
		ev.Targets = splitTargets(m.Param(0))
		if m.IsAction() {
			ev.Kind = model.Action
			ev.Text = m.ActionText()
		} else {
			ev.Kind = model.Chat
			ev.Text = m.Param(1)
		}
	case "NOTICE":
		if len(m.Params) < 2 {
			return ev, false
		}
		ev.Kind = model.Notice
		ev.Targets = splitTargets(m.Param(0))
		ev.Text = m.Param(1)
	case "JOIN":
		ev.Kind = model.Join
		ev.Targets = splitTargets(m.Param(0))
	case "PART":
		ev.Kind = model.Part
		ev.Targets = splitTargets(m.Param(0))
		if len(m.Params) > 1 {
			ev.Reason, ev.HasReason = m.Param(1), true
		}
	case "KICK":
		if len(m.Params) < 2 {
			return ev, false
		}
		ev.Kind = model.Kick
		ev.Targets = []string{m.Param(0)}
		ev.Victim = m.Param(1)
		ev.Reason = m.Param(2)
		ev.HasReason = len(m.Params) > 2
	case "NICK":
		if m.Param(0) == "" {
			return ev, false
		}
		ev.Kind = model.NickChange
		ev.NewNick = m.Param(0)
	case "MODE":
		// A mode change without a mode string is a query.
		if len(m.Params) < 2 {
			return ev, false
		}
		ev.Kind = model.ModeChange
		ev.Targets = []string{m.Param(0)}
		ev.Modes = m.Param(1)
		ev.ModeArgs = append([]string(nil), m.Params[2:]...)
	case "TOPIC":
		// A topic query carries no new topic.
		if len(m.Params) < 2 {
			return ev, false
		}
		ev.Kind = model.TopicChange
		ev.Targets = []string{m.Param(0)}
		ev.Topic = m.Param(1)
	case "QUIT":
		ev.Kind = model.Quit
		if len(m.Params) > 0 {
			ev.Reason, ev.HasReason = m.Param(0), true
		}
	default:
		return ev, false
	}
	return ev, true
}

func splitTargets(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
