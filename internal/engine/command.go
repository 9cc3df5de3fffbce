package engine

import (
	"strings"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/engine/gate"
	"github.com/crimson-sun/chanlog/internal/irc"
	"github.com/crimson-sun/chanlog/internal/model"
)

const (
	msgNeedChannel  = "I need a channel name."
	msgNoPermission = "You don't have permission to do that."
)

// command runs the logging on/off/status command carried by ev, if any.
// Commands work in a channel or in a private message to the bot. A command
// sent after the no-log prefix is answered off the record too.
func (e *Engine) command(ev model.Event, state *irc.State, s *config.Settings) []*irc.Message {
	if len(ev.Targets) != 1 {
		return nil
	}
	target := ev.Targets[0]
	private := !state.IsChannel(target)

	prefix := s.Defaults.NoLogPrefix
	if !private {
		prefix = s.Channel(target).NoLogPrefix
	}
	text := ev.Text
	if prefix != "" {
		if rest, ok := strings.CutPrefix(text, prefix); ok {
			text = rest
		}
	}

	p := gate.Policy{CommandPrefix: s.CommandPrefix, BotNick: state.Nick}
	cmd, ok := gate.ParseCommand(text, p, private)
	if !ok {
		return nil
	}

	replyTo := target
	if private {
		replyTo = ev.Nick
	}
	channel := cmd.Channel
	if channel == "" && !private {
		channel = target
	}

	var r gate.Reply
	switch {
	case channel == "":
		r = gate.Reply{Target: replyTo, Text: msgNeedChannel}
	case cmd.Name != gate.CmdStatus && !gate.Authorized(s.Operators, ev.Address):
		e.log.Warn("refused logging command", "command", cmd.Name, "channel", channel, "source", ev.Address)
		r = gate.Reply{Target: replyTo, Text: msgNoPermission}
	case cmd.Name == gate.CmdOn:
		r = e.gate.Enable(channel, replyTo, s.Channel(channel).NoLogPrefix)
		e.log.Info("logging resumed", "channel", channel, "source", ev.Address)
	case cmd.Name == gate.CmdOff:
		r = e.gate.Disable(channel, ev.Nick)
		e.log.Info("logging paused", "channel", channel, "source", ev.Address)
	default:
		r = e.gate.Status(channel, replyTo)
	}

	replyPrefix := s.Defaults.NoLogPrefix
	if state.IsChannel(r.Target) {
		replyPrefix = s.Channel(r.Target).NoLogPrefix
	}
	return []*irc.Message{irc.Privmsg(r.Target, gate.TagReply(r.Text, ev.Text, replyPrefix))}
}
