package gate

import (
	"strings"

	"github.com/crimson-sun/chanlog/internal/irc"
)

// Command names.
const (
	CmdStatus = "logging"
	CmdOn     = "on"
	CmdOff    = "off"
)

// Command is a parsed administrative request.
type Command struct {
	Name    string
	Channel string // empty when no channel argument was given
}

// ParseCommand recognises "<prefix>name [#channel]", "<bot>: name" and
// "<bot>, name". In a private message the bare "name [#channel]" form is
// accepted too.
func ParseCommand(text string, p Policy, private bool) (Command, bool) {
	text = strings.TrimSpace(text)
	rest, ok := "", false
	if p.CommandPrefix != "" {
		rest, ok = strings.CutPrefix(text, p.CommandPrefix)
	}
	if !ok && p.BotNick != "" {
		rest, ok = cutAddress(text, p.BotNick)
	}
	if !ok && private {
		rest, ok = text, true
	}
	if !ok {
		return Command{}, false
	}

	fields := strings.Fields(rest)
	if len(fields) == 0 || len(fields) > 2 {
		return Command{}, false
	}
	cmd := Command{Name: strings.ToLower(fields[0])}
	switch cmd.Name {
	case CmdStatus, CmdOn, CmdOff:
	default:
		return Command{}, false
	}
	if len(fields) == 2 {
		cmd.Channel = fields[1]
	}
	return cmd, true
}

// cutAddress strips "<nick>:" or "<nick>," from the front of text.
func cutAddress(text, nick string) (string, bool) {
	if len(text) <= len(nick) || !irc.EqualFold(text[:len(nick)], nick) {
		return "", false
	}
	switch text[len(nick)] {
	case ':', ',':
		return text[len(nick)+1:], true
	}
	return "", false
}
