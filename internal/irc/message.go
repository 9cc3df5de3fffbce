package irc

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformed is returned by Parse for lines that carry no command.
var ErrMalformed = errors.New("irc: malformed message")

// Message is a single protocol line split into its parts.
type Message struct {
	Tags    map[string]string
	Prefix  string // nick!user@host, or a server name
	Command string // upper-cased verb or three-digit numeric
	Params  []string
}

// Parse splits a raw protocol line. Trailing CR/LF is ignored.
func Parse(line string) (*Message, error) {
	line = strings.TrimLeft(strings.TrimRight(line, "\r\n"), " ")
	m := &Message{}

	if strings.HasPrefix(line, "@") {
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("%w: tags without command", ErrMalformed)
		}
		m.Tags = parseTags(line[1:sp])
		line = strings.TrimLeft(line[sp+1:], " ")
	}

	if strings.HasPrefix(line, ":") {
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("%w: prefix without command", ErrMalformed)
		}
		m.Prefix = line[1:sp]
		line = strings.TrimLeft(line[sp+1:], " ")
	}

	for line != "" {
		if strings.HasPrefix(line, ":") {
			m.Params = append(m.Params, line[1:])
			break
		}
		sp := strings.IndexByte(line, ' ')
		if sp < 0 {
			m.Params = append(m.Params, line)
			break
		}
		m.Params = append(m.Params, line[:sp])
		line = strings.TrimLeft(line[sp+1:], " ")
	}

	if len(m.Params) == 0 || m.Params[0] == "" {
		return nil, ErrMalformed
	}
	m.Command = strings.ToUpper(m.Params[0])
	m.Params = m.Params[1:]
	return m, nil
}

func parseTags(raw string) map[string]string {
	tags := make(map[string]string)
	for _, kv := range strings.Split(raw, ";") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		tags[k] = unescapeTag(v)
	}
	return tags
}

var tagUnescaper = strings.NewReplacer(`\:`, ";", `\s`, " ", `\\`, `\`, `\r`, "\r", `\n`, "\n")

func unescapeTag(v string) string {
	return tagUnescaper.Replace(v)
}

// Nick returns the nick portion of the prefix, or the whole prefix for server sources.
func (m *Message) Nick() string {
	if i := strings.IndexByte(m.Prefix, '!'); i >= 0 {
		return m.Prefix[:i]
	}
	return m.Prefix
}

// Param returns the i-th parameter or "" when absent.
func (m *Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// Time returns the IRCv3 server-time tag when present and well formed.
func (m *Message) Time() (time.Time, bool) {
	v, ok := m.Tags["time"]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

const ctcpDelim = "\x01"

// IsAction reports whether m is a CTCP ACTION carried in a PRIVMSG.
func (m *Message) IsAction() bool {
	if m.Command != "PRIVMSG" {
		return false
	}
	text := m.Param(1)
	return strings.HasPrefix(text, ctcpDelim+"ACTION ") || text == ctcpDelim+"ACTION"+ctcpDelim
}

// ActionText returns the body of a CTCP ACTION.
func (m *Message) ActionText() string {
	text := strings.TrimPrefix(m.Param(1), ctcpDelim+"ACTION")
	text = strings.TrimPrefix(text, " ")
	return strings.TrimSuffix(text, ctcpDelim)
}

// String renders the message in wire form without the line terminator.
func (m *Message) String() string {
	var b strings.Builder
	if m.Prefix != "" {
		b.WriteByte(':')
		b.WriteString(m.Prefix)
		b.WriteByte(' ')
	}
	b.WriteString(m.Command)
	for i, p := range m.Params {
		b.WriteByte(' ')
		if i == len(m.Params)-1 && (p == "" || strings.ContainsAny(p, " :") || p[0] == ':') {
			b.WriteByte(':')
		}
		b.WriteString(p)
	}
	return b.String()
}

// WithPrefix returns a shallow copy of m carrying the given prefix.
func (m *Message) WithPrefix(prefix string) *Message {
	cp := *m
	cp.Prefix = prefix
	return &cp
}

// Privmsg builds a PRIVMSG to target.
func Privmsg(target, text string) *Message {
	return &Message{Command: "PRIVMSG", Params: []string{target, text}}
}

// Notice builds a NOTICE to target.
func Notice(target, text string) *Message {
	return &Message{Command: "NOTICE", Params: []string{target, text}}
}
