package irc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrivmsg(t *testing.T) {
	m, err := Parse(":alice!a@example.org PRIVMSG #go :hello there\r\n")
	require.NoError(t, err)

	assert.Equal(t, "alice!a@example.org", m.Prefix)
	assert.Equal(t, "alice", m.Nick())
	assert.Equal(t, "PRIVMSG", m.Command)
	assert.Equal(t, []string{"#go", "hello there"}, m.Params)
}

func TestParseTagsAndServerTime(t *testing.T) {
	m, err := Parse(`@time=2026-03-01T12:30:45.123Z;msgid=a\sb :bob!b@h JOIN #go`)
	require.NoError(t, err)

	assert.Equal(t, "a b", m.Tags["msgid"])
	ts, ok := m.Time()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 30, 45, 123000000, time.UTC), ts)
}

func TestParseWithoutPrefix(t *testing.T) {
	m, err := Parse("PING :irc.example.org")
	require.NoError(t, err)
	assert.Equal(t, "", m.Prefix)
	assert.Equal(t, "PING", m.Command)
	assert.Equal(t, "irc.example.org", m.Param(0))
	assert.Equal(t, "", m.Param(3))
}

func TestParseMalformed(t *testing.T) {
	for _, line := range []string{"", ":prefixonly", "@a=b", "   "} {
		_, err := Parse(line)
		assert.ErrorIs(t, err, ErrMalformed, "line %q", line)
	}
}

func TestActionDetection(t *testing.T) {
	m, err := Parse(":alice!a@h PRIVMSG #go :\x01ACTION waves\x01")
	require.NoError(t, err)
	assert.True(t, m.IsAction())
	assert.Equal(t, "waves", m.ActionText())

	plain, _ := Parse(":alice!a@h PRIVMSG #go :ACTION waves")
	assert.False(t, plain.IsAction())
}

func TestStringRoundTrip(t *testing.T) {
	m := Privmsg("#go", "hi: there")
	assert.Equal(t, "PRIVMSG #go :hi: there", m.String())

	m = &Message{Command: "JOIN", Params: []string{"#go"}}
	assert.Equal(t, "JOIN #go", m.String())

	m = Notice("bob", "x").WithPrefix("me!u@h")
	assert.Equal(t, ":me!u@h NOTICE bob x", m.String())
}
