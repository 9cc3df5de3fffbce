// Package gate decides which events are kept out of transcripts and carries
// the runtime logging toggle operators flip with commands.
package gate

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/crimson-sun/chanlog/internal/irc"
	"github.com/crimson-sun/chanlog/internal/model"
)

// Policy is the content filter applied to chat events on one channel.
type Policy struct {
	NoLogPrefix   string
	CommandPrefix string
	BotNick       string
}

// Reply is a message the caller should send on the gate's behalf.
type Reply struct {
	Target string
	Text   string
}

// Gate holds the per-channel runtime toggle. The zero value is not usable;
// call New.
type Gate struct {
	mu       sync.Mutex
	disabled map[string]bool // folded channel -> logging paused
}

// New returns a Gate with logging on for every channel.
func New() *Gate {
	return &Gate{disabled: make(map[string]bool)}
}

// Disabled reports whether an operator paused logging on channel.
func (g *Gate) Disabled(channel string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disabled[irc.Fold(channel)]
}

// Suppressed reports whether ev must not be logged to channel. Every event is
// suppressed while logging is paused. Chat, action and notice text is also
// suppressed when it opens with the no-log prefix or with a phrase that turns
// logging back on.
func (g *Gate) Suppressed(channel string, ev model.Event, p Policy) bool {
	if g.Disabled(channel) {
		return true
	}
	switch ev.Kind {
	case model.Chat, model.Action, model.Notice:
	default:
		return false
	}
	if p.NoLogPrefix != "" && strings.HasPrefix(ev.Text, p.NoLogPrefix) {
		return true
	}
	for _, phrase := range enablePhrases(p) {
		if strings.HasPrefix(ev.Text, phrase) {
			return true
		}
	}
	return false
}

func enablePhrases(p Policy) []string {
	var out []string
	if p.CommandPrefix != "" {
		out = append(out, p.CommandPrefix+"on")
	}
	if p.BotNick != "" {
		out = append(out, p.BotNick+": on", p.BotNick+", on")
	}
	return out
}

// Enable resumes logging on channel. When logging was paused the marker is
// addressed to the channel itself and tagged with noLogPrefix so it stays
// out of the transcript; otherwise replyTo is told nothing changed.
func (g *Gate) Enable(channel, replyTo, noLogPrefix string) Reply {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := irc.Fold(channel)
	if !g.disabled[key] {
		return Reply{Target: replyTo, Text: fmt.Sprintf("I'm already logging %s.", channel)}
	}
	delete(g.disabled, key)
	return Reply{Target: channel, Text: Tag(fmt.Sprintf("Logging is now on for %s.", channel), noLogPrefix)}
}

// Disable pauses logging on channel. The confirmation goes only to the
// invoking nick.
func (g *Gate) Disable(channel, invoker string) Reply {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.disabled[irc.Fold(channel)] = true
	return Reply{Target: invoker, Text: fmt.Sprintf("Logging is off for %s.", channel)}
}

// Status reports whether channel is being logged.
func (g *Gate) Status(channel, replyTo string) Reply {
	if g.Disabled(channel) {
		return Reply{Target: replyTo, Text: fmt.Sprintf("I'm not logging %s.", channel)}
	}
	return Reply{Target: replyTo, Text: fmt.Sprintf("I'm logging %s.", channel)}
}

// Tag prefixes text with noLogPrefix unless the prefix is empty or already there.
func Tag(text, noLogPrefix string) string {
	if noLogPrefix == "" || strings.HasPrefix(text, noLogPrefix) {
		return text
	}
	return noLogPrefix + " " + text
}

// TagReply applies the in-reply-to rewrite: a reply to a message that opened
// with noLogPrefix is tagged the same way so the exchange stays off the record.
func TagReply(reply, inReplyTo, noLogPrefix string) string {
	if noLogPrefix == "" || !strings.HasPrefix(inReplyTo, noLogPrefix) {
		return reply
	}
	return Tag(reply, noLogPrefix)
}

// Authorized reports whether source (nick!user@host) matches one of the
// operator hostmask globs. Matching is case-insensitive.
func Authorized(operators []string, source string) bool {
	src := strings.ToLower(source)
	for _, mask := range operators {
		if ok, _ := path.Match(strings.ToLower(mask), src); ok {
			return true
		}
	}
	return false
}
