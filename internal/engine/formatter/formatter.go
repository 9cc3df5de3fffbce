// Package formatter renders classified channel events as transcript lines.
package formatter

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/model"
	"github.com/crimson-sun/chanlog/internal/timefmt"
)

// Options are the per-channel rendering switches.
type Options struct {
	Enable          bool
	Timestamp       bool
	TimestampFormat string // empty disables the timestamp token
	StripFormatting bool
	Anchor          string // markup line id; empty derives it from the event time
}

// OptionsFor resolves rendering options for channel from s.
func OptionsFor(s *config.Settings, channel string) Options {
	cs := s.Channel(channel)
	return Options{
		Enable:          cs.Enable,
		Timestamp:       cs.Timestamp,
		TimestampFormat: s.TimestampFormat,
		StripFormatting: cs.StripFormatting,
	}
}

// Format renders ev for channel in format f. It reports false when the
// channel is not enabled or ev has no transcript form.
func Format(ev model.Event, channel string, f model.Format, opts Options) (string, bool) {
	if !opts.Enable {
		return "", false
	}
	class, body, ok := render(ev, channel, f)
	if !ok {
		return "", false
	}

	var b strings.Builder
	if f == model.Markup {
		if class != "" {
			fmt.Fprintf(&b, `<p class="%s">`, class)
		} else {
			b.WriteString("<p>")
		}
	}
	if opts.Timestamp {
		b.WriteString(timestamp(ev.Time, f, opts.TimestampFormat, opts.Anchor))
	}
	if opts.StripFormatting {
		body = StripFormatting(body)
	}
	b.WriteString(body)
	if f == model.Markup {
		b.WriteString("</p>")
	}
	b.WriteByte('\n')
	return b.String(), true
}

// AnchorID is the markup line id for an event at t: the time of day plus
// the microsecond. Events sharing a microsecond need a suffix to stay unique.
func AnchorID(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s-%06d", t.Format("15-04-05"), t.Nanosecond()/int(time.Microsecond))
}

// timestamp renders the per-line time token. Markup lines get an anchor so
// they can be linked individually.
func timestamp(t time.Time, f model.Format, pattern, id string) string {
	if pattern == "" {
		return ""
	}
	t = t.UTC()
	stamp := timefmt.Format(pattern, t)
	if f != model.Markup {
		return stamp + "  "
	}
	if id == "" {
		id = AnchorID(t)
	}
	return fmt.Sprintf(`<a id="%s" href="#%s" class="timestamp" title="%s">%s</a> `,
		id, id, html.EscapeString(stamp), t.Format("15:04:05"))
}

// render selects the per-kind template. It returns the markup paragraph
// class and the record body.
func render(ev model.Event, channel string, f model.Format) (class, body string, ok bool) {
	if f == model.Markup {
		return renderMarkup(ev, channel)
	}
	return renderPlain(ev, channel)
}

func renderPlain(ev model.Event, channel string) (string, string, bool) {
	switch ev.Kind {
	case model.Chat:
		return "", fmt.Sprintf("<%s> %s", ev.Nick, ev.Text), true
	case model.Action:
		return "", fmt.Sprintf("* %s %s", ev.Nick, ev.Text), true
	case model.Notice:
		return "", fmt.Sprintf("-%s- %s", ev.Nick, ev.Text), true
	case model.Join:
		return "", fmt.Sprintf("*** %s <%s> has joined %s", ev.Nick, ev.Address, channel), true
	case model.Part:
		return "", fmt.Sprintf("*** %s <%s> has left %s%s", ev.Nick, ev.Address, channel, reason(ev)), true
	case model.Kick:
		if ev.Reason != "" {
			return "", fmt.Sprintf("*** %s was kicked by %s (%s)", ev.Victim, ev.Nick, ev.Reason), true
		}
		return "", fmt.Sprintf("*** %s was kicked by %s", ev.Victim, ev.Nick), true
	case model.NickChange:
		return "", fmt.Sprintf("*** %s is now known as %s", ev.Nick, ev.NewNick), true
	case model.ModeChange:
		return "", fmt.Sprintf("*** %s sets mode: %s %s", ev.Nick, ev.Modes, strings.Join(ev.ModeArgs, " ")), true
	case model.TopicChange:
		return "", fmt.Sprintf(`*** %s changes topic to "%s"`, ev.Nick, ev.Topic), true
	case model.Quit:
		return "", fmt.Sprintf("*** %s <%s> has quit IRC%s", ev.Nick, ev.Address, reason(ev)), true
	}
	return "", "", false
}

func renderMarkup(ev model.Event, channel string) (string, string, bool) {
	esc := Escape
	nick := esc(ev.Nick)
	switch ev.Kind {
	case model.Chat:
		return "privmsg", fmt.Sprintf(`<span><span class="nick">&lt;%s&gt;</span> %s</span>`,
			nick, Linkify(ev.Text)), true
	case model.Action:
		return "action privmsg", fmt.Sprintf(`<span>&bull; <span class="nick">%s</span> %s</span>`,
			nick, Linkify(ev.Text)), true
	case model.Notice:
		return "notice", fmt.Sprintf(`<span><span class="nick">-%s-</span> %s</span>`,
			nick, Linkify(ev.Text)), true
	case model.Join:
		return "join", fmt.Sprintf(`<span>&rarr; <span class="nick">%s</span> <span class="hostmask">&lt;%s&gt;</span> has joined <span class="channel">%s</span></span>`,
			nick, esc(ev.Address), esc(channel)), true
	case model.Part:
		return "part", fmt.Sprintf(`<span>&larr; <span class="nick">%s</span> <span class="hostmask">&lt;%s&gt;</span> has left <span class="channel">%s</span><span class="reason">%s</span></span>`,
			nick, esc(ev.Address), esc(channel), Linkify(reason(ev))), true
	case model.Kick:
		if ev.Reason != "" {
			return "kick", fmt.Sprintf(`<span>&larr; <span class="nick">%s</span> was kicked by <span class="nick">%s</span> <span class="kickmessage">(%s)</span></span>`,
				esc(ev.Victim), nick, Linkify(ev.Reason)), true
		}
		return "kick", fmt.Sprintf(`<span>&larr; <span class="nick">%s</span> was kicked by <span class="nick">%s</span></span>`,
			esc(ev.Victim), nick), true
	case model.NickChange:
		return "nickchange", fmt.Sprintf(`<span>&bull;&bull;&bull; <span class="nick">%s</span> is now known as <span class="nick">%s</span></span>`,
			nick, esc(ev.NewNick)), true
	case model.ModeChange:
		return "modechange", fmt.Sprintf(`<span>&bull;&bull;&bull; <span class="nick">%s</span> sets mode: <span class="channel">%s</span> <span class="modes">%s</span></span>`,
			nick, esc(ev.Modes), esc(strings.Join(ev.ModeArgs, " "))), true
	case model.TopicChange:
		return "topicchange", fmt.Sprintf(`<span>&bull;&bull;&bull; <span class="nick">%s</span> changes topic to <span class="topic">"%s"</span></span>`,
			nick, Linkify(ev.Topic)), true
	case model.Quit:
		return "quit", fmt.Sprintf(`<span>&larr; <span class="nick">%s</span> <span class="hostmask">&lt;%s&gt;</span> has quit IRC<span class="reason">%s</span></span>`,
			nick, esc(ev.Address), Linkify(reason(ev))), true
	}
	return "", "", false
}

// reason renders the optional part/quit reason suffix.
func reason(ev model.Event) string {
	if !ev.HasReason {
		return ""
	}
	return " (" + ev.Reason + ")"
}
