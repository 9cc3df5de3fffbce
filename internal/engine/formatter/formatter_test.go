package formatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/model"
)

var at = time.Date(2026, 5, 1, 9, 8, 7, 123456789, time.UTC)

func plainOpts() Options {
	return Options{Enable: true}
}

func mustFormat(t *testing.T, ev model.Event, f model.Format, opts Options) string {
	t.Helper()
	got, ok := Format(ev, "#go", f, opts)
	require.True(t, ok)
	return got
}

func TestPlainTemplates(t *testing.T) {
	tests := []struct {
		name string
		ev   model.Event
		want string
	}{
		{"chat", model.Event{Kind: model.Chat, Nick: "alice", Text: "hello"}, "<alice> hello\n"},
		{"action", model.Event{Kind: model.Action, Nick: "alice", Text: "waves"}, "* alice waves\n"},
		{"notice", model.Event{Kind: model.Notice, Nick: "bot", Text: "hi"}, "-bot- hi\n"},
		{"join", model.Event{Kind: model.Join, Nick: "bob", Address: "bob!b@host"}, "*** bob <bob!b@host> has joined #go\n"},
		{"part", model.Event{Kind: model.Part, Nick: "bob", Address: "bob!b@host"}, "*** bob <bob!b@host> has left #go\n"},
		{"part reason", model.Event{Kind: model.Part, Nick: "bob", Address: "bob!b@host", Reason: "bye", HasReason: true}, "*** bob <bob!b@host> has left #go (bye)\n"},
		{"kick", model.Event{Kind: model.Kick, Nick: "op", Victim: "bob"}, "*** bob was kicked by op\n"},
		{"kick reason", model.Event{Kind: model.Kick, Nick: "op", Victim: "bob", Reason: "spam"}, "*** bob was kicked by op (spam)\n"},
		{"nick", model.Event{Kind: model.NickChange, Nick: "bob", NewNick: "robert"}, "*** bob is now known as robert\n"},
		{"mode", model.Event{Kind: model.ModeChange, Nick: "op", Modes: "+ov", ModeArgs: []string{"a", "b"}}, "*** op sets mode: +ov a b\n"},
		{"topic", model.Event{Kind: model.TopicChange, Nick: "op", Topic: "Go 1.24"}, "*** op changes topic to \"Go 1.24\"\n"},
		{"quit", model.Event{Kind: model.Quit, Nick: "bob", Address: "bob!b@host", Reason: "Ping timeout", HasReason: true}, "*** bob <bob!b@host> has quit IRC (Ping timeout)\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mustFormat(t, tt.ev, model.Plain, plainOpts()))
		})
	}
}

func TestMarkupKickTemplates(t *testing.T) {
	ev := model.Event{Kind: model.Kick, Nick: "op", Victim: "bob"}
	assert.Equal(t,
		`<p class="kick"><span>&larr; <span class="nick">bob</span> was kicked by <span class="nick">op</span></span></p>`+"\n",
		mustFormat(t, ev, model.Markup, plainOpts()))

	ev.Reason = "see http://rules.example/."
	got := mustFormat(t, ev, model.Markup, plainOpts())
	assert.Contains(t, got, `<span class="kickmessage">(see <a href="http://rules.example/">http://rules.example/</a>.)</span>`)
}

func TestMarkupEscapesUntrustedText(t *testing.T) {
	ev := model.Event{Kind: model.Chat, Nick: "<script>", Text: `<b>"hi"</b> & bye`}
	got := mustFormat(t, ev, model.Markup, plainOpts())

	assert.Contains(t, got, "&lt;script&gt;")
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, `&lt;b&gt;"hi"&lt;/b&gt; &amp; bye`)
	assert.Contains(t, got, `<p class="privmsg">`)
}

func TestMarkupJoinEscapesHostmask(t *testing.T) {
	ev := model.Event{Kind: model.Join, Nick: "x", Address: "x!<u>@h"}
	got := mustFormat(t, ev, model.Markup, plainOpts())
	assert.Equal(t,
		`<p class="join"><span>&rarr; <span class="nick">x</span> <span class="hostmask">&lt;x!&lt;u&gt;@h&gt;</span> has joined <span class="channel">#go</span></span></p>`+"\n",
		got)
}

func TestActionClass(t *testing.T) {
	ev := model.Event{Kind: model.Action, Nick: "alice", Text: "waves"}
	got := mustFormat(t, ev, model.Markup, plainOpts())
	assert.Equal(t, `<p class="action privmsg"><span>&bull; <span class="nick">alice</span> waves</span></p>`+"\n", got)
}

func TestDisabledChannelProducesNothing(t *testing.T) {
	_, ok := Format(model.Event{Kind: model.Chat, Nick: "a", Text: "b"}, "#go", model.Plain, Options{})
	assert.False(t, ok)
}

func TestPlainTimestamp(t *testing.T) {
	opts := Options{Enable: true, Timestamp: true, TimestampFormat: "%H:%M:%S"}
	got := mustFormat(t, model.Event{Kind: model.Chat, Time: at, Nick: "a", Text: "b"}, model.Plain, opts)
	assert.Equal(t, "09:08:07  <a> b\n", got)
}

func TestMarkupTimestampAnchor(t *testing.T) {
	opts := Options{Enable: true, Timestamp: true, TimestampFormat: "%Y-%m-%dT%H:%M:%S"}
	got := mustFormat(t, model.Event{Kind: model.Chat, Time: at, Nick: "a", Text: "b"}, model.Markup, opts)
	assert.Equal(t,
		`<p class="privmsg"><a id="09-08-07-123456" href="#09-08-07-123456" class="timestamp" title="2026-05-01T09:08:07">09:08:07</a> `+
			`<span><span class="nick">&lt;a&gt;</span> b</span></p>`+"\n",
		got)
}

func TestMarkupAnchorOverride(t *testing.T) {
	opts := Options{Enable: true, Timestamp: true, TimestampFormat: "%H:%M:%S", Anchor: AnchorID(at) + "-1"}
	got := mustFormat(t, model.Event{Kind: model.Chat, Time: at, Nick: "a", Text: "b"}, model.Markup, opts)
	assert.Contains(t, got, `<a id="09-08-07-123456-1" href="#09-08-07-123456-1" class="timestamp"`)
}

func TestMarkupQuotedURLStaysLinked(t *testing.T) {
	ev := model.Event{Kind: model.TopicChange, Nick: "op", Topic: `docs at "https://go.dev/doc"`}
	got := mustFormat(t, ev, model.Markup, plainOpts())
	assert.Contains(t, got, `<span class="topic">"docs at "<a href="https://go.dev/doc">https://go.dev/doc</a>""</span>`)
}

func TestEmptyTimestampFormatOmitsToken(t *testing.T) {
	opts := Options{Enable: true, Timestamp: true}
	got := mustFormat(t, model.Event{Kind: model.Chat, Time: at, Nick: "a", Text: "b"}, model.Markup, opts)
	assert.NotContains(t, got, "timestamp")
}

func TestStripFormattingOption(t *testing.T) {
	ev := model.Event{Kind: model.Chat, Nick: "a", Text: "\x02bold\x02 \x0304,12red\x03 plain"}

	got := mustFormat(t, ev, model.Plain, Options{Enable: true, StripFormatting: true})
	assert.Equal(t, "<a> bold red plain\n", got)

	got = mustFormat(t, ev, model.Plain, plainOpts())
	assert.Contains(t, got, "\x02bold")
}

func TestOptionsForUsesChannelOverrides(t *testing.T) {
	s := config.DefaultSettings()
	off := false
	s.Channels = map[string]config.ChannelOverride{"#Quiet": {Enable: &off}}

	assert.False(t, OptionsFor(&s, "#quiet").Enable)
	opts := OptionsFor(&s, "#go")
	assert.True(t, opts.Enable)
	assert.True(t, opts.StripFormatting)
	assert.Equal(t, s.TimestampFormat, opts.TimestampFormat)
}
