package formatter

import (
	"regexp"
	"strings"
)

// urlPattern finds the longest run of URL characters after a known scheme.
// Linkify then trims trailing punctuation from each match.
var urlPattern = regexp.MustCompile(`\b(?:https?|telnet|gopher|file|wais|ftp):[\w/#~:.?+=&%@!;\-]+`)

const urlTrailing = ".:;?-"

// escaper escapes only what is special in element content. Quotes stay
// literal so they can delimit URLs in the raw text.
var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// Escape makes s safe as markup element content.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Linkify escapes raw text for markup and wraps its URLs in anchors. A run
// of trailing sentence punctuation stays outside the anchor, but at least
// one character after the scheme is always kept.
func Linkify(text string) string {
	locs := urlPattern.FindAllStringIndex(text, -1)
	if locs == nil {
		return Escape(text)
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		minEnd := strings.IndexByte(text[start:end], ':') + start + 2
		for end > minEnd && strings.IndexByte(urlTrailing, text[end-1]) >= 0 {
			end--
		}
		url := Escape(text[start:end])
		b.WriteString(Escape(text[last:start]))
		b.WriteString(`<a href="`)
		b.WriteString(url)
		b.WriteString(`">`)
		b.WriteString(url)
		b.WriteString(`</a>`)
		last = end
	}
	b.WriteString(Escape(text[last:]))
	return b.String()
}

// formatCodes matches IRC text formatting: bold, color with optional
// foreground and background, hex color, reset, monospace, reverse, italic,
// strikethrough and underline.
var formatCodes = regexp.MustCompile(`\x03(?:\d{1,2}(?:,\d{1,2})?)?|\x04(?:[0-9a-fA-F]{6}(?:,[0-9a-fA-F]{6})?)?|[\x02\x0f\x11\x16\x1d\x1e\x1f]`)

// StripFormatting removes IRC formatting control codes from s.
func StripFormatting(s string) string {
	if strings.IndexFunc(s, isFormatCode) < 0 {
		return s
	}
	return formatCodes.ReplaceAllString(s, "")
}

func isFormatCode(r rune) bool {
	switch r {
	case 0x02, 0x03, 0x04, 0x0f, 0x11, 0x16, 0x1d, 0x1e, 0x1f:
		return true
	}
	return false
}
