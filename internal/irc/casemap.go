package irc

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Fold normalizes a nick or channel name using RFC 1459 casemapping, where
// []\~ are the upper-case forms of {}|^. Non-ASCII names are additionally
// case-folded with Unicode rules so that servers allowing UTF-8 names map
// equivalent spellings to one key.
func Fold(name string) string {
	if !isASCII(name) {
		name = cases.Fold().String(name)
	}
	return strings.Map(rfc1459Lower, name)
}

// EqualFold reports whether a and b name the same nick or channel.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}

func rfc1459Lower(r rune) rune {
	switch {
	case r >= 'A' && r <= 'Z':
		return r + ('a' - 'A')
	case r == '[':
		return '{'
	case r == ']':
		return '}'
	case r == '\\':
		return '|'
	case r == '~':
		return '^'
	}
	return r
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
