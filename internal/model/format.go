package model

import (
	"fmt"
	"strings"
	"time"
)

// Format selects one of the parallel transcript renderings.
type Format int

const (
	Plain  Format = iota // line-oriented text
	Markup               // HTML with per-line anchors
)

// Formats lists every format in a stable order.
var Formats = []Format{Plain, Markup}

// String returns the configuration name of the format.
func (f Format) String() string {
	switch f {
	case Plain:
		return "plain"
	case Markup:
		return "markup"
	default:
		return "unknown"
	}
}

// Ext returns the file extension used for the format.
func (f Format) Ext() string {
	if f == Markup {
		return "html"
	}
	return "log"
}

// ParseFormat maps a configuration name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain", "log", "text":
		return Plain, nil
	case "markup", "html":
		return Markup, nil
	}
	return 0, fmt.Errorf("unknown log format %q", s)
}

// Record is one rendered transcript line bound for a (connection, channel, format) triple.
type Record struct {
	ConnID  string
	Network string
	Channel string // folded channel name
	Format  Format
	Time    time.Time
	Line    string // fully rendered, including the terminating newline
}
