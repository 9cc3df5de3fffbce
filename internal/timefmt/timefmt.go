// Package timefmt renders strftime-style patterns, caching compiled patterns.
package timefmt

import (
	"sync"
	"time"

	"github.com/lestrrat-go/strftime"
)

var compiled sync.Map // pattern -> *strftime.Strftime

// Format renders t (converted to UTC) with the strftime pattern p. Patterns
// that fail to compile are returned verbatim; configuration validation
// rejects them before they reach this point.
func Format(p string, t time.Time) string {
	if p == "" {
		return ""
	}
	if f, ok := compiled.Load(p); ok {
		return f.(*strftime.Strftime).FormatString(t.UTC())
	}
	f, err := strftime.New(p)
	if err != nil {
		return p
	}
	compiled.Store(p, f)
	return f.FormatString(t.UTC())
}
