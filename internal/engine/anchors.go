package engine

import (
	"strconv"
	"sync"
	"time"

	"github.com/crimson-sun/chanlog/internal/engine/formatter"
)

type anchorKey struct {
	connID  string
	channel string
}

type anchorRun struct {
	base string
	n    int
}

// anchors hands out markup line ids that stay unique within a channel log
// when consecutive events share a timestamp.
type anchors struct {
	mu   sync.Mutex
	last map[anchorKey]anchorRun
}

func newAnchors() *anchors {
	return &anchors{last: make(map[anchorKey]anchorRun)}
}

// next returns the id for an event at t in channel. Repeats of the previous
// id gain a -1, -2, ... suffix.
func (a *anchors) next(connID, channel string, t time.Time) string {
	base := formatter.AnchorID(t)
	key := anchorKey{connID, channel}

	a.mu.Lock()
	defer a.mu.Unlock()
	run := a.last[key]
	if run.base != base {
		a.last[key] = anchorRun{base: base}
		return base
	}
	run.n++
	a.last[key] = run
	return base + "-" + strconv.Itoa(run.n)
}

func (a *anchors) forget(connID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range a.last {
		if k.connID == connID {
			delete(a.last, k)
		}
	}
}

func (a *anchors) reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = make(map[anchorKey]anchorRun)
}
