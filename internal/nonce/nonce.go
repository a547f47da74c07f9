// Package nonce issues strictly increasing integers for signed requests.
package nonce

import (
	"sync/atomic"
	"time"
)

// Generator hands out millisecond-clock nonces. When the clock has not
// advanced since the last value, or has gone backwards, the previous value
// plus one is issued instead.
type Generator struct {
	last atomic.Int64
	now  func() int64
}

// New returns a generator driven by the wall clock.
func New() *Generator {
	return NewWithClock(func() int64 { return time.Now().UnixMilli() })
}

// NewWithClock returns a generator driven by now.
func NewWithClock(now func() int64) *Generator {
	return &Generator{now: now}
}

// Next returns a value strictly greater than every value returned before.
// Safe for concurrent use.
func (g *Generator) Next() int64 {
	for {
		last := g.last.Load()
		n := g.now()
		if n <= last {
			n = last + 1
		}
		if g.last.CompareAndSwap(last, n) {
			return n
		}
	}
}
