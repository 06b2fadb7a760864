// Package progress carries pipeline progress from the update worker to
// whatever front end is watching.
//
// Emitting never blocks. Events go into a buffered channel; when the buffer
// is full or nobody drains it the event is dropped and counted.
package progress

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the channel capacity used by NewEmitter when size <= 0.
const DefaultBuffer = 64

// Event is one progress notification.
//
// Description is the long-lived headline ("Downloading update...") and
// Status the frequently changing detail line ("Downloaded 42%  Speed ...").
// Either may be empty, meaning "unchanged".
type Event struct {
	Percent       float64
	Indeterminate bool
	Description   string
	Status        string
}

// Percentage builds a determinate event, clamped to [0, 100].
func Percentage(pct float64, status string) Event {
	switch {
	case pct < 0:
		pct = 0
	case pct > 100:
		pct = 100
	}
	return Event{Percent: pct, Status: status}
}

// Indeterminate builds an event with no known completion.
func Indeterminate(status string) Event {
	return Event{Indeterminate: true, Status: status}
}

// Describe builds an event that only changes the headline.
func Describe(description string) Event {
	return Event{Indeterminate: true, Description: description}
}

// Ratio returns done/total as a percentage, 0 when total is not positive.
func Ratio(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// FormatPercent renders a percentage the way status lines show it:
// at most two decimals, trailing zeros dropped.
func FormatPercent(pct float64) string {
	s := fmt.Sprintf("%.2f", pct)
	for len(s) > 1 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// Sink receives events. Implementations must not block.
type Sink interface {
	Emit(Event)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// Emitter is a Sink backed by a buffered channel.
type Emitter struct {
	mu      sync.RWMutex
	ch      chan Event
	closed  bool
	dropped atomic.Int64
}

// NewEmitter creates an emitter with the given buffer size.
func NewEmitter(size int) *Emitter {
	if size <= 0 {
		size = DefaultBuffer
	}
	return &Emitter{ch: make(chan Event, size)}
}

// Emit queues e without blocking. After Close it is a no-op.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return
	}
	select {
	case e.ch <- ev:
	default:
		e.dropped.Add(1)
	}
}

// Events returns the receive side. It is closed by Close.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Dropped returns how many events were discarded because the buffer was full.
func (e *Emitter) Dropped() int64 {
	return e.dropped.Load()
}

// Close stops accepting events and closes the channel. Safe to call twice.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	close(e.ch)
}

// Func adapts a function to a Sink. The function must not block.
type Func func(Event)

func (f Func) Emit(ev Event) { f(ev) }

// OrDiscard returns s, or Discard when s is nil.
func OrDiscard(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}
