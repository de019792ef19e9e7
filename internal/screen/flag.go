package screen

import (
	"sync"
	"sync/atomic"
)

// Flag tracks whether an operation is in flight. Overlapping operations are
// counted, so the flag clears only once every one of them has settled.
type Flag struct {
	n atomic.Int32
}

// Track marks an operation as started and returns the function that marks
// it settled. Calling done more than once has no further effect.
func (f *Flag) Track() (done func()) {
	f.n.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { f.n.Add(-1) })
	}
}

// Active reports whether any tracked operation is in flight.
func (f *Flag) Active() bool { return f.n.Load() > 0 }
