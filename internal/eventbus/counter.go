package eventbus

import (
	"context"
	"maps"
	"sync"

	"github.com/matthewbaird/screens/internal/event"
)

// Counter tallies screen events per model and event type.
type Counter struct {
	mu     sync.Mutex
	counts map[string]map[string]int // model -> event type -> count
}

// NewCounter creates an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[string]map[string]int)}
}

func (c *Counter) HandleEvent(_ context.Context, evt event.ScreenEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.counts[evt.Model]
	if !ok {
		m = make(map[string]int)
		c.counts[evt.Model] = m
	}
	m[evt.EventType]++
	return nil
}

// Snapshot returns a copy of the current counts.
func (c *Counter) Snapshot() map[string]map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]map[string]int, len(c.counts))
	for model, m := range c.counts {
		out[model] = maps.Clone(m)
	}
	return out
}
