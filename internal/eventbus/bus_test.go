package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/screens/internal/event"
)

type collector struct {
	mu     sync.Mutex
	events []string
}

func (c *collector) HandleEvent(_ context.Context, evt event.ScreenEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt.ID)
	return nil
}

func (c *collector) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func TestBus_DispatchesInOrder(t *testing.T) {
	bus := New(16)
	col := &collector{}
	counter := NewCounter()
	bus.Subscribe("collector", col)
	bus.Subscribe("counter", counter)
	bus.Subscribe("failing", HandlerFunc(func(context.Context, event.ScreenEvent) error {
		return errors.New("boom")
	}))
	bus.Start(context.Background())

	evts := []event.ScreenEvent{
		event.NewSaved("Post", "p1"),
		event.NewSaved("Post", "p2"),
		event.NewDeleted("Author", "a1"),
	}
	for _, e := range evts {
		bus.Publish(context.Background(), e)
	}
	bus.Stop()

	assert.Equal(t, []string{evts[0].ID, evts[1].ID, evts[2].ID}, col.ids())
	assert.Equal(t, map[string]map[string]int{
		"Post":   {event.TypeSaved: 2},
		"Author": {event.TypeDeleted: 1},
	}, counter.Snapshot())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New(4)
	col := &collector{}
	bus.Subscribe("collector", col)
	bus.Unsubscribe("collector")
	bus.Start(context.Background())
	bus.Publish(context.Background(), event.NewSaved("Post", "p1"))
	bus.Stop()
	assert.Empty(t, col.ids())
}

func TestBus_SubscribeReplacesByName(t *testing.T) {
	bus := New(4)
	first, second := &collector{}, &collector{}
	bus.Subscribe("c", first)
	bus.Subscribe("c", second)
	bus.Start(context.Background())
	bus.Publish(context.Background(), event.NewSaved("Post", "p1"))
	bus.Stop()
	assert.Empty(t, first.ids())
	assert.Len(t, second.ids(), 1)
}

func TestBus_DropsWhenFull(t *testing.T) {
	bus := New(1)
	col := &collector{}
	bus.Subscribe("collector", col)
	bus.Publish(context.Background(), event.NewSaved("Post", "p1"))
	bus.Publish(context.Background(), event.NewSaved("Post", "p2"))
	bus.Start(context.Background())
	bus.Stop()
	require.Len(t, col.ids(), 1)
}

func TestBus_ContextCancelDrains(t *testing.T) {
	bus := New(8)
	col := &collector{}
	bus.Subscribe("collector", col)
	for range 3 {
		bus.Publish(context.Background(), event.NewSaved("Post", "p"))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.Start(ctx)
	bus.Stop()
	assert.Len(t, col.ids(), 3)
}

func TestLogConsumer(t *testing.T) {
	c := &LogConsumer{Errors: true}
	assert.NoError(t, c.HandleEvent(context.Background(), event.NewSaved("Post", "p1")))
	assert.NoError(t, NewLogConsumer().HandleEvent(context.Background(), event.NewDeleted("Post", "p1")))
}
