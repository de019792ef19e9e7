package eventbus

import (
	"context"
	"log"

	"github.com/matthewbaird/screens/internal/event"
)

// LogConsumer logs all screen events for observability.
type LogConsumer struct {
	// Errors restricts logging to failures.
	Errors bool
}

func NewLogConsumer() *LogConsumer { return &LogConsumer{} }

func (c *LogConsumer) HandleEvent(_ context.Context, evt event.ScreenEvent) error {
	if c.Errors && evt.Weight != "error" {
		return nil
	}
	log.Printf("event: %s [%s/%s] %s: %s",
		evt.EventType, evt.Category, evt.Weight, evt.Model, evt.Summary)
	return nil
}
