package activity

import (
	"context"
	"fmt"

	"github.com/matthewbaird/screens/internal/event"
)

// Indexer consumes screen events from the bus and writes them to the store.
type Indexer struct {
	store Store
	// Skip lists event types that are not recorded, e.g. high-volume
	// refreshes.
	Skip []string
}

// NewIndexer creates a new activity indexer.
func NewIndexer(store Store) *Indexer {
	return &Indexer{store: store}
}

// HandleEvent implements eventbus.Handler.
func (idx *Indexer) HandleEvent(ctx context.Context, evt event.ScreenEvent) error {
	for _, t := range idx.Skip {
		if evt.EventType == t {
			return nil
		}
	}
	if err := idx.store.WriteEvents(ctx, []event.ScreenEvent{evt}); err != nil {
		return fmt.Errorf("activity: indexing %s: %w", evt.EventType, err)
	}
	return nil
}
