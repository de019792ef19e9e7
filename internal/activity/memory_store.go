package activity

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/matthewbaird/screens/internal/event"
)

// MemoryStore implements Store using an in-memory slice. When Capacity is
// reached the oldest events are dropped.
type MemoryStore struct {
	mu       sync.RWMutex
	events   []event.ScreenEvent
	capacity int
}

// NewMemoryStore creates an empty MemoryStore holding at most capacity
// events (unbounded when capacity <= 0).
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{capacity: capacity}
}

func (s *MemoryStore) WriteEvents(_ context.Context, events []event.ScreenEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		if slices.ContainsFunc(s.events, func(x event.ScreenEvent) bool { return x.ID == e.ID }) {
			continue
		}
		s.events = append(s.events, e)
	}
	if s.capacity > 0 && len(s.events) > s.capacity {
		s.events = slices.Clone(s.events[len(s.events)-s.capacity:])
	}
	return nil
}

func (s *MemoryStore) Query(_ context.Context, opts QueryOptions) ([]event.ScreenEvent, string, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var cursor time.Time
	hasCursor := false
	if opts.Cursor != "" {
		if t, err := time.Parse(time.RFC3339Nano, opts.Cursor); err == nil {
			cursor, hasCursor = t, true
		}
	}

	var matched []event.ScreenEvent
	for _, e := range s.events {
		if opts.Model != "" && e.Model != opts.Model {
			continue
		}
		if opts.StateID != "" && e.StateID != opts.StateID {
			continue
		}
		if len(opts.Types) > 0 && !slices.Contains(opts.Types, e.EventType) {
			continue
		}
		if len(opts.Categories) > 0 && !slices.Contains(opts.Categories, e.Category) {
			continue
		}
		if opts.MinWeight != "" && !IsAtLeastWeight(e.Weight, opts.MinWeight) {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.OccurredAt.After(*opts.Until) {
			continue
		}
		if hasCursor && !e.OccurredAt.Before(cursor) {
			continue
		}
		matched = append(matched, e)
	}

	// Newest first.
	slices.SortStableFunc(matched, func(a, b event.ScreenEvent) int {
		return b.OccurredAt.Compare(a.OccurredAt)
	})

	total := len(matched)
	limit := opts.limit()
	var next string
	if len(matched) > limit {
		matched = matched[:limit]
		next = matched[len(matched)-1].OccurredAt.Format(time.RFC3339Nano)
	}
	return matched, next, total, nil
}

func (s *MemoryStore) Search(_ context.Context, query string, opts SearchOptions) ([]event.ScreenEvent, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	var matched []event.ScreenEvent
	for _, e := range s.events {
		if !strings.Contains(strings.ToLower(e.Summary), q) {
			continue
		}
		if opts.Model != "" && e.Model != opts.Model {
			continue
		}
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if len(opts.Categories) > 0 && !slices.Contains(opts.Categories, e.Category) {
			continue
		}
		matched = append(matched, e)
	}

	slices.SortStableFunc(matched, func(a, b event.ScreenEvent) int {
		return b.OccurredAt.Compare(a.OccurredAt)
	})

	total := len(matched)
	if limit := opts.limit(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}
