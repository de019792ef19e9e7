package activity

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matthewbaird/screens/internal/event"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testEvent(id, model, eventType, category, weight, summary string, minutes int) event.ScreenEvent {
	return event.ScreenEvent{
		ID:         id,
		EventType:  eventType,
		OccurredAt: base.Add(time.Duration(minutes) * time.Minute),
		StateID:    "state-" + model,
		Model:      model,
		Summary:    summary,
		Category:   category,
		Weight:     weight,
	}
}

func fixture() []event.ScreenEvent {
	return []event.ScreenEvent{
		testEvent("e1", "task", event.TypeRefreshed, "list", "info", "Refreshed task list", 1),
		testEvent("e2", "task", event.TypeFailed, "form", "error", "Save failed: title is required", 2),
		testEvent("e3", "author", event.TypeRefreshed, "list", "info", "Refreshed author list", 3),
		testEvent("e4", "task", event.TypeDeleted, "delete", "info", "Deleted task 42", 4),
		testEvent("e5", "task", event.TypeSaved, "form", "info", "Saved task 43", 5),
	}
}

type storeFactory struct {
	name string
	open func(t *testing.T) Store
}

var factories = []storeFactory{
	{"memory", func(*testing.T) Store { return NewMemoryStore(0) }},
	{"sqlite", func(t *testing.T) Store {
		db, err := sql.Open("sqlite", ":memory:")
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		db.SetMaxOpenConns(1)
		t.Cleanup(func() { db.Close() })
		s := NewSQLStore(db)
		if err := s.CreateTable(context.Background()); err != nil {
			t.Fatalf("CreateTable: %v", err)
		}
		return s
	}},
}

func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for _, f := range factories {
		t.Run(f.name, func(t *testing.T) {
			s := f.open(t)
			if err := s.WriteEvents(context.Background(), fixture()); err != nil {
				t.Fatalf("WriteEvents: %v", err)
			}
			fn(t, s)
		})
	}
}

func ids(events []event.ScreenEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func equalIDs(t *testing.T, got []event.ScreenEvent, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("ids = %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("ids = %v, want %v", g, want)
		}
	}
}

func TestStore_QueryNewestFirst(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		events, next, total, err := s.Query(context.Background(), QueryOptions{})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if total != 5 {
			t.Errorf("total = %d, want 5", total)
		}
		if next != "" {
			t.Errorf("next = %q, want empty", next)
		}
		equalIDs(t, events, "e5", "e4", "e3", "e2", "e1")
		if !events[0].OccurredAt.Equal(base.Add(5 * time.Minute)) {
			t.Errorf("occurred_at = %v", events[0].OccurredAt)
		}
	})
}

func TestStore_WriteIgnoresDuplicates(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.WriteEvents(ctx, fixture()[:2]); err != nil {
			t.Fatalf("WriteEvents: %v", err)
		}
		_, _, total, err := s.Query(ctx, QueryOptions{})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if total != 5 {
			t.Errorf("total = %d, want 5", total)
		}
	})
}

func TestStore_QueryFilters(t *testing.T) {
	since := base.Add(2 * time.Minute)
	until := base.Add(4 * time.Minute)
	tests := []struct {
		name string
		opts QueryOptions
		want []string
	}{
		{"model", QueryOptions{Model: "author"}, []string{"e3"}},
		{"state", QueryOptions{StateID: "state-task"}, []string{"e5", "e4", "e2", "e1"}},
		{"types", QueryOptions{Types: []string{event.TypeSaved, event.TypeDeleted}}, []string{"e5", "e4"}},
		{"categories", QueryOptions{Categories: []string{"form"}}, []string{"e5", "e2"}},
		{"min weight", QueryOptions{MinWeight: "error"}, []string{"e2"}},
		{"window", QueryOptions{Since: &since, Until: &until}, []string{"e4", "e3", "e2"}},
		{"combined", QueryOptions{Model: "task", Categories: []string{"list", "form"}, MinWeight: "info"}, []string{"e5", "e2", "e1"}},
	}
	eachStore(t, func(t *testing.T, s Store) {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				events, _, total, err := s.Query(context.Background(), tt.opts)
				if err != nil {
					t.Fatalf("Query: %v", err)
				}
				if total != len(tt.want) {
					t.Errorf("total = %d, want %d", total, len(tt.want))
				}
				equalIDs(t, events, tt.want...)
			})
		}
	})
}

func TestStore_QueryCursor(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		page, next, total, err := s.Query(ctx, QueryOptions{Limit: 2})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if total != 5 {
			t.Errorf("total = %d, want 5", total)
		}
		equalIDs(t, page, "e5", "e4")
		if next == "" {
			t.Fatal("expected a cursor")
		}

		page, next, _, err = s.Query(ctx, QueryOptions{Limit: 2, Cursor: next})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		equalIDs(t, page, "e3", "e2")

		page, next, _, err = s.Query(ctx, QueryOptions{Limit: 2, Cursor: next})
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		equalIDs(t, page, "e1")
		if next != "" {
			t.Errorf("next = %q on the last page", next)
		}
	})
}

func TestStore_Search(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		events, total, err := s.Search(ctx, "REFRESHED", DefaultSearchOptions())
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
		equalIDs(t, events, "e3", "e1")

		events, _, err = s.Search(ctx, "task", SearchOptions{Categories: []string{"form"}})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		equalIDs(t, events, "e5")

		events, total, err = s.Search(ctx, "list", SearchOptions{Model: "task", Limit: 1})
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if total != 1 {
			t.Errorf("total = %d, want 1", total)
		}
		equalIDs(t, events, "e1")
	})
}

func TestMemoryStore_Capacity(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(3)
	if err := s.WriteEvents(ctx, fixture()); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
	events, _, total, err := s.Query(ctx, QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	equalIDs(t, events, "e5", "e4", "e3")
}

func TestIsAtLeastWeight(t *testing.T) {
	tests := []struct {
		weight, min string
		want        bool
	}{
		{"error", "info", true},
		{"info", "error", false},
		{"warning", "warning", true},
		{"bogus", "info", true},
		{"bogus", "error", false},
	}
	for _, tt := range tests {
		if got := IsAtLeastWeight(tt.weight, tt.min); got != tt.want {
			t.Errorf("IsAtLeastWeight(%q, %q) = %v, want %v", tt.weight, tt.min, got, tt.want)
		}
	}
}

func TestIndexer(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(0)
	idx := NewIndexer(s)
	idx.Skip = []string{event.TypeRefreshed}

	for _, e := range fixture() {
		if err := idx.HandleEvent(ctx, e); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}
	events, _, _, err := s.Query(ctx, QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	equalIDs(t, events, "e5", "e4", "e2")
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, "", 10)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Errorf("empty dsn opened %T, want *MemoryStore", s)
	}
	closeFn()

	s, closeFn, err = Open(ctx, ":memory:", 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if _, ok := s.(*SQLStore); !ok {
		t.Fatalf("dsn opened %T, want *SQLStore", s)
	}
	if err := s.WriteEvents(ctx, fixture()); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}
}
