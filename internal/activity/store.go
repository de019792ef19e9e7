package activity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/screens/internal/event"
)

// Store is the interface for reading and writing the event history.
type Store interface {
	// WriteEvents records events. Events already recorded are ignored.
	WriteEvents(ctx context.Context, events []event.ScreenEvent) error

	// Query returns events newest first.
	Query(ctx context.Context, opts QueryOptions) (events []event.ScreenEvent, nextCursor string, totalCount int, err error)

	// Search matches event summaries case-insensitively.
	Search(ctx context.Context, query string, opts SearchOptions) (events []event.ScreenEvent, totalCount int, err error)
}

const (
	eventsTable = "screen_events"
	// UTC with fixed precision so stored times order as text.
	timeLayout = "2006-01-02T15:04:05.000000Z07:00"
)

var eventColumns = []string{
	"id", "event_type", "occurred_at", "state_id", "model",
	"summary", "category", "weight", "payload",
}

// SQLStore implements Store on a SQLite database.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

// CreateTable creates the screen_events table and its indexes.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	b := s.builder()
	table := b.CreateTable(eventsTable).IfNotExists().
		Columns(
			entsql.Column("id").Type("TEXT").Attr("NOT NULL"),
			entsql.Column("event_type").Type("TEXT").Attr("NOT NULL"),
			entsql.Column("occurred_at").Type("TEXT").Attr("NOT NULL"),
			entsql.Column("state_id").Type("TEXT"),
			entsql.Column("model").Type("TEXT"),
			entsql.Column("summary").Type("TEXT").Attr("NOT NULL"),
			entsql.Column("category").Type("TEXT").Attr("NOT NULL"),
			entsql.Column("weight").Type("TEXT").Attr("NOT NULL"),
			entsql.Column("payload").Type("TEXT"),
		).
		PrimaryKey("id")
	index := b.CreateIndex("idx_screen_events_model_time").IfNotExists().
		Table(eventsTable).
		Columns("model", "occurred_at")

	for _, q := range []interface{ Query() (string, []any) }{table, index} {
		query, args := q.Query()
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("activity: create table: %w", err)
		}
	}
	return nil
}

// WriteEvents inserts events into the database.
func (s *SQLStore) WriteEvents(ctx context.Context, events []event.ScreenEvent) error {
	if len(events) == 0 {
		return nil
	}
	ins := s.builder().Insert(eventsTable).Columns(eventColumns...)
	for _, e := range events {
		var payload any
		if len(e.Payload) > 0 {
			payload = string(e.Payload)
		}
		ins.Values(
			e.ID, e.EventType, e.OccurredAt.UTC().Format(timeLayout), e.StateID, e.Model,
			e.Summary, e.Category, e.Weight, payload,
		)
	}
	ins.OnConflict(entsql.DoNothing())
	query, args := ins.Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("activity: writing events: %w", err)
	}
	return nil
}

// Query returns events with filtering and cursor pagination.
func (s *SQLStore) Query(ctx context.Context, opts QueryOptions) ([]event.ScreenEvent, string, int, error) {
	var preds []*entsql.Predicate
	if opts.Model != "" {
		preds = append(preds, entsql.EQ("model", opts.Model))
	}
	if opts.StateID != "" {
		preds = append(preds, entsql.EQ("state_id", opts.StateID))
	}
	if len(opts.Types) > 0 {
		preds = append(preds, entsql.In("event_type", toAny(opts.Types)...))
	}
	if len(opts.Categories) > 0 {
		preds = append(preds, entsql.In("category", toAny(opts.Categories)...))
	}
	if opts.MinWeight != "" && opts.MinWeight != "info" {
		preds = append(preds, entsql.In("weight", toAny(weightsAtLeast(opts.MinWeight))...))
	}
	if opts.Since != nil {
		preds = append(preds, entsql.GTE("occurred_at", opts.Since.UTC().Format(timeLayout)))
	}
	if opts.Until != nil {
		preds = append(preds, entsql.LTE("occurred_at", opts.Until.UTC().Format(timeLayout)))
	}
	total, err := s.count(ctx, preds)
	if err != nil {
		return nil, "", 0, err
	}

	if opts.Cursor != "" {
		// Cursor is the occurred_at timestamp of the last result.
		if t, err := time.Parse(time.RFC3339Nano, opts.Cursor); err == nil {
			preds = append(preds, entsql.LT("occurred_at", t.UTC().Format(timeLayout)))
		}
	}

	limit := opts.limit()
	events, err := s.selectEvents(ctx, preds, limit+1) // one extra for the cursor
	if err != nil {
		return nil, "", 0, err
	}
	var next string
	if len(events) > limit {
		events = events[:limit]
		next = events[len(events)-1].OccurredAt.Format(time.RFC3339Nano)
	}
	return events, next, total, nil
}

// Search matches summaries case-insensitively.
func (s *SQLStore) Search(ctx context.Context, query string, opts SearchOptions) ([]event.ScreenEvent, int, error) {
	preds := []*entsql.Predicate{entsql.ContainsFold("summary", query)}
	if opts.Model != "" {
		preds = append(preds, entsql.EQ("model", opts.Model))
	}
	if opts.Since != nil {
		preds = append(preds, entsql.GTE("occurred_at", opts.Since.UTC().Format(timeLayout)))
	}
	if len(opts.Categories) > 0 {
		preds = append(preds, entsql.In("category", toAny(opts.Categories)...))
	}
	total, err := s.count(ctx, preds)
	if err != nil {
		return nil, 0, err
	}
	events, err := s.selectEvents(ctx, preds, opts.limit())
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (s *SQLStore) count(ctx context.Context, preds []*entsql.Predicate) (int, error) {
	b := s.builder()
	sel := b.Select().Count().From(b.Table(eventsTable))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	query, args := sel.Query()
	var total int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("activity: counting events: %w", err)
	}
	return total, nil
}

func (s *SQLStore) selectEvents(ctx context.Context, preds []*entsql.Predicate, limit int) ([]event.ScreenEvent, error) {
	b := s.builder()
	sel := b.Select(eventColumns...).From(b.Table(eventsTable))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Desc("occurred_at")).OrderExpr(entsql.Expr("rowid DESC")).Limit(limit)

	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("activity: querying events: %w", err)
	}
	defer rows.Close()

	var events []event.ScreenEvent
	for rows.Next() {
		var (
			e              event.ScreenEvent
			occurred       string
			stateID, model sql.NullString
			payload        sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.EventType, &occurred, &stateID, &model,
			&e.Summary, &e.Category, &e.Weight, &payload); err != nil {
			return nil, fmt.Errorf("activity: scanning event: %w", err)
		}
		if e.OccurredAt, err = time.Parse(timeLayout, occurred); err != nil {
			return nil, fmt.Errorf("activity: event %s: %w", e.ID, err)
		}
		e.StateID, e.Model = stateID.String, model.String
		if payload.Valid {
			e.Payload = json.RawMessage(payload.String)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
