package activity

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open returns a SQLStore over the sqlite database at dsn, or a MemoryStore
// holding at most capacity events when dsn is empty.
func Open(ctx context.Context, dsn string, capacity int) (Store, func() error, error) {
	if dsn == "" {
		return NewMemoryStore(capacity), func() error { return nil }, nil
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("opening event history: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := NewSQLStore(db)
	if err := s.CreateTable(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return s, db.Close, nil
}
