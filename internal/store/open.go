package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/matthewbaird/screens/internal/meta"
)

// Open returns a SQLStore over the sqlite database at dsn with its tables
// migrated, or a MemoryStore when dsn is empty. The returned close func
// releases the database.
func Open(ctx context.Context, dsn string, registry *meta.Registry) (Store, func() error, error) {
	if dsn == "" {
		return NewMemoryStore(registry), func() error { return nil }, nil
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := NewSQLStore(db, registry)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("running schema migration: %w", err)
	}
	return s, db.Close, nil
}
