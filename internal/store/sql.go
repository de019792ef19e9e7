package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/meta"
)

// SQLStore implements Store on a SQLite database. Statements are built
// with ent's SQL builder; the schema is created by Migrate.
type SQLStore struct {
	db     *sql.DB
	tables tables
}

// NewSQLStore creates a new SQLStore over the models of registry.
func NewSQLStore(db *sql.DB, registry *meta.Registry) *SQLStore {
	return &SQLStore{db: db, tables: tables{registry: registry}}
}

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

// Migrate creates a table for every registered model.
// This should be run once at startup, before serving.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, m := range s.tables.registry.Models() {
		t, err := s.tables.get(m.Name())
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, createTable(t)); err != nil {
			return fmt.Errorf("store: create table %s: %w", t.name, err)
		}
	}
	return nil
}

func createTable(t *table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", quote(t.name))
	for i, c := range t.columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "\t%s %s", quote(c.name), sqlType(c.attr.Type.Kind))
		switch {
		case c.name == "id":
			b.WriteString(" PRIMARY KEY")
		case !c.attr.Optional:
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString("\n)")
	return b.String()
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func sqlType(k meta.Kind) string {
	switch k {
	case meta.KindInt, meta.KindBool:
		return "INTEGER"
	case meta.KindFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

// toSQL converts a normalized value to a driver argument.
func toSQL(c column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.attr.Type.Kind {
	case meta.KindBool:
		if v.(bool) {
			return int64(1), nil
		}
		return int64(0), nil
	case meta.KindJSON, meta.KindOther:
		if s, ok := v.(string); ok && c.attr.Type.Kind == meta.KindOther {
			return s, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("store: encode %s: %w", c.name, err)
		}
		return string(b), nil
	}
	return v, nil
}

// fromSQL converts a scanned value back to its normalized form.
func fromSQL(c column, v any) (any, error) {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil, nil
	}
	if k := c.attr.Type.Kind; k == meta.KindJSON || k == meta.KindOther {
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		var out any
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			if k == meta.KindOther {
				return s, nil
			}
			return nil, fmt.Errorf("store: decode %s: %w", c.name, err)
		}
		return out, nil
	}
	return normalize(c, v)
}

func (s *SQLStore) predicate(t *table, f list.Filter) (*entsql.Predicate, error) {
	c, err := t.column(f.Path)
	if err != nil {
		return nil, err
	}
	want, err := filterValue(c, f)
	if err != nil {
		return nil, err
	}
	arg := func(v any) (any, error) { return toSQL(c, v) }
	switch f.Operator {
	case list.OpContains:
		return entsql.ContainsFold(c.name, want.(string)), nil
	case list.OpPrefix:
		return entsql.HasPrefixFold(c.name, want.(string)), nil
	case list.OpIn:
		var args []any
		for _, w := range want.([]any) {
			if w == nil {
				continue
			}
			a, err := arg(w)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		if len(args) == 0 {
			return entsql.False(), nil
		}
		return entsql.In(c.name, args...), nil
	}
	if want == nil {
		if f.Operator == list.OpEq {
			return entsql.IsNull(c.name), nil
		}
		if f.Operator == list.OpNeq {
			return entsql.NotNull(c.name), nil
		}
		return entsql.False(), nil
	}
	a, err := arg(want)
	if err != nil {
		return nil, err
	}
	switch f.Operator {
	case list.OpEq:
		return entsql.EQ(c.name, a), nil
	case list.OpNeq:
		return entsql.NEQ(c.name, a), nil
	case list.OpGt:
		return entsql.GT(c.name, a), nil
	case list.OpGte:
		return entsql.GTE(c.name, a), nil
	case list.OpLt:
		return entsql.LT(c.name, a), nil
	default:
		return entsql.LTE(c.name, a), nil
	}
}

func (s *SQLStore) List(ctx context.Context, model string, q list.Query) (list.Result[Record], error) {
	t, err := s.tables.get(model)
	if err != nil {
		return list.Result[Record]{}, err
	}

	var preds []*entsql.Predicate
	for _, f := range q.Filters {
		p, err := s.predicate(t, f)
		if err != nil {
			return list.Result[Record]{}, err
		}
		preds = append(preds, p)
	}

	b := s.builder()
	sel := b.Select(t.names()...).From(b.Table(t.name))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	for _, srt := range q.Sorting {
		c, err := t.column(srt.Path)
		if err != nil {
			return list.Result[Record]{}, err
		}
		if srt.Order == list.Desc {
			sel.OrderBy(entsql.Desc(c.name))
		} else {
			sel.OrderBy(entsql.Asc(c.name))
		}
	}
	sel.OrderExpr(entsql.Expr("rowid"))

	res := list.Result[Record]{}
	if q.Paging != nil {
		count := b.Select().Count().From(b.Table(t.name))
		if len(preds) > 0 {
			count.Where(entsql.And(preds...))
		}
		query, args := count.Query()
		var total int
		if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
			return list.Result[Record]{}, fmt.Errorf("store: count %s: %w", t.name, err)
		}
		sel.Limit(q.Limit()).Offset(q.Offset())
		res.Paging = &list.Paging{Page: q.Paging.Page, ItemsPerPage: q.Limit(), NumItems: total}
	}

	query, args := sel.Query()
	res.Items, err = s.query(ctx, t, query, args)
	if err != nil {
		return list.Result[Record]{}, err
	}
	return res, nil
}

func (s *SQLStore) query(ctx context.Context, t *table, query string, args []any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		raw := make([]any, len(t.columns))
		ptrs := make([]any, len(raw))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("store: scan %s: %w", t.name, err)
		}
		r := make(Record, len(t.columns))
		for i, c := range t.columns {
			v, err := fromSQL(c, raw[i])
			if err != nil {
				return nil, err
			}
			r[c.name] = v
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Get(ctx context.Context, model, id string) (Record, error) {
	t, err := s.tables.get(model)
	if err != nil {
		return nil, err
	}
	return s.get(ctx, t, id)
}

func (s *SQLStore) get(ctx context.Context, t *table, id string) (Record, error) {
	b := s.builder()
	query, args := b.Select(t.names()...).From(b.Table(t.name)).Where(entsql.EQ("id", id)).Query()
	recs, err := s.query(ctx, t, query, args)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s %q", ErrNotFound, t.model, id)
	}
	return recs[0], nil
}

func (s *SQLStore) Save(ctx context.Context, model string, r Record) (Record, error) {
	t, err := s.tables.get(model)
	if err != nil {
		return nil, err
	}

	var existing Record
	if id, _ := normalize(column{}, r["id"]); id != nil && id != "" {
		existing, err = s.get(ctx, t, id.(string))
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	out, err := prepare(t, existing, r)
	if err != nil {
		return nil, err
	}

	b := s.builder()
	var query string
	var args []any
	if existing == nil {
		ins := b.Insert(t.name)
		cols := make([]string, 0, len(t.columns))
		vals := make([]any, 0, len(t.columns))
		for _, c := range t.columns {
			v, err := toSQL(c, out[c.name])
			if err != nil {
				return nil, err
			}
			cols = append(cols, c.name)
			vals = append(vals, v)
		}
		query, args = ins.Columns(cols...).Values(vals...).Query()
	} else {
		upd := b.Update(t.name)
		for _, c := range t.columns {
			if c.name == "id" {
				continue
			}
			v, err := toSQL(c, out[c.name])
			if err != nil {
				return nil, err
			}
			upd.Set(c.name, v)
		}
		query, args = upd.Where(entsql.EQ("id", out.ID())).Query()
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("store: save %s: %w", t.name, err)
	}
	return s.get(ctx, t, out.ID())
}

func (s *SQLStore) Delete(ctx context.Context, model, id string) error {
	t, err := s.tables.get(model)
	if err != nil {
		return err
	}
	query, args := s.builder().Delete(t.name).Where(entsql.EQ("id", id)).Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", t.name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s %q", ErrNotFound, t.model, id)
	}
	return nil
}

var _ Store = (*SQLStore)(nil)
