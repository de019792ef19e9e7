// Package store persists the records behind list and form screens.
//
// Records are untyped maps keyed by column name. A model's table is derived
// from its metadata: one column per attribute, plus a "<name>_id" column for
// every to-one association that has no attribute of that name. To-many
// associations are not stored.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-openapi/inflect"

	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/meta"
)

var (
	ErrNotFound            = errors.New("store: record not found")
	ErrUnknownModel        = errors.New("store: unknown model")
	ErrUnknownPath         = errors.New("store: unknown path")
	ErrUnsupportedOperator = errors.New("store: unsupported filter operator")
	ErrInvalidFilter       = errors.New("store: invalid filter value")
)

// Record is one stored instance.
type Record map[string]any

// ID returns the record's primary key, or "" when it has none.
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Store is the interface for reading and writing records of registered
// models. Save returns a *form.Error when the record does not validate.
type Store interface {
	// List returns the records of model matching q's filters, sorted and
	// paged as q asks. Result.Paging is set when q is paged.
	List(ctx context.Context, model string, q list.Query) (list.Result[Record], error)

	Get(ctx context.Context, model, id string) (Record, error)

	// Save inserts r when it has no id or an unknown one, and updates the
	// stored record otherwise. Read-only columns of existing records keep
	// their stored values.
	Save(ctx context.Context, model string, r Record) (Record, error)

	Delete(ctx context.Context, model, id string) error
}

type column struct {
	name string
	attr meta.Attribute
}

// table is the storage layout of one model.
type table struct {
	model   string
	name    string
	columns []column
	byName  map[string]int
	byPath  map[string]int
}

// TableName returns the table a model's records live in.
func TableName(model string) string {
	return inflect.Tableize(model)
}

func newTable(m meta.Model) (*table, error) {
	attrs, err := m.Attributes()
	if err != nil {
		return nil, meta.WrapError(m.Name(), err)
	}
	assocs, err := m.Associations()
	if err != nil {
		return nil, meta.WrapError(m.Name(), err)
	}

	t := &table{
		model:  m.Name(),
		name:   TableName(m.Name()),
		byName: make(map[string]int),
		byPath: make(map[string]int),
	}
	add := func(c column) {
		t.byName[c.name] = len(t.columns)
		t.byPath[c.name] = len(t.columns)
		t.columns = append(t.columns, c)
	}

	hasID := false
	for _, a := range attrs {
		if a.Name == "id" {
			hasID = true
		}
	}
	if !hasID {
		add(column{name: "id", attr: meta.Attribute{Name: "id", ReadOnly: true}})
	}
	for _, a := range attrs {
		if _, dup := t.byName[a.Name]; dup {
			return nil, &meta.MetadataError{Model: m.Name(), Path: a.Name, Err: meta.ErrDuplicatePath}
		}
		if a.Name == "id" {
			// Keys are always strings, whatever the model declares.
			a.Type = meta.AttributeType{Kind: meta.KindString}
			a.ReadOnly = true
		}
		add(column{name: a.Name, attr: a})
	}
	for _, a := range assocs {
		if a.Cardinality != meta.CardinalityOne {
			continue
		}
		key := a.Name + "_id"
		if i, ok := t.byName[key]; ok {
			t.byPath[a.Name] = i
			continue
		}
		add(column{name: key, attr: meta.Attribute{
			Name:     key,
			Type:     meta.AttributeType{Kind: meta.KindString},
			ReadOnly: a.ReadOnly,
			Optional: true,
		}})
		t.byPath[a.Name] = t.byName[key]
	}
	return t, nil
}

// lookup resolves a property path or a column name.
func (t *table) lookup(key string) (column, bool) {
	if i, ok := t.byPath[key]; ok {
		return t.columns[i], true
	}
	return column{}, false
}

func (t *table) column(path string) (column, error) {
	c, ok := t.lookup(path)
	if !ok {
		return column{}, fmt.Errorf("%w: %s has no property %q", ErrUnknownPath, t.model, path)
	}
	return c, nil
}

func (t *table) names() []string {
	out := make([]string, len(t.columns))
	for i, c := range t.columns {
		out[i] = c.name
	}
	return out
}

// tables resolves models through a registry and caches their layout.
type tables struct {
	registry *meta.Registry

	mu    sync.Mutex
	cache map[string]*table
}

func (ts *tables) get(model string) (*table, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	m, ok := ts.registry.Model(model)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	key := meta.Key(m.Name())
	if t, ok := ts.cache[key]; ok {
		return t, nil
	}
	t, err := newTable(m)
	if err != nil {
		return nil, err
	}
	if ts.cache == nil {
		ts.cache = make(map[string]*table)
	}
	ts.cache[key] = t
	return t, nil
}
