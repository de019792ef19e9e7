package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/meta"
)

// MemoryStore implements Store using in-memory maps.
// Intended for demos and testing, no database required.
type MemoryStore struct {
	tables tables

	mu   sync.RWMutex
	rows map[string]*memTable
}

type memTable struct {
	order []string
	byID  map[string]Record
}

// NewMemoryStore creates an empty MemoryStore over the models of registry.
func NewMemoryStore(registry *meta.Registry) *MemoryStore {
	return &MemoryStore{
		tables: tables{registry: registry},
		rows:   make(map[string]*memTable),
	}
}

func (s *MemoryStore) rowsLocked(t *table) *memTable {
	mt, ok := s.rows[t.name]
	if !ok {
		mt = &memTable{byID: make(map[string]Record)}
		s.rows[t.name] = mt
	}
	return mt
}

func (s *MemoryStore) List(_ context.Context, model string, q list.Query) (list.Result[Record], error) {
	t, err := s.tables.get(model)
	if err != nil {
		return list.Result[Record]{}, err
	}

	type cond struct {
		col  string
		op   string
		want any
	}
	conds := make([]cond, 0, len(q.Filters))
	for _, f := range q.Filters {
		c, err := t.column(f.Path)
		if err != nil {
			return list.Result[Record]{}, err
		}
		want, err := filterValue(c, f)
		if err != nil {
			return list.Result[Record]{}, err
		}
		conds = append(conds, cond{col: c.name, op: f.Operator, want: want})
	}
	keys := make([]column, 0, len(q.Sorting))
	for _, srt := range q.Sorting {
		c, err := t.column(srt.Path)
		if err != nil {
			return list.Result[Record]{}, err
		}
		keys = append(keys, c)
	}

	s.mu.RLock()
	mt := s.rows[t.name]
	var matched []Record
	if mt != nil {
	rows:
		for _, id := range mt.order {
			r := mt.byID[id]
			for _, c := range conds {
				if !match(c.op, r[c.col], c.want) {
					continue rows
				}
			}
			matched = append(matched, r.Clone())
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		for k, c := range keys {
			cmp := compareValues(matched[i][c.name], matched[j][c.name])
			if cmp == 0 {
				continue
			}
			if q.Sorting[k].Order == list.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})

	res := list.Result[Record]{Items: matched}
	if q.Paging != nil {
		total := len(matched)
		lo := min(q.Offset(), total)
		hi := min(lo+q.Limit(), total)
		res.Items = matched[lo:hi]
		res.Paging = &list.Paging{Page: q.Paging.Page, ItemsPerPage: q.Limit(), NumItems: total}
	}
	return res, nil
}

func (s *MemoryStore) Get(_ context.Context, model, id string) (Record, error) {
	t, err := s.tables.get(model)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if mt, ok := s.rows[t.name]; ok {
		if r, ok := mt.byID[id]; ok {
			return r.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %s %q", ErrNotFound, t.model, id)
}

func (s *MemoryStore) Save(_ context.Context, model string, r Record) (Record, error) {
	t, err := s.tables.get(model)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	mt := s.rowsLocked(t)
	var existing Record
	if id, _ := normalize(column{}, r["id"]); id != nil {
		existing = mt.byID[id.(string)]
	}
	out, err := prepare(t, existing, r)
	if err != nil {
		return nil, err
	}
	id := out.ID()
	if _, ok := mt.byID[id]; !ok {
		mt.order = append(mt.order, id)
	}
	mt.byID[id] = out
	return out.Clone(), nil
}

func (s *MemoryStore) Delete(_ context.Context, model, id string) error {
	t, err := s.tables.get(model)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	mt, ok := s.rows[t.name]
	if !ok {
		return fmt.Errorf("%w: %s %q", ErrNotFound, t.model, id)
	}
	if _, ok := mt.byID[id]; !ok {
		return fmt.Errorf("%w: %s %q", ErrNotFound, t.model, id)
	}
	delete(mt.byID, id)
	mt.order = slices.DeleteFunc(mt.order, func(v string) bool { return v == id })
	return nil
}

var _ Store = (*MemoryStore)(nil)
