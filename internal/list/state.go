package list

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"sync"

	"github.com/matthewbaird/screens/internal/screen"
)

// ErrNoRefresh is returned by Refresh when no refresh callback is configured.
var ErrNoRefresh = errors.New("list: no refresh function configured")

// Refreshed is published after a refresh result has been applied.
type Refreshed[T any] struct {
	Seq   uint64
	Items []T
	Query Query
}

// Option adjusts a single mutation.
type Option func(*mutation)

type mutation struct {
	refresh bool
}

// NoRefresh applies a mutation without refreshing. Use it to batch several
// changes before one explicit Refresh.
func NoRefresh() Option {
	return func(m *mutation) { m.refresh = false }
}

// State is the state of a list screen. It is safe for concurrent use;
// callbacks and observers are never called with internal locks held.
type State[T any] struct {
	*screen.State[T]
	cfg Config[T]

	mu      sync.Mutex
	filters []Filter
	sorting []Sort
	paging  *Paging
	mode    string
	data    []T
	seq     uint64 // last issued refresh
	applied uint64 // newest applied refresh

	refreshing screen.Flag
	refreshes  *screen.Feed[Refreshed[T]]
}

// Filters returns the active filters.
func (s *State[T]) Filters() []Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.filters)
}

// Sorting returns the sort keys, highest precedence first.
func (s *State[T]) Sorting() []Sort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.sorting)
}

// Paging returns the current paging and whether paging is configured.
func (s *State[T]) Paging() (Paging, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paging == nil {
		return Paging{}, false
	}
	return *s.paging, true
}

// HasPaging reports whether the list is paged.
func (s *State[T]) HasPaging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paging != nil
}

// Mode returns the ID of the current mode.
func (s *State[T]) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Modes returns the configured modes.
func (s *State[T]) Modes() []Mode { return slices.Clone(s.cfg.Modes) }

// Data returns the items of the last applied refresh.
func (s *State[T]) Data() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data)
}

// IsRefreshing reports whether a refresh is in flight.
func (s *State[T]) IsRefreshing() bool { return s.refreshing.Active() }

// Query returns a snapshot of the current list state.
func (s *State[T]) Query() Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queryLocked()
}

func (s *State[T]) queryLocked() Query {
	q := Query{
		Seq:     s.seq,
		Filters: slices.Clone(s.filters),
		Sorting: slices.Clone(s.sorting),
		Mode:    s.mode,
		Visible: s.Visible(),
	}
	if s.paging != nil {
		p := *s.paging
		q.Paging = &p
	}
	return q
}

// SubscribeRefreshes calls fn after each applied refresh.
func (s *State[T]) SubscribeRefreshes(fn func(Refreshed[T])) (cancel func()) {
	return s.refreshes.Subscribe(fn)
}

// ClearSorting removes every sort key.
func (s *State[T]) ClearSorting(ctx context.Context, opts ...Option) error {
	return s.mutate(ctx, opts, func() {
		s.sorting = nil
	})
}

// ClearFiltering removes every filter.
func (s *State[T]) ClearFiltering(ctx context.Context, opts ...Option) error {
	return s.mutate(ctx, opts, func() {
		s.filters = nil
	})
}

// Sort makes path the lowest-precedence sort key with the given order,
// replacing any earlier key on the same path.
func (s *State[T]) Sort(ctx context.Context, path string, order SortOrder, opts ...Option) error {
	if _, err := s.Property(path); err != nil {
		return s.Report("sort", err)
	}
	return s.mutate(ctx, opts, func() {
		s.sorting = slices.DeleteFunc(s.sorting, func(k Sort) bool { return k.Path == path })
		s.sorting = append(s.sorting, Sort{Path: path, Order: order})
	})
}

// AddFilter appends a filter. Duplicates are allowed.
func (s *State[T]) AddFilter(ctx context.Context, f Filter, opts ...Option) error {
	if _, err := s.Property(f.Path); err != nil {
		return s.Report("filter", err)
	}
	return s.mutate(ctx, opts, func() {
		s.filters = append(s.filters, f)
	})
}

// RemoveFilter removes every filter structurally equal to f.
func (s *State[T]) RemoveFilter(ctx context.Context, f Filter, opts ...Option) error {
	return s.mutate(ctx, opts, func() {
		s.filters = slices.DeleteFunc(s.filters, func(x Filter) bool { return reflect.DeepEqual(x, f) })
	})
}

// SetPage moves to page, clamped to [1, NumPages]. It has no effect on an
// unpaged list other than the refresh.
func (s *State[T]) SetPage(ctx context.Context, page int, opts ...Option) error {
	return s.mutate(ctx, opts, func() {
		if s.paging != nil {
			s.paging.Page = clampPage(page, s.paging.NumPages)
		}
	})
}

// SetItemsPerPage changes the page size (at least 1).
func (s *State[T]) SetItemsPerPage(ctx context.Context, n int, opts ...Option) error {
	return s.mutate(ctx, opts, func() {
		if s.paging != nil {
			s.paging.ItemsPerPage = max(n, 1)
		}
	})
}

// SetMode switches to mode.
func (s *State[T]) SetMode(ctx context.Context, mode Mode, opts ...Option) error {
	return s.mutate(ctx, opts, func() {
		s.mode = mode.ID
	})
}

// FirstPage moves to page 1. It does nothing on an unpaged list.
func (s *State[T]) FirstPage(ctx context.Context, opts ...Option) error {
	return s.step(ctx, opts, func(p Paging) int { return 1 })
}

// LastPage moves to the last page.
func (s *State[T]) LastPage(ctx context.Context, opts ...Option) error {
	return s.step(ctx, opts, func(p Paging) int { return p.NumPages })
}

// NextPage moves one page forward.
func (s *State[T]) NextPage(ctx context.Context, opts ...Option) error {
	return s.step(ctx, opts, func(p Paging) int { return p.Page + 1 })
}

// PreviousPage moves one page back.
func (s *State[T]) PreviousPage(ctx context.Context, opts ...Option) error {
	return s.step(ctx, opts, func(p Paging) int { return p.Page - 1 })
}

func (s *State[T]) step(ctx context.Context, opts []Option, target func(Paging) int) error {
	p, ok := s.Paging()
	if !ok {
		return nil
	}
	return s.SetPage(ctx, target(p), opts...)
}

// mutate applies fn under the lock, reruns visibility and refreshes unless
// NoRefresh was given.
func (s *State[T]) mutate(ctx context.Context, opts []Option, fn func()) error {
	m := mutation{refresh: true}
	for _, opt := range opts {
		opt(&m)
	}

	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.refreshVisibility()

	if !m.refresh {
		return nil
	}
	_, err := s.Refresh(ctx)
	return err
}

// RefreshVisibility reruns the visibility hook, if any.
func (s *State[T]) RefreshVisibility() { s.refreshVisibility() }

func (s *State[T]) refreshVisibility() {
	if s.cfg.Visibility == nil {
		return
	}
	props := s.cfg.Visibility(s, s.AllProperties())
	s.SetVisible(screen.Paths(props))
}

// Refresh invokes the refresh callback with a snapshot of the state and
// applies its result. Without StaleGuard the last call to settle wins;
// with it, results older than the newest applied one are returned to the
// caller but not applied.
func (s *State[T]) Refresh(ctx context.Context) ([]T, error) {
	if s.cfg.Refresh == nil {
		return nil, s.Report("refresh", ErrNoRefresh)
	}

	s.mu.Lock()
	s.seq++
	q := s.queryLocked()
	s.mu.Unlock()

	done := s.refreshing.Track()
	res, err := s.cfg.Refresh(ctx, q)
	if err != nil {
		done()
		return nil, s.Report("refresh", err)
	}

	s.mu.Lock()
	if s.cfg.StaleGuard && q.Seq < s.applied {
		s.mu.Unlock()
		done()
		s.Logger().Printf("list: %s: dropping stale refresh %d (applied %d)", s.Model, q.Seq, s.applied)
		return res.Items, nil
	}
	s.applied = max(s.applied, q.Seq)
	s.data = slices.Clone(res.Items)
	if res.Paging != nil {
		p := *res.Paging
		if q.Paging != nil {
			if p.ItemsPerPage == 0 {
				p.ItemsPerPage = q.Paging.ItemsPerPage
			}
			if p.Page == 0 {
				p.Page = q.Paging.Page
			}
		}
		p = p.normalize()
		s.paging = &p
	}
	applied := Refreshed[T]{Seq: q.Seq, Items: slices.Clone(res.Items), Query: q}
	s.mu.Unlock()
	done()

	s.refreshes.Publish(applied)
	return res.Items, nil
}
