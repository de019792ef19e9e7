// Package list implements the state machine of a list screen: sorting,
// filtering, paging and modes, each change followed by a coordinated
// refresh of the displayed items.
package list

import (
	"context"
	"slices"

	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/screen"
)

// RefreshFunc loads the items matching q.
type RefreshFunc[T any] func(ctx context.Context, q Query) (Result[T], error)

// VisibilityFunc picks the displayed properties after every mutation. It
// receives every property of the model.
type VisibilityFunc[T any] func(s *State[T], props []screen.PropertyDescription) []screen.PropertyDescription

// Config holds the list-specific options of a Describer.
type Config[T any] struct {
	Refresh RefreshFunc[T]
	// Visibility recomputes the visible properties after every mutation.
	// When nil the visible list is left as it is rather than reset to every
	// property, so properties hidden by default stay hidden.
	Visibility VisibilityFunc[T]
	Modes      []Mode  // the first mode is the initial one
	Paging     *Paging // initial paging; nil disables paging

	// StaleGuard drops refresh results older than the newest applied one.
	// Without it the last refresh to settle wins.
	StaleGuard bool
}

// Describer describes a list screen.
type Describer[T any] struct {
	*screen.Describer[T]
	cfg Config[T]
}

// NewDescriber creates a list describer for model.
func NewDescriber[T any](model meta.Model, cfg Config[T], opts ...screen.Option) *Describer[T] {
	cfg.Modes = slices.Clone(cfg.Modes)
	if cfg.Paging != nil {
		p := cfg.Paging.normalize()
		cfg.Paging = &p
	}
	return &Describer[T]{Describer: screen.NewDescriber[T](model, opts...), cfg: cfg}
}

// Modes returns the configured modes.
func (d *Describer[T]) Modes() []Mode { return slices.Clone(d.cfg.Modes) }

// State creates a fresh list state. No refresh is issued.
func (d *Describer[T]) State() (*State[T], error) {
	base, err := d.Describer.State()
	if err != nil {
		return nil, err
	}
	s := &State[T]{
		State:     base,
		cfg:       d.cfg,
		refreshes: screen.NewFeed[Refreshed[T]](),
	}
	if d.cfg.Paging != nil {
		p := *d.cfg.Paging
		s.paging = &p
	}
	if len(d.cfg.Modes) > 0 {
		s.mode = d.cfg.Modes[0].ID
	}
	return s, nil
}
