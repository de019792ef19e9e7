package screen

import (
	"context"

	"github.com/matthewbaird/screens/internal/meta"
)

// DeleteConfig supplies the callbacks of a delete screen. Either may be nil.
type DeleteConfig[T any] struct {
	Delete func(ctx context.Context, state *DeleteState[T], instance T, options any) error
	Cancel func(ctx context.Context, state *DeleteState[T], instance T) error
}

// DeleteDescriber describes a screen confirming the deletion of an instance.
type DeleteDescriber[T any] struct {
	*Describer[T]
	cfg DeleteConfig[T]
}

// NewDeleteDescriber creates a delete describer for model.
func NewDeleteDescriber[T any](model meta.Model, cfg DeleteConfig[T], opts ...Option) *DeleteDescriber[T] {
	return &DeleteDescriber[T]{Describer: NewDescriber[T](model, opts...), cfg: cfg}
}

// State creates a fresh delete state.
func (d *DeleteDescriber[T]) State() (*DeleteState[T], error) {
	base, err := d.Describer.State()
	if err != nil {
		return nil, err
	}
	return &DeleteState[T]{State: base, cfg: d.cfg}, nil
}

// DeleteState is the state of a delete screen.
type DeleteState[T any] struct {
	*State[T]
	cfg      DeleteConfig[T]
	deleting Flag
}

// IsDeleting reports whether a Delete is in flight.
func (s *DeleteState[T]) IsDeleting() bool { return s.deleting.Active() }

// HasCancel reports whether a cancel callback was configured.
func (s *DeleteState[T]) HasCancel() bool { return s.cfg.Cancel != nil }

// Delete deletes instance through the configured callback.
func (s *DeleteState[T]) Delete(ctx context.Context, instance T, options any) error {
	if s.cfg.Delete == nil {
		return s.Report("delete", ErrNotConfigured)
	}
	done := s.deleting.Track()
	err := s.cfg.Delete(ctx, s, instance, options)
	done()
	return s.Report("delete", err)
}

// Cancel abandons the deletion. Without a cancel callback it does nothing.
func (s *DeleteState[T]) Cancel(ctx context.Context, instance T) error {
	if s.cfg.Cancel == nil {
		return nil
	}
	return s.Report("cancel", s.cfg.Cancel(ctx, s, instance))
}
