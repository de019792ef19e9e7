// Package form implements the state of a create/edit screen: the instance
// being edited, the save lifecycle and the validation errors returned by
// the save callback.
package form

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/screen"
)

// Error is a validation failure. Save callbacks return it to have the
// message and the per-path messages shown on the form.
type Error struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"` // path -> messages
}

// NewError returns a validation error.
func NewError(message string, errs map[string][]string) *Error {
	return &Error{Message: message, Errors: errs}
}

func (e *Error) Error() string {
	if e.Message != "" {
		return "form: " + e.Message
	}
	return "form: validation failed"
}

// Add appends a message for path and returns e.
func (e *Error) Add(path, message string) *Error {
	if e.Errors == nil {
		e.Errors = make(map[string][]string)
	}
	e.Errors[path] = append(e.Errors[path], message)
	return e
}

// Empty reports whether neither a message nor any path errors are set.
func (e *Error) Empty() bool {
	return e.Message == "" && len(e.Errors) == 0
}

// SaveFunc persists instance and returns the saved instance.
type SaveFunc[T any] func(ctx context.Context, state *State[T], instance T, options any) (T, error)

// CancelFunc abandons editing.
type CancelFunc[T any] func(ctx context.Context, state *State[T], instance T) error

// Config holds the callbacks of a form. Cancel may be nil.
type Config[T any] struct {
	Save   SaveFunc[T]
	Cancel CancelFunc[T]
}

// Describer describes a form screen.
type Describer[T any] struct {
	*screen.Describer[T]
	cfg Config[T]
}

// NewDescriber creates a form describer for model.
func NewDescriber[T any](model meta.Model, cfg Config[T], opts ...screen.Option) *Describer[T] {
	return &Describer[T]{Describer: screen.NewDescriber[T](model, opts...), cfg: cfg}
}

// State creates a fresh form state editing instance.
func (d *Describer[T]) State(instance T) (*State[T], error) {
	base, err := d.Describer.State()
	if err != nil {
		return nil, err
	}
	return &State[T]{State: base, cfg: d.cfg, instance: instance}, nil
}

// State is the state of a form screen.
type State[T any] struct {
	*screen.State[T]
	cfg Config[T]

	mu       sync.RWMutex
	instance T
	message  string
	errors   map[string][]string

	saving screen.Flag
}

// Instance returns the instance being edited.
func (s *State[T]) Instance() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instance
}

// Bind replaces the instance being edited.
func (s *State[T]) Bind(instance T) {
	s.mu.Lock()
	s.instance = instance
	s.mu.Unlock()
}

// ErrorMessage returns the form-level error message of the last save.
func (s *State[T]) ErrorMessage() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.message
}

// Errors returns the per-path messages of the last save.
func (s *State[T]) Errors() map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string, len(s.errors))
	for k, v := range s.errors {
		out[k] = slices.Clone(v)
	}
	return out
}

// FieldErrors returns the messages of path.
func (s *State[T]) FieldErrors(path string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.errors[path])
}

// IsSaving reports whether a save is in flight.
func (s *State[T]) IsSaving() bool { return s.saving.Active() }

// HasCancel reports whether a cancel callback was configured.
func (s *State[T]) HasCancel() bool { return s.cfg.Cancel != nil }

// Save clears previous errors and calls the save callback with the current
// instance. On success the saved instance is bound. A returned *Error fills
// the form errors and leaves the instance unchanged; any other error only
// reaches the error feed. The error is returned in both cases.
func (s *State[T]) Save(ctx context.Context, options any) (T, error) {
	if s.cfg.Save == nil {
		var zero T
		return zero, s.Report("save", screen.ErrNotConfigured)
	}

	s.mu.Lock()
	s.message, s.errors = "", nil
	instance := s.instance
	s.mu.Unlock()

	done := s.saving.Track()
	saved, err := s.cfg.Save(ctx, s, instance, options)
	done()

	if err != nil {
		var fe *Error
		s.mu.Lock()
		if errors.As(err, &fe) {
			s.message = fe.Message
			s.errors = maps.Clone(fe.Errors)
		}
		s.mu.Unlock()
		var zero T
		return zero, s.Report("save", err)
	}

	s.Bind(saved)
	return saved, nil
}

// Cancel abandons editing. Without a cancel callback it does nothing.
func (s *State[T]) Cancel(ctx context.Context) error {
	if s.cfg.Cancel == nil {
		return nil
	}
	return s.Report("cancel", s.cfg.Cancel(ctx, s, s.Instance()))
}
