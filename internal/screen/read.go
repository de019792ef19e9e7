package screen

import "github.com/matthewbaird/screens/internal/meta"

// ReadDescriber describes a read-only screen of a single instance. Its state
// is the base state; reading adds no behaviour of its own.
type ReadDescriber[T any] struct {
	*Describer[T]
}

// NewReadDescriber creates a read describer for model.
func NewReadDescriber[T any](model meta.Model, opts ...Option) *ReadDescriber[T] {
	return &ReadDescriber[T]{Describer: NewDescriber[T](model, opts...)}
}
