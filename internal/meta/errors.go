package meta

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicatePath is reported when two properties of a model share a path.
	ErrDuplicatePath = errors.New("duplicate property path")
	// ErrUnnamedModel is reported for models without a declared name.
	ErrUnnamedModel = errors.New("model has no name")
	// ErrEmptyEnum is reported by providers that find an enum without
	// extractable variants.
	ErrEmptyEnum = errors.New("enum attribute has no values")
)

// MetadataError reports that the description of a model could not be
// resolved. It is fatal to state synthesis.
type MetadataError struct {
	Model string
	Path  string // empty when the error concerns the whole model
	Err   error
}

func (e *MetadataError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path == "" {
		return fmt.Sprintf("meta: model %q: %v", e.Model, e.Err)
	}
	return fmt.Sprintf("meta: model %q property %q: %v", e.Model, e.Path, e.Err)
}

func (e *MetadataError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Errorf builds a MetadataError with a formatted cause.
func Errorf(model, path, format string, args ...any) *MetadataError {
	return &MetadataError{Model: model, Path: path, Err: fmt.Errorf(format, args...)}
}

// WrapError turns err into a MetadataError for model unless it already is one.
func WrapError(model string, err error) error {
	if err == nil {
		return nil
	}
	var me *MetadataError
	if errors.As(err, &me) {
		return err
	}
	return &MetadataError{Model: model, Err: err}
}

// IsMetadataError reports whether err wraps a MetadataError.
func IsMetadataError(err error) bool {
	var me *MetadataError
	return errors.As(err, &me)
}
