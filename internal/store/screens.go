package store

import (
	"context"

	"github.com/matthewbaird/screens/internal/form"
	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/screen"
)

// Refresh returns a list refresh callback reading model from s.
func Refresh(s Store, model string) list.RefreshFunc[Record] {
	return func(ctx context.Context, q list.Query) (list.Result[Record], error) {
		return s.List(ctx, model, q)
	}
}

// SaveForm returns a form save callback writing model to s.
func SaveForm(s Store, model string) form.SaveFunc[Record] {
	return func(ctx context.Context, _ *form.State[Record], r Record, _ any) (Record, error) {
		return s.Save(ctx, model, r)
	}
}

// DeleteConfig returns a delete screen configuration removing records of
// model from s.
func DeleteConfig(s Store, model string) screen.DeleteConfig[Record] {
	return screen.DeleteConfig[Record]{
		Delete: func(ctx context.Context, _ *screen.DeleteState[Record], r Record, _ any) error {
			return s.Delete(ctx, model, r.ID())
		},
	}
}
