package screen

import (
	"context"

	"github.com/google/uuid"
)

// ActionDescriptor declares an action that applies to the whole screen.
type ActionDescriptor struct {
	ID      string
	Label   string
	Data    any
	Perform func(ctx context.Context, action *ActionState, options any) (any, error)
}

// ContextualActionDescriptor declares an action that applies to one
// instance of the model.
type ContextualActionDescriptor[T any] struct {
	ID      string
	Label   string
	Data    any
	Perform func(ctx context.Context, action *ContextualActionState[T], instance T, options any) (any, error)
}

// ActionState is an ActionDescriptor bound to a screen state.
type ActionState struct {
	ActionDescriptor
	performing Flag
	report     func(op string, err error)
}

// IsPerforming reports whether a Run of the action is in flight.
func (a *ActionState) IsPerforming() bool { return a.performing.Active() }

// Do invokes the action's perform function with the bound action as its
// receiver. It does not touch the performing flag.
func (a *ActionState) Do(ctx context.Context, options any) (any, error) {
	if a.Perform == nil {
		return nil, a.fail(ErrNoPerform)
	}
	res, err := a.Perform(ctx, a, options)
	if err != nil {
		return nil, a.fail(err)
	}
	return res, nil
}

// Run is Do bracketed by the performing flag.
func (a *ActionState) Run(ctx context.Context, options any) (any, error) {
	done := a.performing.Track()
	defer done()
	return a.Do(ctx, options)
}

func (a *ActionState) fail(err error) error {
	if a.report != nil {
		a.report("action:"+a.ID, err)
	}
	return err
}

// ContextualActionState is a ContextualActionDescriptor bound to a screen
// state.
type ContextualActionState[T any] struct {
	ContextualActionDescriptor[T]
	performing Flag
	report     func(op string, err error)
}

// IsPerforming reports whether a Run of the action is in flight.
func (a *ContextualActionState[T]) IsPerforming() bool { return a.performing.Active() }

// Do invokes the action on instance.
func (a *ContextualActionState[T]) Do(ctx context.Context, instance T, options any) (any, error) {
	if a.Perform == nil {
		return nil, a.fail(ErrNoPerform)
	}
	res, err := a.Perform(ctx, a, instance, options)
	if err != nil {
		return nil, a.fail(err)
	}
	return res, nil
}

// Run is Do bracketed by the performing flag.
func (a *ContextualActionState[T]) Run(ctx context.Context, instance T, options any) (any, error) {
	done := a.performing.Track()
	defer done()
	return a.Do(ctx, instance, options)
}

func (a *ContextualActionState[T]) fail(err error) error {
	if a.report != nil {
		a.report("action:"+a.ID, err)
	}
	return err
}

// BindActions binds descriptors to a state. Each result is a fresh copy;
// descriptors without an ID are given one. report receives failures and
// may be nil.
func BindActions(descs []ActionDescriptor, report func(op string, err error)) []*ActionState {
	out := make([]*ActionState, len(descs))
	for i, d := range descs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		out[i] = &ActionState{ActionDescriptor: d, report: report}
	}
	return out
}

// BindContextualActions binds contextual descriptors to a state.
func BindContextualActions[T any](descs []ContextualActionDescriptor[T], report func(op string, err error)) []*ContextualActionState[T] {
	out := make([]*ContextualActionState[T], len(descs))
	for i, d := range descs {
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		out[i] = &ContextualActionState[T]{ContextualActionDescriptor: d, report: report}
	}
	return out
}
