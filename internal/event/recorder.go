// Package event turns screen state changes into ScreenEvents and hands them
// to a Publisher, usually the in-process event bus.
package event

import (
	"context"

	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/screen"
)

// Publisher sends screen events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt ScreenEvent)
}

// PublisherFunc adapts a plain function to the Publisher interface.
type PublisherFunc func(ctx context.Context, evt ScreenEvent)

func (f PublisherFunc) Publish(ctx context.Context, evt ScreenEvent) { f(ctx, evt) }

// ErrorHandler returns a describer error handler publishing every failure
// of the states it creates.
func ErrorHandler(ctx context.Context, pub Publisher) screen.Option {
	return screen.WithErrorHandler(func(e screen.ErrorEvent) {
		pub.Publish(ctx, NewFailed(e))
	})
}

// WatchList publishes the refreshes and visibility changes of s until the
// returned cancel is called. Failures are published through ErrorHandler.
func WatchList[T any](ctx context.Context, pub Publisher, s *list.State[T]) (cancel func()) {
	stopRefresh := s.SubscribeRefreshes(func(r list.Refreshed[T]) {
		pub.Publish(ctx, NewRefreshed(s.ID, s.Model, r.Query, len(r.Items)))
	})
	stopVisible := s.SubscribeProperties(func(props []screen.PropertyDescription) {
		pub.Publish(ctx, NewVisibilityChanged(s.ID, s.Model, screen.Paths(props)))
	})
	return func() {
		stopRefresh()
		stopVisible()
	}
}
