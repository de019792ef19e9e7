package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/screens/internal/form"
	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/screen"
)

type sink struct {
	mu     sync.Mutex
	events []ScreenEvent
}

func (s *sink) Publish(_ context.Context, evt ScreenEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *sink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, e := range s.events {
		out[i] = e.EventType
	}
	return out
}

func TestNewFailed_CarriesFieldErrors(t *testing.T) {
	err := form.NewError("Invalid", map[string][]string{"name": {"required"}})
	evt := NewFailed(screen.ErrorEvent{StateID: "s1", Model: "Author", Op: "save", Err: err})

	assert.Equal(t, TypeFailed, evt.EventType)
	assert.Equal(t, "form", evt.Category)
	assert.Equal(t, "error", evt.Weight)
	assert.False(t, evt.OccurredAt.IsZero())

	var p FailedPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &p))
	assert.Equal(t, "save", p.Op)
	assert.Equal(t, map[string][]string{"name": {"required"}}, p.Fields)
}

func TestWatchList(t *testing.T) {
	ctx := context.Background()
	model := meta.NewSchema("Post").
		Attr("title", meta.KindString, meta.Sortable(true)).
		Attr("views", meta.KindInt)

	fail := false
	pub := &sink{}
	d := list.NewDescriber[string](model, list.Config[string]{
		Refresh: func(context.Context, list.Query) (list.Result[string], error) {
			if fail {
				return list.Result[string]{}, errors.New("backend down")
			}
			return list.Result[string]{Items: []string{"a", "b"}}, nil
		},
	}, screen.WithLogger(screen.NopLogger), ErrorHandler(ctx, pub))
	s, err := d.State()
	require.NoError(t, err)

	cancel := WatchList(ctx, pub, s)
	require.NoError(t, s.Sort(ctx, "title", list.Desc))
	s.SetVisible([]string{"title"})
	fail = true
	_, err = s.Refresh(ctx)
	require.Error(t, err)
	cancel()
	_, _ = s.Refresh(ctx)

	assert.Equal(t, []string{TypeVisibilityChanged, TypeRefreshed, TypeVisibilityChanged, TypeFailed, TypeFailed}, pub.types())

	var p RefreshedPayload
	require.NoError(t, json.Unmarshal(pub.events[1].Payload, &p))
	assert.Equal(t, 2, p.Items)
	assert.Equal(t, []list.Sort{{Path: "title", Order: list.Desc}}, p.Sorting)
	assert.Equal(t, s.ID, pub.events[1].StateID)
}
