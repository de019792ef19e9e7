package list

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/screens/internal/screen"
)

func TestExprVisibility_HidesFilteredColumns(t *testing.T) {
	hook, err := ExprVisibility[row](`property.visible && !any(filters, .path == property.path)`)
	require.NoError(t, err)

	rec := &recorder{}
	st := newTestState(t, Config[row]{Refresh: rec.refresh, Visibility: hook})
	ctx := context.Background()

	require.NoError(t, st.AddFilter(ctx, Filter{Path: "title", Operator: OpContains, Value: "go"}))
	assert.Equal(t, []string{"status", "createdAt"}, st.Visible())

	require.NoError(t, st.ClearFiltering(ctx))
	assert.Equal(t, []string{"title", "status", "createdAt"}, st.Visible())
}

func TestExprVisibility_ModeAndPage(t *testing.T) {
	hook, err := ExprVisibility[row](`mode == "compact" ? property.path == "title" : property.visible`)
	require.NoError(t, err)

	rec := &recorder{}
	st := newTestState(t, Config[row]{
		Refresh:    rec.refresh,
		Visibility: hook,
		Modes:      []Mode{{ID: "full"}, {ID: "compact"}},
	})
	require.NoError(t, st.SetMode(context.Background(), Mode{ID: "compact"}))
	assert.Equal(t, []string{"title"}, st.Visible())
}

func TestExprVisibility_CompileError(t *testing.T) {
	_, err := ExprVisibility[row](`property.path ==`)
	assert.Error(t, err)

	_, err = ExprVisibility[row](`page + 1`)
	assert.Error(t, err, "non-boolean predicates are rejected")
}

func TestExprVisibility_RuntimeErrorKeepsProperty(t *testing.T) {
	hook, err := ExprVisibility[row](`property.order % page == 0`)
	require.NoError(t, err)

	rec := &recorder{}
	st := newTestState(t, Config[row]{Refresh: rec.refresh, Visibility: hook})

	var events []screen.ErrorEvent
	st.SubscribeErrors(func(e screen.ErrorEvent) { events = append(events, e) })

	st.RefreshVisibility()
	assert.Len(t, st.Visible(), 4)
	assert.NotEmpty(t, events)
	assert.Equal(t, "visibility", events[0].Op)
}
