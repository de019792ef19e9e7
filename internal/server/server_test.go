package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/screens/internal/activity"
	"github.com/matthewbaird/screens/internal/eventbus"
	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/screen"
	"github.com/matthewbaird/screens/internal/server/session"
	"github.com/matthewbaird/screens/internal/server/wire"
	"github.com/matthewbaird/screens/internal/store"
)

func taskRegistry() *meta.Registry {
	task := meta.NewSchema("Task").
		Attr("id", meta.KindUUID, meta.Hidden()).
		Attr("title", meta.KindString, meta.Sortable(true), meta.Filterable(true)).
		Attr("points", meta.KindInt, meta.Sortable(true)).
		ReadOnly("id").
		Optional("points")
	r := meta.NewRegistry()
	r.MustRegister(task)
	return r
}

type fixture struct {
	srv     *Server
	store   store.Store
	bus     *eventbus.Bus
	counter *eventbus.Counter
	history *activity.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := taskRegistry()
	st := store.NewMemoryStore(reg)
	bus := eventbus.New(64)
	counter := eventbus.NewCounter()
	bus.Subscribe("counter", counter)
	history := activity.NewMemoryStore(0)
	bus.Subscribe("activity", activity.NewIndexer(history))

	ctx, cancel := context.WithCancel(context.Background())
	go bus.Start(ctx)
	t.Cleanup(cancel)

	srv := New(Config{
		Registry:     reg,
		Store:        st,
		Sessions:     session.NewManager(time.Hour, time.Hour),
		Bus:          bus,
		Counter:      counter,
		Activity:     history,
		ItemsPerPage: 10,
		Logger:       screen.NopLogger,
	})
	return &fixture{srv: srv, store: st, bus: bus, counter: counter, history: history}
}

func (f *fixture) seed(t *testing.T, titles ...string) []store.Record {
	t.Helper()
	var out []store.Record
	for i, title := range titles {
		r, err := f.store.Save(context.Background(), "Task", store.Record{"title": title, "points": i + 1})
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestServer_Healthz(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_Screens(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/screens", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "task", list[0]["key"])
	assert.Equal(t, "tasks", list[0]["plural"])

	rec = f.do(t, http.MethodGet, "/api/screens/task", "")
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[struct {
		Visible    []string `json:"visible"`
		Properties []struct {
			Path string `json:"path"`
		} `json:"properties"`
	}](t, rec)
	assert.Equal(t, []string{"title", "points"}, detail.Visible)
	assert.Len(t, detail.Properties, 3)

	rec = f.do(t, http.MethodGet, "/api/screens/tsk", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `did you mean \"task\"`)
}

func TestServer_RecordLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/screens/task/records", `{"title":"write docs","points":3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[recordResponse](t, rec)
	id := created.Record.ID()
	require.NotEmpty(t, id)
	assert.Equal(t, "write docs", created.Record["title"])

	rec = f.do(t, http.MethodGet, "/api/screens/task/records/"+id, "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[recordResponse](t, rec)
	assert.Equal(t, []string{"title", "points"}, screen.Paths(got.Properties))

	rec = f.do(t, http.MethodPut, "/api/screens/task/records/"+id, `{"points":5}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeBody[recordResponse](t, rec)
	assert.Equal(t, "write docs", updated.Record["title"])
	assert.EqualValues(t, 5, updated.Record["points"])

	rec = f.do(t, http.MethodDelete, "/api/screens/task/records/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/screens/task/records/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodDelete, "/api/screens/task/records/"+id, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Eventually(t, func() bool {
		counts := f.counter.Snapshot()["Task"]
		return counts["record_saved"] == 2 && counts["record_deleted"] == 1
	}, time.Second, 10*time.Millisecond)

	rec = f.do(t, http.MethodGet, "/api/events/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"record_deleted":1`)
}

func TestServer_Validation(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/screens/task/records", `{"points":"many","color":"red"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decodeBody[struct {
		Code   string              `json:"code"`
		Errors map[string][]string `json:"errors"`
	}](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, map[string][]string{
		"title":  {"required"},
		"points": {"must be a whole number"},
		"color":  {"unknown field"},
	}, body.Errors)

	rec = f.do(t, http.MethodPost, "/api/screens/task/records", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/screens/task/records/missing", `{"title":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Eventually(t, func() bool {
		return f.counter.Snapshot()["Task"]["operation_failed"] == 1
	}, time.Second, 10*time.Millisecond)
}

func TestServer_ListRecords(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "alpha", "bravo", "charlie", "delta", "echo")

	rec := f.do(t, http.MethodGet, "/api/screens/task/records?sort=title:desc&per_page=2&page=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeBody[listResponse](t, rec)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "charlie", resp.Items[0]["title"])
	assert.Equal(t, "bravo", resp.Items[1]["title"])
	require.NotNil(t, resp.Query.Paging)
	assert.Equal(t, 2, resp.Query.Paging.Page)
	assert.Equal(t, 3, resp.Query.Paging.NumPages)
	assert.Equal(t, 5, resp.Query.Paging.NumItems)

	rec = f.do(t, http.MethodGet, "/api/screens/task/records?filter=title:prefix:D", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[listResponse](t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "delta", resp.Items[0]["title"])

	rec = f.do(t, http.MethodGet, "/api/screens/task/records?page=99", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[listResponse](t, rec)
	assert.Equal(t, 1, resp.Query.Paging.Page)
	assert.Len(t, resp.Items, 5)

	rec = f.do(t, http.MethodGet, "/api/screens/task/records", "")
	resp = decodeBody[listResponse](t, rec)
	assert.NotNil(t, resp.Items)
}

func TestServer_ListRecordsErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"unknown sort path", "sort=titel", "UNKNOWN_PATH"},
		{"unknown filter path", "filter=titel:eq:x", "UNKNOWN_PATH"},
		{"bad order", "sort=title:sideways", "INVALID_QUERY"},
		{"malformed filter", "filter=title", "INVALID_QUERY"},
		{"bad page", "page=zero", "INVALID_QUERY"},
		{"unknown mode", "mode=kanban", "INVALID_QUERY"},
		{"bad operator", "filter=title:like:x", "INVALID_QUERY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/screens/task/records?"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"code":"`+tt.code+`"`)
		})
	}
}

type wsMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) []wsMessage {
	t.Helper()
	var seen []wsMessage
	for {
		var msg wsMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		seen = append(seen, msg)
		if msg.Type == typ {
			return seen
		}
	}
}

func lastOfType(msgs []wsMessage, typ string) (wsMessage, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == typ {
			return msgs[i], true
		}
	}
	return wsMessage{}, false
}

func TestServer_WebSocketList(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "bravo", "alpha", "charlie")

	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/screens/task/ws", nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	msgs := readUntil(t, ctx, conn, wire.TypeState)
	require.Equal(t, wire.TypeSession, msgs[0].Type)
	var sess wire.SessionData
	require.NoError(t, json.Unmarshal(msgs[0].Data, &sess))
	assert.Equal(t, "Task", sess.Model)
	assert.NotEmpty(t, sess.SessionID)

	data, ok := lastOfType(msgs, wire.TypeData)
	require.True(t, ok)
	var rows wire.DataData
	require.NoError(t, json.Unmarshal(data.Data, &rows))
	assert.Len(t, rows.Items, 3)

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type": wire.TypeSort, "id": "1", "data": map[string]any{"path": "title", "order": "asc"},
	}))
	msgs = readUntil(t, ctx, conn, wire.TypeState)
	assert.Equal(t, "1", msgs[len(msgs)-1].RequestID)
	data, ok = lastOfType(msgs, wire.TypeData)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(data.Data, &rows))
	require.Len(t, rows.Items, 3)
	assert.Equal(t, "alpha", rows.Items[0]["title"])

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{
		"type": wire.TypeSort, "id": "2", "data": map[string]any{"path": "titel", "order": "asc"},
	}))
	msgs = readUntil(t, ctx, conn, wire.TypeState)
	errMsg, ok := lastOfType(msgs, wire.TypeError)
	require.True(t, ok)
	assert.Equal(t, "2", errMsg.RequestID)
	var ed wire.ErrorData
	require.NoError(t, json.Unmarshal(errMsg.Data, &ed))
	assert.Equal(t, "unknown_path", ed.Code)
	assert.Equal(t, "title", ed.Suggestion)

	rec := f.do(t, http.MethodGet, "/api/sessions", "")
	assert.Contains(t, rec.Body.String(), sess.SessionID)

	// A save elsewhere refreshes the live list.
	rec = f.do(t, http.MethodPost, "/api/screens/task/records", `{"title":"aardvark"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	msgs = readUntil(t, ctx, conn, wire.TypeData)
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].Data, &rows))
	require.Len(t, rows.Items, 4)
	assert.Equal(t, "aardvark", rows.Items[0]["title"])

	require.NoError(t, wsjson.Write(ctx, conn, map[string]any{"type": wire.TypePing, "id": "p"}))
	msgs = readUntil(t, ctx, conn, wire.TypePong)
	assert.Equal(t, "p", msgs[len(msgs)-1].RequestID)
}

func TestServer_EventHistory(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/screens/task/records", `{"title":"write docs"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = f.do(t, http.MethodPost, "/api/screens/task/records", `{"points":3}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	type history struct {
		Events []struct {
			EventType string `json:"event_type"`
			Model     string `json:"model"`
			Summary   string `json:"summary"`
			Weight    string `json:"weight"`
		} `json:"events"`
		NextCursor string `json:"next_cursor"`
		TotalCount int    `json:"total_count"`
	}

	require.Eventually(t, func() bool {
		rec := f.do(t, http.MethodGet, "/api/events?model=Task", "")
		return rec.Code == http.StatusOK && decodeBody[history](t, rec).TotalCount == 2
	}, time.Second, 10*time.Millisecond)

	rec = f.do(t, http.MethodGet, "/api/events?model=Task&min_weight=error", "")
	require.Equal(t, http.StatusOK, rec.Code)
	errs := decodeBody[history](t, rec)
	require.Len(t, errs.Events, 1)
	assert.Equal(t, "operation_failed", errs.Events[0].EventType)
	assert.Equal(t, "error", errs.Events[0].Weight)

	rec = f.do(t, http.MethodGet, "/api/events?model=Task&limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[history](t, rec)
	assert.Len(t, page.Events, 1)
	assert.NotEmpty(t, page.NextCursor)

	rec = f.do(t, http.MethodPost, "/api/events/search", `{"query":"SAVED","model":"Task"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decodeBody[history](t, rec)
	require.Len(t, found.Events, 1)
	assert.Equal(t, "record_saved", found.Events[0].EventType)

	rec = f.do(t, http.MethodGet, "/api/events/summary?model=Task", "")
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody[activity.Summary](t, rec)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Categories["form"].Count)
	assert.Equal(t, "degraded", summary.Health)
	assert.Empty(t, summary.Alerts)

	rec = f.do(t, http.MethodGet, "/api/events?min_weight=fatal", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodGet, "/api/events?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = f.do(t, http.MethodPost, "/api/events/search", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
