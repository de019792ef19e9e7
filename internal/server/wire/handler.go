package wire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/screens/internal/event"
	"github.com/matthewbaird/screens/internal/eventbus"
	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/screen"
	"github.com/matthewbaird/screens/internal/server/session"
	"github.com/matthewbaird/screens/internal/store"
)

// Lists resolves the list describer of a model route parameter.
type Lists func(model string) (*list.Describer[store.Record], bool)

// Handler manages WebSocket connections for live list screens. Each
// connection owns one list state.
type Handler struct {
	sessions *session.Manager
	lists    Lists
	bus      *eventbus.Bus
}

// NewHandler creates a WebSocket handler. bus may be nil; with a bus, state
// changes are published and record saves or deletes on the session's model
// refresh the list.
func NewHandler(sessions *session.Manager, lists Lists, bus *eventbus.Bus) *Handler {
	return &Handler{sessions: sessions, lists: lists, bus: bus}
}

// ServeHTTP upgrades to WebSocket and runs the message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d, ok := h.lists(chi.URLParam(r, "model"))
	if !ok {
		http.Error(w, "unknown model", http.StatusNotFound)
		return
	}
	state, err := d.State()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("wire: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	sess := h.sessions.Create(state.Model)
	sess.StateID = state.ID
	defer h.sessions.Remove(sess.ID)

	desc, _ := d.Screen()
	h.send(ctx, conn, ServerMessage{
		Type: TypeSession,
		Data: SessionData{
			SessionID: sess.ID,
			StateID:   state.ID,
			Model:     state.Model,
			Screen:    desc,
			Modes:     d.Modes(),
		},
	})

	stopProps := state.SubscribeProperties(func(props []screen.PropertyDescription) {
		h.send(ctx, conn, ServerMessage{Type: TypeProperties, Data: PropertiesData{Properties: props}})
	})
	defer stopProps()
	stopData := state.SubscribeRefreshes(func(r list.Refreshed[store.Record]) {
		h.send(ctx, conn, ServerMessage{Type: TypeData, Data: DataData{Seq: r.Seq, Items: r.Items}})
	})
	defer stopData()

	reason := "client closed"
	if h.bus != nil {
		stopWatch := event.WatchList(ctx, h.bus, state)
		defer stopWatch()
		name := "session:" + sess.ID
		h.bus.Subscribe(name, eventbus.HandlerFunc(func(ctx context.Context, evt event.ScreenEvent) error {
			if evt.Model != state.Model || (evt.EventType != event.TypeSaved && evt.EventType != event.TypeDeleted) {
				return nil
			}
			_, err := state.Refresh(ctx)
			return err
		}))
		defer h.bus.Unsubscribe(name)
		h.bus.Publish(ctx, event.NewSessionOpened(sess.ID, state.Model))
		defer func() {
			h.bus.Publish(context.WithoutCancel(ctx), event.NewSessionClosed(sess.ID, state.Model, reason))
		}()
	}

	if _, err := state.Refresh(ctx); err != nil {
		h.sendError(ctx, conn, "", err)
	}
	h.sendState(ctx, conn, "", state)

	// Message loop
	for {
		var msg ClientMessage
		err := wsjson.Read(ctx, conn, &msg)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				log.Printf("wire: connection closed: %v", websocket.CloseStatus(err))
			}
			return
		}
		if h.sessions.Get(sess.ID) == nil {
			reason = "expired"
			conn.Close(websocket.StatusPolicyViolation, "session expired")
			return
		}
		sess.AddCommand()

		if msg.Type == TypePing {
			h.send(ctx, conn, ServerMessage{Type: TypePong, RequestID: msg.ID})
			continue
		}
		if err := h.apply(ctx, state, d, msg); err != nil {
			h.sendError(ctx, conn, msg.ID, err)
		}
		h.sendState(ctx, conn, msg.ID, state)
	}
}

var errUnknownType = errors.New("unknown message type")

type invalidDataError struct{ err error }

func (e *invalidDataError) Error() string { return "invalid data: " + e.err.Error() }
func (e *invalidDataError) Unwrap() error { return e.err }

func decode(msg ClientMessage, v any) error {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return &invalidDataError{err: err}
	}
	return nil
}

// apply runs one client command against state.
func (h *Handler) apply(ctx context.Context, state *list.State[store.Record], d *list.Describer[store.Record], msg ClientMessage) error {
	switch msg.Type {
	case TypeRefresh:
		_, err := state.Refresh(ctx)
		return err
	case TypeSort:
		var data SortData
		if err := decode(msg, &data); err != nil {
			return err
		}
		return state.Sort(ctx, data.Path, data.Order)
	case TypeClearSorting:
		return state.ClearSorting(ctx)
	case TypeAddFilter, TypeRemoveFilter:
		var f list.Filter
		if err := decode(msg, &f); err != nil {
			return err
		}
		if msg.Type == TypeAddFilter {
			return state.AddFilter(ctx, f)
		}
		return state.RemoveFilter(ctx, f)
	case TypeClearFiltering:
		return state.ClearFiltering(ctx)
	case TypeSetPage:
		var data PageData
		if err := decode(msg, &data); err != nil {
			return err
		}
		return state.SetPage(ctx, data.Page)
	case TypeSetItemsPerPage:
		var data ItemsPerPageData
		if err := decode(msg, &data); err != nil {
			return err
		}
		return state.SetItemsPerPage(ctx, data.ItemsPerPage)
	case TypeFirstPage:
		return state.FirstPage(ctx)
	case TypeLastPage:
		return state.LastPage(ctx)
	case TypeNextPage:
		return state.NextPage(ctx)
	case TypePreviousPage:
		return state.PreviousPage(ctx)
	case TypeSetMode:
		var data ModeData
		if err := decode(msg, &data); err != nil {
			return err
		}
		for _, m := range d.Modes() {
			if m.ID == data.ID {
				return state.SetMode(ctx, m)
			}
		}
		return fmt.Errorf("unknown mode %q", data.ID)
	case TypeSetVisible:
		var data VisibleData
		if err := decode(msg, &data); err != nil {
			return err
		}
		state.SetVisible(data.Paths)
		return nil
	default:
		return fmt.Errorf("%w: %s", errUnknownType, msg.Type)
	}
}

func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn, requestID string, state *list.State[store.Record]) {
	q := state.Query()
	h.send(ctx, conn, ServerMessage{
		Type:      TypeState,
		RequestID: requestID,
		Data: StateData{
			Filters:    q.Filters,
			Sorting:    q.Sorting,
			Paging:     q.Paging,
			Mode:       q.Mode,
			Visible:    q.Visible,
			Refreshing: state.IsRefreshing(),
		},
	})
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.Printf("wire: write error: %v", err)
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID string, err error) {
	data := ErrorData{Code: "error", Message: err.Error()}
	var upe *screen.UnknownPathError
	var ide *invalidDataError
	switch {
	case errors.As(err, &upe):
		data.Code = "unknown_path"
		data.Suggestion = upe.Suggestion
	case errors.As(err, &ide):
		data.Code = "invalid_data"
	case errors.Is(err, errUnknownType):
		data.Code = "unknown_type"
	case errors.Is(err, store.ErrUnsupportedOperator):
		data.Code = "unsupported_operator"
	}
	h.send(ctx, conn, ServerMessage{
		Type:      TypeError,
		RequestID: requestID,
		Data:      data,
	})
}
