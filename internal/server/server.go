// Package server assembles the screen describers of every registered model
// behind a REST and WebSocket API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matthewbaird/screens/internal/activity"
	"github.com/matthewbaird/screens/internal/event"
	"github.com/matthewbaird/screens/internal/eventbus"
	"github.com/matthewbaird/screens/internal/form"
	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/screen"
	"github.com/matthewbaird/screens/internal/server/session"
	"github.com/matthewbaird/screens/internal/server/wire"
	"github.com/matthewbaird/screens/internal/store"
)

// Config holds server configuration.
type Config struct {
	Addr         string
	Registry     *meta.Registry
	Store        store.Store
	Sessions     *session.Manager
	Bus          *eventbus.Bus     // optional
	Counter      *eventbus.Counter // optional; backs /api/events/stats
	Activity     activity.Store    // optional; backs /api/events
	ItemsPerPage int
	Logger       screen.Logger
}

// screens holds the describers of one model.
type screens struct {
	model  meta.Model
	list   *list.Describer[store.Record]
	form   *form.Describer[store.Record]
	read   *screen.ReadDescriber[store.Record]
	delete *screen.DeleteDescriber[store.Record]
}

// Server serves the screens of every model in the registry.
type Server struct {
	cfg     Config
	screens map[string]*screens
	router  chi.Router
}

// New builds the describers of every registered model and the routes over
// them.
func New(cfg Config) *Server {
	if cfg.ItemsPerPage < 1 {
		cfg.ItemsPerPage = 25
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewManager(4*time.Hour, 30*time.Minute)
	}
	s := &Server{cfg: cfg, screens: make(map[string]*screens)}

	var opts []screen.Option
	if cfg.Logger != nil {
		opts = append(opts, screen.WithLogger(cfg.Logger))
	}
	if cfg.Bus != nil {
		opts = append(opts, event.ErrorHandler(context.Background(), cfg.Bus))
	}
	for _, m := range cfg.Registry.Models() {
		name := m.Name()
		s.screens[meta.Key(name)] = &screens{
			model: m,
			list: list.NewDescriber(m, list.Config[store.Record]{
				Refresh:    store.Refresh(cfg.Store, name),
				Paging:     &list.Paging{Page: 1, ItemsPerPage: cfg.ItemsPerPage},
				StaleGuard: true,
			}, opts...),
			form:   form.NewDescriber(m, form.Config[store.Record]{Save: store.SaveForm(cfg.Store, name)}, opts...),
			read:   screen.NewReadDescriber[store.Record](m, opts...),
			delete: screen.NewDeleteDescriber(m, store.DeleteConfig(cfg.Store, name), opts...),
		}
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ws := wire.NewHandler(s.cfg.Sessions, s.lookupList, s.cfg.Bus)

	r.Route("/api", func(r chi.Router) {
		r.Get("/screens", s.listScreens)
		r.Route("/screens/{model}", func(r chi.Router) {
			r.Get("/", s.getScreen)
			r.Get("/records", s.listRecords)
			r.Post("/records", s.createRecord)
			r.Get("/records/{id}", s.getRecord)
			r.Put("/records/{id}", s.updateRecord)
			r.Delete("/records/{id}", s.deleteRecord)
			r.Method(http.MethodGet, "/ws", ws)
		})
		r.Get("/sessions", s.listSessions)
		r.Get("/events", s.listEvents)
		r.Post("/events/search", s.searchEvents)
		r.Get("/events/summary", s.eventSummary)
		r.Get("/events/stats", s.eventStats)
	})
	return r
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler { return s.router }

// Run listens on cfg.Addr until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Printf("starting server on %s (%d models registered)", s.cfg.Addr, len(s.screens))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) lookup(model string) (*screens, bool) {
	sc, ok := s.screens[meta.Key(model)]
	return sc, ok
}

func (s *Server) lookupList(model string) (*list.Describer[store.Record], bool) {
	sc, ok := s.lookup(model)
	if !ok {
		return nil, false
	}
	return sc.list, true
}

// modelParam resolves the {model} route parameter or writes a 404.
func (s *Server) modelParam(w http.ResponseWriter, r *http.Request) (*screens, bool) {
	name := chi.URLParam(r, "model")
	sc, ok := s.lookup(name)
	if !ok {
		msg := fmt.Sprintf("unknown model %q", name)
		if hint := screen.Suggest(name, s.cfg.Registry.Keys()); hint != "" {
			msg += fmt.Sprintf(", did you mean %q?", hint)
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", msg)
		return nil, false
	}
	return sc, true
}

func (s *Server) publish(ctx context.Context, evt event.ScreenEvent) {
	if s.cfg.Bus != nil {
		s.cfg.Bus.Publish(ctx, evt)
	}
}

type screenSummary struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	screen.ScreenDescription
}

type screenDetail struct {
	screenSummary
	Properties        []screen.PropertyDescription `json:"properties"`
	Modes             []list.Mode                  `json:"modes,omitempty"`
	Actions           []string                     `json:"actions,omitempty"`
	ContextualActions []string                     `json:"contextual_actions,omitempty"`
}

func (s *Server) summary(sc *screens) (screenSummary, error) {
	desc, err := sc.list.Screen()
	if err != nil {
		return screenSummary{}, err
	}
	return screenSummary{Key: meta.Key(sc.model.Name()), Name: sc.model.Name(), ScreenDescription: desc}, nil
}

func (s *Server) listScreens(w http.ResponseWriter, r *http.Request) {
	out := make([]screenSummary, 0, len(s.screens))
	for _, key := range s.cfg.Registry.Keys() {
		sc, ok := s.screens[key]
		if !ok {
			continue
		}
		sum, err := s.summary(sc)
		if err != nil {
			errorToHTTP(w, err)
			return
		}
		out = append(out, sum)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getScreen(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.modelParam(w, r)
	if !ok {
		return
	}
	sum, err := s.summary(sc)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	props, err := sc.list.Properties()
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	detail := screenDetail{screenSummary: sum, Properties: props, Modes: sc.list.Modes()}
	for _, a := range sc.list.Actions() {
		detail.Actions = append(detail.Actions, a.ID)
	}
	for _, a := range sc.list.ContextualActions() {
		detail.ContextualActions = append(detail.ContextualActions, a.ID)
	}
	writeJSON(w, http.StatusOK, detail)
}

type listResponse struct {
	Items      []store.Record               `json:"items"`
	Properties []screen.PropertyDescription `json:"properties"`
	Query      list.Query                   `json:"query"`
}

// listRecords runs one list state through the query params: sort and filter
// mutations are batched, the first refresh establishes the totals and a
// requested page past the first triggers a second refresh.
func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.modelParam(w, r)
	if !ok {
		return
	}
	params, err := parseListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
		return
	}
	state, err := sc.list.State()
	if err != nil {
		errorToHTTP(w, err)
		return
	}

	ctx := r.Context()
	hold := list.NoRefresh()
	for _, srt := range params.Sorting {
		if err := state.Sort(ctx, srt.Path, srt.Order, hold); err != nil {
			errorToHTTP(w, err)
			return
		}
	}
	for _, f := range params.Filters {
		if err := state.AddFilter(ctx, f, hold); err != nil {
			errorToHTTP(w, err)
			return
		}
	}
	if params.ItemsPerPage > 0 {
		state.SetItemsPerPage(ctx, params.ItemsPerPage, hold)
	}
	if params.Mode != "" {
		found := false
		for _, m := range state.Modes() {
			if m.ID == params.Mode {
				state.SetMode(ctx, m, hold)
				found = true
			}
		}
		if !found {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", fmt.Sprintf("unknown mode %q", params.Mode))
			return
		}
	}

	items, err := state.Refresh(ctx)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if params.Page > 1 {
		if err := state.SetPage(ctx, params.Page); err != nil {
			errorToHTTP(w, err)
			return
		}
		items = state.Data()
	}
	if items == nil {
		items = []store.Record{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Properties: state.Properties(),
		Query:      state.Query(),
	})
}

type recordResponse struct {
	Record     store.Record                 `json:"record"`
	Properties []screen.PropertyDescription `json:"properties"`
}

func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.modelParam(w, r)
	if !ok {
		return
	}
	rec, err := s.cfg.Store.Get(r.Context(), sc.model.Name(), chi.URLParam(r, "id"))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	state, err := sc.read.State()
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Record: rec, Properties: state.Properties()})
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.modelParam(w, r)
	if !ok {
		return
	}
	var in store.Record
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	delete(in, "id")
	s.save(w, r, sc, in, http.StatusCreated)
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.modelParam(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.cfg.Store.Get(r.Context(), sc.model.Name(), id); err != nil {
		errorToHTTP(w, err)
		return
	}
	var in store.Record
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	in["id"] = id
	s.save(w, r, sc, in, http.StatusOK)
}

// save runs in through a form state so validation failures land on the
// state's field errors before they are rendered.
func (s *Server) save(w http.ResponseWriter, r *http.Request, sc *screens, in store.Record, status int) {
	state, err := sc.form.State(in)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	saved, err := state.Save(r.Context(), nil)
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	s.publish(r.Context(), event.NewSaved(sc.model.Name(), saved.ID()))
	writeJSON(w, status, recordResponse{Record: saved, Properties: state.Properties()})
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	sc, ok := s.modelParam(w, r)
	if !ok {
		return
	}
	rec, err := s.cfg.Store.Get(r.Context(), sc.model.Name(), chi.URLParam(r, "id"))
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	state, err := sc.delete.State()
	if err != nil {
		errorToHTTP(w, err)
		return
	}
	if err := state.Delete(r.Context(), rec, nil); err != nil {
		errorToHTTP(w, err)
		return
	}
	s.publish(r.Context(), event.NewDeleted(sc.model.Name(), rec.ID()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Sessions.List())
}

func (s *Server) eventStats(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Counter == nil {
		writeJSON(w, http.StatusOK, map[string]map[string]int{})
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Counter.Snapshot())
}
