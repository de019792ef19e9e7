package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matthewbaird/screens/internal/activity"
	"github.com/matthewbaird/screens/internal/event"
)

// listEvents returns the event history newest first.
// GET /api/events?model=&state_id=&type=&category=&min_weight=&since=&until=&limit=&cursor=
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Activity == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "event history is not enabled")
		return
	}
	q := r.URL.Query()
	opts := activity.DefaultQueryOptions()
	opts.Model = q.Get("model")
	opts.StateID = q.Get("state_id")
	opts.Types = q["type"]
	if cats := q.Get("category"); cats != "" {
		opts.Categories = strings.Split(cats, ",")
	}
	if mw := q.Get("min_weight"); mw != "" {
		if _, ok := activity.WeightOrder[mw]; !ok {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "unknown weight "+strconv.Quote(mw))
			return
		}
		opts.MinWeight = mw
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "since: "+err.Error())
			return
		}
		opts.Since = &t
	}
	if v := q.Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "until: "+err.Error())
			return
		}
		opts.Until = &t
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			opts.Limit = min(n, 500)
		}
	}
	opts.Cursor = q.Get("cursor")

	events, next, total, err := s.cfg.Activity.Query(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	if events == nil {
		events = []event.ScreenEvent{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, NextCursor: next, TotalCount: total})
}

type eventsResponse struct {
	Events     []event.ScreenEvent `json:"events"`
	NextCursor string              `json:"next_cursor,omitempty"`
	TotalCount int                 `json:"total_count"`
}

// searchEvents matches event summaries.
// POST /api/events/search
func (s *Server) searchEvents(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Activity == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "event history is not enabled")
		return
	}
	var req struct {
		Query      string   `json:"query"`
		Model      string   `json:"model,omitempty"`
		Since      string   `json:"since,omitempty"`
		Categories []string `json:"categories,omitempty"`
		Limit      int      `json:"limit,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "query is required")
		return
	}

	opts := activity.DefaultSearchOptions()
	opts.Model = req.Model
	opts.Categories = req.Categories
	if req.Limit > 0 {
		opts.Limit = req.Limit
	}
	if req.Since != "" {
		if t, err := time.Parse(time.RFC3339, req.Since); err == nil {
			opts.Since = &t
		}
	}

	events, total, err := s.cfg.Activity.Search(r.Context(), req.Query, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SEARCH_FAILED", err.Error())
		return
	}
	if events == nil {
		events = []event.ScreenEvent{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, TotalCount: total})
}

// eventSummary aggregates recent events per category and evaluates the
// default alert rules.
// GET /api/events/summary?model=&since=
func (s *Server) eventSummary(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Activity == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "event history is not enabled")
		return
	}
	until := time.Now()
	since := until.Add(-24 * time.Hour)
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "since: "+err.Error())
			return
		}
		since = t
	}
	model := r.URL.Query().Get("model")

	events, _, _, err := s.cfg.Activity.Query(r.Context(), activity.QueryOptions{
		Model: model,
		Since: &since,
		Until: &until,
		Limit: 500, // fetch all for aggregation
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, activity.Summarize(events, model, since, until, activity.DefaultAlertRules))
}
