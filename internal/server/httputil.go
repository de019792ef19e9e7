package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/matthewbaird/screens/internal/form"
	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/screen"
	"github.com/matthewbaird/screens/internal/store"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

// listParams holds the list mutations parsed from query params.
type listParams struct {
	Sorting      []list.Sort
	Filters      []list.Filter
	Page         int
	ItemsPerPage int
	Mode         string
}

// parseListParams reads
//
//	sort=path[:asc|desc]   (repeatable)
//	filter=path:op:value   (repeatable; "in" takes comma-separated values)
//	page=N  per_page=N  mode=id
func parseListParams(r *http.Request) (listParams, error) {
	q := r.URL.Query()
	var p listParams
	for _, raw := range q["sort"] {
		path, order, _ := strings.Cut(raw, ":")
		o, err := list.ParseSortOrder(order)
		if err != nil {
			return p, err
		}
		p.Sorting = append(p.Sorting, list.Sort{Path: path, Order: o})
	}
	for _, raw := range q["filter"] {
		parts := strings.SplitN(raw, ":", 3)
		if len(parts) != 3 {
			return p, fmt.Errorf("filter %q: want path:operator:value", raw)
		}
		f := list.Filter{Path: parts[0], Operator: parts[1], Value: parts[2]}
		if f.Operator == list.OpIn {
			f.Value = strings.Split(parts[2], ",")
		}
		p.Filters = append(p.Filters, f)
	}
	var err error
	if p.Page, err = intParam(q.Get("page")); err != nil {
		return p, fmt.Errorf("page: %w", err)
	}
	if p.ItemsPerPage, err = intParam(q.Get("per_page")); err != nil {
		return p, fmt.Errorf("per_page: %w", err)
	}
	if p.ItemsPerPage > 100 {
		p.ItemsPerPage = 100
	}
	p.Mode = q.Get("mode")
	return p, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

// errorToHTTP maps screen and store errors to appropriate HTTP responses.
func errorToHTTP(w http.ResponseWriter, err error) {
	var fe *form.Error
	if errors.As(err, &fe) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  fe.Message,
			"code":   "VALIDATION_ERROR",
			"errors": fe.Errors,
		})
		return
	}
	var upe *screen.UnknownPathError
	if errors.As(err, &upe) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":      err.Error(),
			"code":       "UNKNOWN_PATH",
			"suggestion": upe.Suggestion,
		})
		return
	}
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrUnknownModel):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrUnknownPath), errors.Is(err, store.ErrUnsupportedOperator), errors.Is(err, store.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error())
	case meta.IsMetadataError(err):
		log.Printf("metadata error: %v", err)
		writeError(w, http.StatusInternalServerError, "METADATA_ERROR", err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
