package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/screens/internal/form"
	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/screen"
)

// ScreenEvent carries the canonical shape of every screen event.
type ScreenEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	StateID    string          `json:"state_id,omitempty"`
	Model      string          `json:"model"`
	Summary    string          `json:"summary"`
	Category   string          `json:"category"` // "list", "form", "delete", "session"
	Weight     string          `json:"weight"`   // "error", "info"
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Event types.
const (
	TypeRefreshed         = "list_refreshed"
	TypeVisibilityChanged = "visibility_changed"
	TypeFailed            = "operation_failed"
	TypeSaved             = "record_saved"
	TypeDeleted           = "record_deleted"
	TypeSessionOpened     = "session_opened"
	TypeSessionClosed     = "session_closed"
)

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// ── List events ──────────────────────────────────────────────────────────────

// RefreshedPayload carries event-specific data for Refreshed.
type RefreshedPayload struct {
	Seq     uint64        `json:"seq"`
	Items   int           `json:"items"`
	Filters []list.Filter `json:"filters,omitempty"`
	Sorting []list.Sort   `json:"sorting,omitempty"`
	Paging  *list.Paging  `json:"paging,omitempty"`
	Mode    string        `json:"mode,omitempty"`
}

func NewRefreshed(stateID, model string, q list.Query, items int) ScreenEvent {
	return ScreenEvent{
		ID:         newID(),
		EventType:  TypeRefreshed,
		OccurredAt: time.Now(),
		StateID:    stateID,
		Model:      model,
		Summary:    fmt.Sprintf("List %s refreshed with %d items", short(stateID), items),
		Category:   "list",
		Weight:     "info",
		Payload: mustJSON(RefreshedPayload{
			Seq:     q.Seq,
			Items:   items,
			Filters: q.Filters,
			Sorting: q.Sorting,
			Paging:  q.Paging,
			Mode:    q.Mode,
		}),
	}
}

// VisibilityChangedPayload carries event-specific data for VisibilityChanged.
type VisibilityChangedPayload struct {
	Visible []string `json:"visible"`
}

func NewVisibilityChanged(stateID, model string, visible []string) ScreenEvent {
	return ScreenEvent{
		ID:         newID(),
		EventType:  TypeVisibilityChanged,
		OccurredAt: time.Now(),
		StateID:    stateID,
		Model:      model,
		Summary:    fmt.Sprintf("State %s shows %d properties", short(stateID), len(visible)),
		Category:   "list",
		Weight:     "info",
		Payload:    mustJSON(VisibilityChangedPayload{Visible: visible}),
	}
}

// ── Failures ─────────────────────────────────────────────────────────────────

// FailedPayload carries event-specific data for Failed.
type FailedPayload struct {
	Op     string              `json:"op"`
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func NewFailed(e screen.ErrorEvent) ScreenEvent {
	p := FailedPayload{Op: e.Op, Error: e.Err.Error()}
	var fe *form.Error
	if errors.As(e.Err, &fe) {
		p.Fields = fe.Errors
	}
	occurred := e.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return ScreenEvent{
		ID:         newID(),
		EventType:  TypeFailed,
		OccurredAt: occurred,
		StateID:    e.StateID,
		Model:      e.Model,
		Summary:    fmt.Sprintf("%s failed on %s: %v", e.Op, e.Model, e.Err),
		Category:   category(e.Op),
		Weight:     "error",
		Payload:    mustJSON(p),
	}
}

func category(op string) string {
	switch op {
	case "save", "cancel":
		return "form"
	case "delete":
		return "delete"
	default:
		return "list"
	}
}

// ── Record events ────────────────────────────────────────────────────────────

// RecordPayload identifies the record a save or delete touched.
type RecordPayload struct {
	RecordID string `json:"record_id"`
}

func NewSaved(model, recordID string) ScreenEvent {
	return ScreenEvent{
		ID:         newID(),
		EventType:  TypeSaved,
		OccurredAt: time.Now(),
		Model:      model,
		Summary:    fmt.Sprintf("%s %s saved", model, short(recordID)),
		Category:   "form",
		Weight:     "info",
		Payload:    mustJSON(RecordPayload{RecordID: recordID}),
	}
}

func NewDeleted(model, recordID string) ScreenEvent {
	return ScreenEvent{
		ID:         newID(),
		EventType:  TypeDeleted,
		OccurredAt: time.Now(),
		Model:      model,
		Summary:    fmt.Sprintf("%s %s deleted", model, short(recordID)),
		Category:   "delete",
		Weight:     "info",
		Payload:    mustJSON(RecordPayload{RecordID: recordID}),
	}
}

// ── Session events ───────────────────────────────────────────────────────────

// SessionPayload carries event-specific data for session events.
type SessionPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason,omitempty"`
}

func NewSessionOpened(sessionID, model string) ScreenEvent {
	return ScreenEvent{
		ID:         newID(),
		EventType:  TypeSessionOpened,
		OccurredAt: time.Now(),
		Model:      model,
		Summary:    fmt.Sprintf("Session %s opened on %s", short(sessionID), model),
		Category:   "session",
		Weight:     "info",
		Payload:    mustJSON(SessionPayload{SessionID: sessionID}),
	}
}

func NewSessionClosed(sessionID, model, reason string) ScreenEvent {
	return ScreenEvent{
		ID:         newID(),
		EventType:  TypeSessionClosed,
		OccurredAt: time.Now(),
		Model:      model,
		Summary:    fmt.Sprintf("Session %s closed (%s)", short(sessionID), reason),
		Category:   "session",
		Weight:     "info",
		Payload:    mustJSON(SessionPayload{SessionID: sessionID, Reason: reason}),
	}
}
