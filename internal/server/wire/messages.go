// Package wire defines the WebSocket protocol for live list screens.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/screen"
	"github.com/matthewbaird/screens/internal/store"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server WebSocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "refresh", "sort", "add_filter", "set_page", ..., "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// Client message types.
const (
	TypeRefresh         = "refresh"
	TypeSort            = "sort"
	TypeClearSorting    = "clear_sorting"
	TypeAddFilter       = "add_filter"
	TypeRemoveFilter    = "remove_filter"
	TypeClearFiltering  = "clear_filtering"
	TypeSetPage         = "set_page"
	TypeSetItemsPerPage = "set_items_per_page"
	TypeFirstPage       = "first_page"
	TypeLastPage        = "last_page"
	TypeNextPage        = "next_page"
	TypePreviousPage    = "previous_page"
	TypeSetMode         = "set_mode"
	TypeSetVisible      = "set_visible"
	TypePing            = "ping"
)

// SortData is the payload for "sort" messages.
type SortData struct {
	Path  string         `json:"path"`
	Order list.SortOrder `json:"order"`
}

// PageData is the payload for "set_page" messages.
type PageData struct {
	Page int `json:"page"`
}

// ItemsPerPageData is the payload for "set_items_per_page" messages.
type ItemsPerPageData struct {
	ItemsPerPage int `json:"items_per_page"`
}

// ModeData is the payload for "set_mode" messages.
type ModeData struct {
	ID string `json:"id"`
}

// VisibleData is the payload for "set_visible" messages.
type VisibleData struct {
	Paths []string `json:"paths"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client WebSocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "session", "properties", "data", "state", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// Server message types.
const (
	TypeSession    = "session"
	TypeProperties = "properties"
	TypeData       = "data"
	TypeState      = "state"
	TypeError      = "error"
	TypePong       = "pong"
)

// SessionData carries session information.
type SessionData struct {
	SessionID string                   `json:"session_id"`
	StateID   string                   `json:"state_id"`
	Model     string                   `json:"model"`
	Screen    screen.ScreenDescription `json:"screen"`
	Modes     []list.Mode              `json:"modes,omitempty"`
}

// PropertiesData carries the visible properties in display order.
type PropertiesData struct {
	Properties []screen.PropertyDescription `json:"properties"`
}

// DataData carries the rows of an applied refresh.
type DataData struct {
	Seq   uint64         `json:"seq"`
	Items []store.Record `json:"items"`
}

// StateData is sent after every command.
type StateData struct {
	Filters    []list.Filter `json:"filters"`
	Sorting    []list.Sort   `json:"sorting"`
	Paging     *list.Paging  `json:"paging,omitempty"`
	Mode       string        `json:"mode,omitempty"`
	Visible    []string      `json:"visible"`
	Refreshing bool          `json:"refreshing"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}
