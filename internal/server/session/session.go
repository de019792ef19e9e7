// Package session manages live screen session lifecycle.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session holds per-connection screen state bookkeeping.
type Session struct {
	ID        string    `json:"id"`
	Model     string    `json:"model"`
	StateID   string    `json:"state_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	mu           sync.Mutex
	lastActiveAt time.Time
	commands     int
}

// NewSession creates a new session on model.
func NewSession(model string) *Session {
	now := time.Now()
	return &Session{
		ID:           uuid.New().String(),
		Model:        model,
		CreatedAt:    now,
		lastActiveAt: now,
	}
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActiveAt = time.Now()
	s.mu.Unlock()
}

// AddCommand counts a client command and touches the session.
func (s *Session) AddCommand() {
	s.mu.Lock()
	s.commands++
	s.lastActiveAt = time.Now()
	s.mu.Unlock()
}

// Info is a point-in-time view of a session.
type Info struct {
	ID           string    `json:"id"`
	Model        string    `json:"model"`
	StateID      string    `json:"state_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	Commands     int       `json:"commands"`
}

// Info returns a snapshot of s.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:           s.ID,
		Model:        s.Model,
		StateID:      s.StateID,
		CreatedAt:    s.CreatedAt,
		LastActiveAt: s.lastActiveAt,
		Commands:     s.commands,
	}
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return time.Since(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActiveAt) > timeout
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxAge      time.Duration
	idleTimeout time.Duration
}

// NewManager creates a session manager with the given timeouts.
func NewManager(maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
}

// Create creates a new session on model and returns it.
func (m *Manager) Create(model string) *Session {
	s := NewSession(model)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) stale(s *Session) bool {
	return s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout)
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if m.stale(s) {
		m.Remove(id)
		return nil
	}
	return s
}

// List returns the live sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		if !m.stale(s) {
			out = append(out, s.Info())
		}
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b Info) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}

// Remove deletes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Cleanup removes all expired and idle sessions and returns their IDs.
func (m *Manager) Cleanup() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for id, s := range m.sessions {
		if m.stale(s) {
			delete(m.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Cleanup()
		}
	}
}
