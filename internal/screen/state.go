package screen

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AlertLevel classifies an alert for display.
type AlertLevel string

const (
	AlertInfo    AlertLevel = "info"
	AlertSuccess AlertLevel = "success"
	AlertWarning AlertLevel = "warning"
	AlertError   AlertLevel = "error"
)

// Alert is a message shown on a screen.
type Alert struct {
	ID      string     `json:"id"`
	Level   AlertLevel `json:"level,omitempty"`
	Message string     `json:"message"`
	Data    any        `json:"data,omitempty"`
}

// State is the live state of one screen. Specialised states (list, form,
// delete) embed it. All methods are safe for concurrent use.
type State[T any] struct {
	ID                string
	Model             string
	Plural            string
	Singular          string
	Actions           []*ActionState
	ContextualActions []*ContextualActionState[T]

	all    []PropertyDescription // shared with the describer, never mutated
	logger Logger

	mu      sync.RWMutex
	visible []string
	alerts  []Alert

	properties *Feed[[]PropertyDescription]
	alertFeed  *Feed[[]Alert]
	errors     *Feed[ErrorEvent]
}

func newState[T any](d *Describer[T], desc ScreenDescription, props []PropertyDescription) *State[T] {
	s := &State[T]{
		ID:         uuid.NewString(),
		Model:      d.model.Name(),
		Plural:     desc.Plural,
		Singular:   desc.Singular,
		all:        props,
		logger:     d.cfg.logger,
		visible:    slices.Clone(desc.Visible),
		properties: NewReplayFeed[[]PropertyDescription](),
		alertFeed:  NewFeed[[]Alert](),
		errors:     NewFeed[ErrorEvent](),
	}
	s.Actions = BindActions(d.cfg.actions, s.report)
	s.ContextualActions = BindContextualActions(d.contextual, s.report)
	for _, h := range d.cfg.errorHandlers {
		s.errors.Subscribe(h)
	}
	s.properties.Publish(project(s.all, s.visible))
	return s
}

// AllProperties returns every described property in discovery order.
func (s *State[T]) AllProperties() []PropertyDescription {
	return slices.Clone(s.all)
}

// Property returns the description of path.
func (s *State[T]) Property(path string) (PropertyDescription, error) {
	for _, p := range s.all {
		if p.Path == path {
			return p, nil
		}
	}
	return PropertyDescription{}, &UnknownPathError{Model: s.Model, Path: path, Suggestion: Suggest(path, Paths(s.all))}
}

// Visible returns the paths currently displayed.
func (s *State[T]) Visible() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.visible)
}

// Properties returns the displayed properties ordered by Order, then by
// discovery position.
func (s *State[T]) Properties() []PropertyDescription {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return project(s.all, s.visible)
}

// SetVisible replaces the displayed paths. Unknown and repeated paths are
// dropped. Property observers are notified when the set changes.
func (s *State[T]) SetVisible(paths []string) {
	known := make(map[string]bool, len(s.all))
	for _, p := range s.all {
		known[p.Path] = true
	}
	next := make([]string, 0, len(paths))
	for _, p := range paths {
		if !known[p] {
			s.logger.Printf("screen: %s: ignoring unknown visible path %q", s.Model, p)
			continue
		}
		if slices.Contains(next, p) {
			continue
		}
		next = append(next, p)
	}

	s.mu.Lock()
	if slices.Equal(s.visible, next) {
		s.mu.Unlock()
		return
	}
	s.visible = next
	props := project(s.all, next)
	s.mu.Unlock()

	s.properties.Publish(props)
}

// SubscribeProperties calls fn with the displayed properties now and every
// time they change.
func (s *State[T]) SubscribeProperties(fn func([]PropertyDescription)) (cancel func()) {
	return s.properties.Subscribe(fn)
}

// Alerts returns the current alerts.
func (s *State[T]) Alerts() []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.alerts)
}

// PushAlert adds an alert and returns it with its ID filled in. In unique
// mode an existing alert with the same ID is replaced instead.
func (s *State[T]) PushAlert(a Alert, unique bool) Alert {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	s.mu.Lock()
	replaced := false
	if unique {
		for i := range s.alerts {
			if s.alerts[i].ID == a.ID {
				s.alerts[i] = a
				replaced = true
				break
			}
		}
	}
	if !replaced {
		s.alerts = append(s.alerts, a)
	}
	alerts := slices.Clone(s.alerts)
	s.mu.Unlock()

	s.alertFeed.Publish(alerts)
	return a
}

// DismissAlert removes every alert with the given ID.
func (s *State[T]) DismissAlert(id string) bool {
	s.mu.Lock()
	n := len(s.alerts)
	s.alerts = slices.DeleteFunc(s.alerts, func(a Alert) bool { return a.ID == id })
	removed := len(s.alerts) != n
	alerts := slices.Clone(s.alerts)
	s.mu.Unlock()

	if removed {
		s.alertFeed.Publish(alerts)
	}
	return removed
}

// SubscribeAlerts calls fn whenever the alert list changes.
func (s *State[T]) SubscribeAlerts(fn func([]Alert)) (cancel func()) {
	return s.alertFeed.Subscribe(fn)
}

// SubscribeErrors calls fn for every failure reported by the state.
func (s *State[T]) SubscribeErrors(fn func(ErrorEvent)) (cancel func()) {
	return s.errors.Subscribe(fn)
}

// Report logs err, publishes it on the error feed and returns it
// unchanged. A nil err is a no-op.
func (s *State[T]) Report(op string, err error) error {
	if err == nil {
		return nil
	}
	s.report(op, err)
	return err
}

// Logger returns the state's logger.
func (s *State[T]) Logger() Logger { return s.logger }

func (s *State[T]) report(op string, err error) {
	s.logger.Printf("screen: %s %s failed: %v", s.Model, op, err)
	s.errors.Publish(ErrorEvent{
		StateID:    s.ID,
		Model:      s.Model,
		Op:         op,
		Err:        err,
		OccurredAt: time.Now().UTC(),
	})
}
