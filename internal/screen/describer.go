// Package screen turns model metadata into screen descriptions and live
// screen state.
//
// A Describer resolves the properties of one model once and then hands out
// independent States. Each State carries its own visible list, alerts and
// bound actions, and notifies observers through Feeds. The list and form
// packages, as well as the Read and Delete describers here, build on it.
package screen

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"

	"github.com/matthewbaird/screens/internal/meta"
)

// ScreenDescription carries the naming and default display of a screen.
type ScreenDescription struct {
	Plural   string   `json:"plural"`
	Singular string   `json:"singular"`
	Visible  []string `json:"visible"`
}

type config struct {
	overrides     meta.Layered
	logger        Logger
	errorHandlers []func(ErrorEvent)
	actions       []ActionDescriptor
	contextual    []any
}

// Option configures a Describer.
type Option func(*config)

// WithOverrides layers property overrides on top of those supplied by the
// model itself. Later sources win.
func WithOverrides(src ...meta.OverrideSource) Option {
	return func(c *config) { c.overrides = append(c.overrides, src...) }
}

// WithLogger sets the logger. The default is log.Default().
func WithLogger(l Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithErrorHandler subscribes fn to the error feed of every state.
func WithErrorHandler(fn func(ErrorEvent)) Option {
	return func(c *config) { c.errorHandlers = append(c.errorHandlers, fn) }
}

// WithActions declares screen-wide actions.
func WithActions(actions ...ActionDescriptor) Option {
	return func(c *config) { c.actions = append(c.actions, actions...) }
}

// WithContextualActions declares instance actions. T must match the type
// parameter of the describer the option is passed to.
func WithContextualActions[T any](actions ...ContextualActionDescriptor[T]) Option {
	return func(c *config) {
		for _, a := range actions {
			c.contextual = append(c.contextual, a)
		}
	}
}

// Describer describes the screen of one model.
type Describer[T any] struct {
	model      meta.Model
	cfg        config
	contextual []ContextualActionDescriptor[T]

	once  sync.Once
	props []PropertyDescription
	desc  ScreenDescription
	err   error
}

// NewDescriber creates a describer for model. If model implements
// meta.OverrideSource its overrides apply beneath those given with
// WithOverrides.
func NewDescriber[T any](model meta.Model, opts ...Option) *Describer[T] {
	cfg := config{logger: defaultLogger()}
	if src, ok := model.(meta.OverrideSource); ok {
		cfg.overrides = append(cfg.overrides, src)
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	d := &Describer[T]{model: model, cfg: cfg}
	for i := range d.cfg.actions {
		if d.cfg.actions[i].ID == "" {
			d.cfg.actions[i].ID = uuid.NewString()
		}
	}
	for _, a := range cfg.contextual {
		ca, ok := a.(ContextualActionDescriptor[T])
		if !ok {
			panic(fmt.Sprintf("screen: contextual action of type %T given to describer of %T", a, *new(T)))
		}
		if ca.ID == "" {
			ca.ID = uuid.NewString()
		}
		d.contextual = append(d.contextual, ca)
	}
	return d
}

// Model returns the described model.
func (d *Describer[T]) Model() meta.Model { return d.model }

// Logger returns the configured logger.
func (d *Describer[T]) Logger() Logger { return d.cfg.logger }

func (d *Describer[T]) resolve() ([]PropertyDescription, ScreenDescription, error) {
	d.once.Do(func() {
		d.props, d.err = Resolve(d.model, d.cfg.overrides)
		if d.err != nil {
			d.cfg.logger.Printf("screen: describing %q: %v", d.model.Name(), d.err)
			return
		}
		name := inflect.CamelizeDownFirst(d.model.Name())
		d.desc = ScreenDescription{
			Plural:   inflect.Pluralize(name),
			Singular: inflect.Singularize(name),
			Visible:  DefaultVisible(d.props),
		}
	})
	return d.props, d.desc, d.err
}

// Screen returns the naming and default visible list of the screen.
func (d *Describer[T]) Screen() (ScreenDescription, error) {
	_, desc, err := d.resolve()
	desc.Visible = slices.Clone(desc.Visible)
	return desc, err
}

// Properties returns every property in discovery order.
func (d *Describer[T]) Properties() ([]PropertyDescription, error) {
	props, _, err := d.resolve()
	return slices.Clone(props), err
}

// Attributes returns the attribute descriptions keyed by path.
func (d *Describer[T]) Attributes() (map[string]PropertyDescription, error) {
	return d.byKind(KindAttribute)
}

// Associations returns the association descriptions keyed by path.
func (d *Describer[T]) Associations() (map[string]PropertyDescription, error) {
	return d.byKind(KindAssociation)
}

func (d *Describer[T]) byKind(k Kind) (map[string]PropertyDescription, error) {
	props, _, err := d.resolve()
	if err != nil {
		return nil, err
	}
	out := make(map[string]PropertyDescription)
	for _, p := range props {
		if p.Kind == k {
			out[p.Path] = p
		}
	}
	return out, nil
}

// Actions returns the declared screen actions.
func (d *Describer[T]) Actions() []ActionDescriptor {
	return slices.Clone(d.cfg.actions)
}

// ContextualActions returns the declared instance actions.
func (d *Describer[T]) ContextualActions() []ContextualActionDescriptor[T] {
	return slices.Clone(d.contextual)
}

// State creates a fresh state. Metadata errors are fatal and returned as
// *meta.MetadataError.
func (d *Describer[T]) State() (*State[T], error) {
	props, desc, err := d.resolve()
	if err != nil {
		return nil, err
	}
	return newState(d, desc, props), nil
}
