package meta

import "context"

// PropertyValue is one choice offered for a property, e.g. an enum variant.
type PropertyValue struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// ValueSource supplies the choices of a property.
type ValueSource interface {
	Values(ctx context.Context) ([]PropertyValue, error)
}

// StaticValues is a fixed list of choices.
type StaticValues []PropertyValue

// Values returns a copy of the list.
func (s StaticValues) Values(context.Context) ([]PropertyValue, error) {
	out := make([]PropertyValue, len(s))
	copy(out, s)
	return out, nil
}

// ValuesFunc adapts a function to a ValueSource.
type ValuesFunc func(ctx context.Context) ([]PropertyValue, error)

// Values calls f.
func (f ValuesFunc) Values(ctx context.Context) ([]PropertyValue, error) { return f(ctx) }

// EnumValues builds a StaticValues list whose labels equal the values.
func EnumValues(values []string) StaticValues {
	out := make(StaticValues, len(values))
	for i, v := range values {
		out[i] = PropertyValue{Label: v, Value: v}
	}
	return out
}

// PropertyOptions holds display overrides for one property. Nil pointers
// and empty fields mean "not set" so that partial overrides merge.
type PropertyOptions struct {
	Label      string
	Sortable   *bool
	Filterable *bool
	Visible    *bool
	Order      *int
	Values     ValueSource
	Data       any
}

// IsZero reports whether no option is set.
func (o PropertyOptions) IsZero() bool {
	return o.Label == "" && o.Sortable == nil && o.Filterable == nil &&
		o.Visible == nil && o.Order == nil && o.Values == nil && o.Data == nil
}

// Merge returns o with every option set in other applied on top.
func (o PropertyOptions) Merge(other PropertyOptions) PropertyOptions {
	if other.Label != "" {
		o.Label = other.Label
	}
	if other.Sortable != nil {
		o.Sortable = other.Sortable
	}
	if other.Filterable != nil {
		o.Filterable = other.Filterable
	}
	if other.Visible != nil {
		o.Visible = other.Visible
	}
	if other.Order != nil {
		o.Order = other.Order
	}
	if other.Values != nil {
		o.Values = other.Values
	}
	if other.Data != nil {
		o.Data = other.Data
	}
	return o
}

// Option sets one property option.
type Option func(*PropertyOptions)

// Apply builds PropertyOptions from opts.
func Apply(opts ...Option) PropertyOptions {
	var o PropertyOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Label sets the display label.
func Label(label string) Option {
	return func(o *PropertyOptions) { o.Label = label }
}

// Sortable marks the property as sortable or not.
func Sortable(v bool) Option {
	return func(o *PropertyOptions) { o.Sortable = &v }
}

// Filterable marks the property as filterable or not.
func Filterable(v bool) Option {
	return func(o *PropertyOptions) { o.Filterable = &v }
}

// Visible sets default visibility.
func Visible(v bool) Option {
	return func(o *PropertyOptions) { o.Visible = &v }
}

// Hidden is shorthand for Visible(false).
func Hidden() Option { return Visible(false) }

// Order sets the display order key.
func Order(n int) Option {
	return func(o *PropertyOptions) { o.Order = &n }
}

// Values sets a static list of choices.
func Values(values ...PropertyValue) Option {
	return func(o *PropertyOptions) { o.Values = StaticValues(values) }
}

// ValuesFrom sets a dynamic source of choices.
func ValuesFrom(src ValueSource) Option {
	return func(o *PropertyOptions) { o.Values = src }
}

// Data attaches opaque caller data to the property.
func Data(v any) Option {
	return func(o *PropertyOptions) { o.Data = v }
}

// Overrides maps property paths to options. The zero value is read-only;
// use NewOverrides or make before calling Define.
type Overrides map[string]PropertyOptions

// NewOverrides returns an empty override set.
func NewOverrides() Overrides { return Overrides{} }

// Define merges opts into the options of path. Repeated definitions of the
// same path accumulate, later options winning.
func (o Overrides) Define(path string, opts ...Option) Overrides {
	o[path] = o[path].Merge(Apply(opts...))
	return o
}

// PropertyOptions implements OverrideSource.
func (o Overrides) PropertyOptions(path string) PropertyOptions {
	return o[path]
}

// Layered combines override sources; later sources win per option.
type Layered []OverrideSource

// PropertyOptions implements OverrideSource.
func (l Layered) PropertyOptions(path string) PropertyOptions {
	var out PropertyOptions
	for _, src := range l {
		if src == nil {
			continue
		}
		out = out.Merge(src.PropertyOptions(path))
	}
	return out
}
