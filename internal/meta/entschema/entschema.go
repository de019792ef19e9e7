// Package entschema reads model metadata straight from ent schema
// definitions, without running ent code generation.
//
// Fields (mixin fields first) become attributes and edges become
// associations. Screen overrides are attached with the Props annotation:
//
//	field.String("title").
//		Annotations(entschema.Props(meta.Label("Title"), meta.Sortable(true)))
package entschema

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sync"

	"entgo.io/ent"
	"entgo.io/ent/schema"
	"entgo.io/ent/schema/field"

	"github.com/matthewbaird/screens/internal/meta"
)

// Annotation carries screen overrides on an ent field or edge.
type Annotation struct {
	Options meta.PropertyOptions
}

// Props builds an Annotation from property options.
func Props(opts ...meta.Option) Annotation {
	return Annotation{Options: meta.Apply(opts...)}
}

// Name implements schema.Annotation.
func (Annotation) Name() string { return "Screen" }

// Merge implements schema.Merger.
func (a Annotation) Merge(other schema.Annotation) schema.Annotation {
	var o Annotation
	switch v := other.(type) {
	case Annotation:
		o = v
	case *Annotation:
		if v == nil {
			return a
		}
		o = *v
	default:
		return a
	}
	a.Options = a.Options.Merge(o.Options)
	return a
}

var (
	_ schema.Annotation = Annotation{}
	_ schema.Merger     = Annotation{}
)

// Model adapts an ent schema to meta.Model and meta.OverrideSource.
type Model struct {
	name   string
	schema ent.Interface

	once      sync.Once
	attrs     []meta.Attribute
	assocs    []meta.Association
	overrides meta.Overrides
	err       error
}

// New adapts s, naming the model after its Go type.
func New(s ent.Interface) *Model {
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := ""
	if t != nil {
		name = t.Name()
	}
	return Named(name, s)
}

// Named adapts s under an explicit model name.
func Named(name string, s ent.Interface) *Model {
	return &Model{name: name, schema: s}
}

// Register adapts every schema and adds it to r.
func Register(r *meta.Registry, schemas ...ent.Interface) error {
	for _, s := range schemas {
		if err := r.Register(New(s)); err != nil {
			return err
		}
	}
	return nil
}

// Name implements meta.Model.
func (m *Model) Name() string { return m.name }

// Attributes implements meta.Model.
func (m *Model) Attributes() ([]meta.Attribute, error) {
	m.once.Do(m.load)
	if m.err != nil {
		return nil, m.err
	}
	out := make([]meta.Attribute, len(m.attrs))
	copy(out, m.attrs)
	return out, nil
}

// Associations implements meta.Model.
func (m *Model) Associations() ([]meta.Association, error) {
	m.once.Do(m.load)
	if m.err != nil {
		return nil, m.err
	}
	out := make([]meta.Association, len(m.assocs))
	copy(out, m.assocs)
	return out, nil
}

// PropertyOptions implements meta.OverrideSource.
func (m *Model) PropertyOptions(path string) meta.PropertyOptions {
	m.once.Do(m.load)
	return m.overrides.PropertyOptions(path)
}

func (m *Model) load() {
	m.overrides = meta.NewOverrides()
	if m.schema == nil {
		m.err = &meta.MetadataError{Model: m.name, Err: errors.New("nil ent schema")}
		return
	}

	var fields []ent.Field
	for _, mx := range m.schema.Mixin() {
		fields = append(fields, mx.Fields()...)
	}
	fields = append(fields, m.schema.Fields()...)

	hasID := false
	for _, f := range fields {
		d := f.Descriptor()
		if d.Name == "id" {
			hasID = true
			break
		}
	}
	if !hasID {
		m.attrs = append(m.attrs, meta.Attribute{Name: "id", Type: meta.AttributeType{Kind: meta.KindInt}, ReadOnly: true})
	}

	for _, f := range fields {
		d := f.Descriptor()
		attr, err := attribute(d)
		if err != nil {
			m.err = &meta.MetadataError{Model: m.name, Path: d.Name, Err: err}
			return
		}
		m.attrs = append(m.attrs, attr)
		if d.Sensitive {
			m.overrides.Define(d.Name, meta.Hidden())
		}
		m.annotate(d.Name, d.Annotations)
	}

	// Both edge directions become associations.
	var edges []ent.Edge
	for _, mx := range m.schema.Mixin() {
		edges = append(edges, mx.Edges()...)
	}
	edges = append(edges, m.schema.Edges()...)
	for _, e := range edges {
		d := e.Descriptor()
		if d.Type == "" {
			m.err = meta.Errorf(m.name, d.Name, "edge has no target type")
			return
		}
		card := meta.CardinalityMany
		if d.Unique {
			card = meta.CardinalityOne
		}
		m.assocs = append(m.assocs, meta.Association{
			Name:        d.Name,
			Target:      d.Type,
			Cardinality: card,
			ReadOnly:    d.Immutable,
		})
		m.annotate(d.Name, d.Annotations)
	}
}

func (m *Model) annotate(path string, annotations []schema.Annotation) {
	for _, a := range annotations {
		switch v := a.(type) {
		case Annotation:
			m.overrides[path] = m.overrides[path].Merge(v.Options)
		case *Annotation:
			if v != nil {
				m.overrides[path] = m.overrides[path].Merge(v.Options)
			}
		}
	}
}

func attribute(d *field.Descriptor) (meta.Attribute, error) {
	if d.Err != nil {
		return meta.Attribute{}, d.Err
	}
	if d.Info == nil {
		return meta.Attribute{}, fmt.Errorf("field has no type information")
	}
	attr := meta.Attribute{
		Name:     d.Name,
		ReadOnly: d.Immutable,
		Optional: d.Optional || d.Nillable,
		Type:     meta.AttributeType{Kind: kindOf(d)},
		Default:  d.Default,
	}
	if attr.Type.Kind == meta.KindEnum {
		for _, e := range d.Enums {
			attr.Type.EnumValues = append(attr.Type.EnumValues, e.V)
		}
	}
	return attr, nil
}

func kindOf(d *field.Descriptor) meta.Kind {
	t := d.Info.Type
	switch {
	case t == field.TypeString && d.Size == math.MaxInt32:
		return meta.KindText
	case t == field.TypeString:
		return meta.KindString
	case t == field.TypeBool:
		return meta.KindBool
	case t == field.TypeTime:
		return meta.KindTime
	case t == field.TypeEnum:
		return meta.KindEnum
	case t == field.TypeUUID:
		return meta.KindUUID
	case t == field.TypeJSON:
		return meta.KindJSON
	case t.Float():
		return meta.KindFloat
	case t.Numeric():
		return meta.KindInt
	default:
		return meta.KindOther
	}
}
