// Package cueschema reads model metadata from CUE definitions.
//
// Every top-level definition is a model; its fields, in declaration order,
// are the properties. Field attributes refine the description:
//
//	@immutable()                  read-only property
//	@text()                       long-form string
//	@assoc(Target) / @assoc(Target, many)
//	                              association to another definition
//	@screen(label="Title", sortable, filterable, hidden, order=2)
//	                              display overrides
//	@screen(skip)                 on a definition's first field, ignore the model
//
// Fields referencing another definition (#Author, [...#Tag]) become
// associations without needing @assoc.
package cueschema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/matthewbaird/screens/internal/meta"
)

// Model is a CUE definition adapted to meta.Model and meta.OverrideSource.
type Model struct {
	name      string
	attrs     []meta.Attribute
	assocs    []meta.Association
	overrides meta.Overrides
}

// Name implements meta.Model.
func (m *Model) Name() string { return m.name }

// Attributes implements meta.Model.
func (m *Model) Attributes() ([]meta.Attribute, error) {
	out := make([]meta.Attribute, len(m.attrs))
	copy(out, m.attrs)
	return out, nil
}

// Associations implements meta.Model.
func (m *Model) Associations() ([]meta.Association, error) {
	out := make([]meta.Association, len(m.assocs))
	copy(out, m.assocs)
	return out, nil
}

// PropertyOptions implements meta.OverrideSource.
func (m *Model) PropertyOptions(path string) meta.PropertyOptions {
	return m.overrides.PropertyOptions(path)
}

// CompileString compiles CUE source and parses its definitions.
func CompileString(src, filename string) ([]*Model, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if v.Err() != nil {
		return nil, &meta.MetadataError{Model: filename, Err: v.Err()}
	}
	return Parse(v)
}

// LoadDir loads the CUE package in dir and parses its definitions.
func LoadDir(dir string) ([]*Model, error) {
	insts := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(insts) == 0 {
		return nil, &meta.MetadataError{Model: dir, Err: errors.New("no CUE instances found")}
	}
	if insts[0].Err != nil {
		return nil, &meta.MetadataError{Model: dir, Err: fmt.Errorf("loading CUE: %w", insts[0].Err)}
	}
	v := cuecontext.New().BuildInstance(insts[0])
	if v.Err() != nil {
		return nil, &meta.MetadataError{Model: dir, Err: fmt.Errorf("building CUE value: %w", v.Err())}
	}
	return Parse(v)
}

// Register adds models to r.
func Register(r *meta.Registry, models ...*Model) error {
	for _, m := range models {
		if err := r.Register(m); err != nil {
			return err
		}
	}
	return nil
}

// Parse turns every top-level struct definition of v into a Model.
func Parse(v cue.Value) ([]*Model, error) {
	iter, err := v.Fields(cue.Definitions(true))
	if err != nil {
		return nil, &meta.MetadataError{Err: err}
	}
	var models []*Model
	for iter.Next() {
		if !iter.Selector().IsDefinition() {
			continue
		}
		def := iter.Value()
		if def.IncompleteKind() != cue.StructKind {
			continue
		}
		name := strings.TrimPrefix(iter.Selector().String(), "#")
		m, skip, err := parseModel(name, def)
		if err != nil {
			return nil, err
		}
		if !skip {
			models = append(models, m)
		}
	}
	return models, nil
}

func parseModel(name string, def cue.Value) (*Model, bool, error) {
	m := &Model{name: name, overrides: meta.NewOverrides()}
	iter, err := def.Fields(cue.Optional(true))
	if err != nil {
		return nil, false, &meta.MetadataError{Model: name, Err: err}
	}
	first := true
	for iter.Next() {
		label := strings.TrimSuffix(iter.Selector().String(), "?")
		if strings.HasPrefix(label, "_") {
			continue
		}
		val := iter.Value()

		opts, skip, err := screenOptions(val)
		if err != nil {
			return nil, false, &meta.MetadataError{Model: name, Path: label, Err: err}
		}
		if skip && first {
			return nil, true, nil
		}
		first = false
		if !opts.IsZero() {
			m.overrides[label] = opts
		}

		readOnly := hasAttr(val, "immutable")
		if assoc, ok := classifyAssoc(label, val); ok {
			assoc.ReadOnly = readOnly
			m.assocs = append(m.assocs, assoc)
			continue
		}
		typ, err := classifyAttr(val)
		if err != nil {
			return nil, false, &meta.MetadataError{Model: name, Path: label, Err: err}
		}
		m.attrs = append(m.attrs, meta.Attribute{
			Name:     label,
			Type:     typ,
			ReadOnly: readOnly,
			Optional: iter.IsOptional(),
			Default:  defaultValue(val),
		})
	}
	return m, false, nil
}

func defaultValue(v cue.Value) any {
	d, ok := v.Default()
	if !ok || !d.IsConcrete() {
		return nil
	}
	var out any
	if err := d.Decode(&out); err != nil {
		return nil
	}
	return out
}

func hasAttr(v cue.Value, name string) bool {
	a := v.Attribute(name)
	return a.Err() == nil
}

// screenOptions parses @screen(...).
func screenOptions(v cue.Value) (meta.PropertyOptions, bool, error) {
	var opts meta.PropertyOptions
	a := v.Attribute("screen")
	if a.Err() != nil {
		return opts, false, nil
	}
	skip := false
	for i := 0; i < a.NumArgs(); i++ {
		key, value := a.Arg(i)
		key = strings.TrimSpace(key)
		switch key {
		case "label":
			opts.Label = value
		case "order":
			n, err := strconv.Atoi(value)
			if err != nil {
				return opts, false, fmt.Errorf("@screen order %q: %w", value, err)
			}
			opts.Order = &n
		case "sortable", "filterable", "visible", "hidden":
			b := true
			if value != "" {
				var err error
				if b, err = strconv.ParseBool(value); err != nil {
					return opts, false, fmt.Errorf("@screen %s %q: %w", key, value, err)
				}
			}
			switch key {
			case "sortable":
				opts.Sortable = &b
			case "filterable":
				opts.Filterable = &b
			case "visible":
				opts.Visible = &b
			case "hidden":
				vis := !b
				opts.Visible = &vis
			}
		case "skip":
			skip = true
		default:
			return opts, false, fmt.Errorf("unknown @screen option %q", key)
		}
	}
	return opts, skip, nil
}

func classifyAssoc(label string, val cue.Value) (meta.Association, bool) {
	if a := val.Attribute("assoc"); a.Err() == nil && a.NumArgs() > 0 {
		target, _ := a.Arg(0)
		card := meta.CardinalityOne
		for i := 1; i < a.NumArgs(); i++ {
			if k, _ := a.Arg(i); strings.TrimSpace(k) == "many" {
				card = meta.CardinalityMany
			}
		}
		return meta.Association{Name: label, Target: strings.TrimPrefix(strings.TrimSpace(target), "#"), Cardinality: card}, true
	}
	if isList(val) {
		if elem, ok := listElement(val); ok {
			if ref := findReference(elem); strings.HasPrefix(ref, "#") {
				return meta.Association{Name: label, Target: strings.TrimPrefix(ref, "#"), Cardinality: meta.CardinalityMany}, true
			}
		}
		return meta.Association{}, false
	}
	if ref := findReference(val); strings.HasPrefix(ref, "#") && val.IncompleteKind() == cue.StructKind {
		return meta.Association{Name: label, Target: strings.TrimPrefix(ref, "#"), Cardinality: meta.CardinalityOne}, true
	}
	return meta.Association{}, false
}

func classifyAttr(val cue.Value) (meta.AttributeType, error) {
	if isTimeField(val) {
		return meta.AttributeType{Kind: meta.KindTime}, nil
	}
	if isEnum(val) {
		values := extractEnumValues(val)
		if len(values) == 0 {
			return meta.AttributeType{}, meta.ErrEmptyEnum
		}
		return meta.AttributeType{Kind: meta.KindEnum, EnumValues: values}, nil
	}
	k := val.IncompleteKind()
	if k == cue.BottomKind {
		k = inferKindFromExpr(val)
	}
	switch {
	case k == cue.StringKind:
		if hasAttr(val, "text") {
			return meta.AttributeType{Kind: meta.KindText}, nil
		}
		return meta.AttributeType{Kind: meta.KindString}, nil
	case k == cue.IntKind:
		return meta.AttributeType{Kind: meta.KindInt}, nil
	case k == cue.FloatKind, k == cue.NumberKind:
		return meta.AttributeType{Kind: meta.KindFloat}, nil
	case k == cue.BoolKind:
		return meta.AttributeType{Kind: meta.KindBool}, nil
	case k == cue.StructKind, k == cue.ListKind:
		return meta.AttributeType{Kind: meta.KindJSON}, nil
	case k == cue.BottomKind:
		return meta.AttributeType{}, errors.New("cannot determine field type")
	default:
		return meta.AttributeType{Kind: meta.KindOther}, nil
	}
}
