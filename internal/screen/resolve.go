package screen

import (
	"sort"

	"github.com/matthewbaird/screens/internal/meta"
)

// ResolveAttribute merges an attribute with its overrides. Unset options
// take their defaults: label is the path, visible is true, sortable and
// filterable are false and order is 0. Enum attributes without explicit
// values offer their variants.
func ResolveAttribute(attr meta.Attribute, opts meta.PropertyOptions) PropertyDescription {
	p := PropertyDescription{
		Path:       attr.Name,
		ReadOnly:   attr.ReadOnly,
		Optional:   attr.Optional,
		Kind:       KindAttribute,
		Type:       attr.Type.String(),
		EnumValues: attr.Type.EnumValues,
	}
	applyOptions(&p, opts)
	if p.Values == nil && attr.Type.Kind == meta.KindEnum {
		p.Values = meta.EnumValues(attr.Type.EnumValues)
	}
	return p
}

// ResolveAssociation merges an association with its overrides.
func ResolveAssociation(assoc meta.Association, opts meta.PropertyOptions) PropertyDescription {
	p := PropertyDescription{
		Path:        assoc.Name,
		ReadOnly:    assoc.ReadOnly,
		Kind:        KindAssociation,
		Type:        assoc.Target,
		Cardinality: assoc.Cardinality,
	}
	applyOptions(&p, opts)
	return p
}

func applyOptions(p *PropertyDescription, opts meta.PropertyOptions) {
	p.Label = p.Path
	if opts.Label != "" {
		p.Label = opts.Label
	}
	p.Visible = true
	if opts.Visible != nil {
		p.Visible = *opts.Visible
	}
	if opts.Sortable != nil {
		p.Sortable = *opts.Sortable
	}
	if opts.Filterable != nil {
		p.Filterable = *opts.Filterable
	}
	if opts.Order != nil {
		p.Order = *opts.Order
	}
	p.Values = opts.Values
	p.Data = opts.Data
}

// Resolve describes every property of model, attributes first, each group
// in discovery order. Two properties sharing a path is a MetadataError.
func Resolve(model meta.Model, overrides meta.OverrideSource) ([]PropertyDescription, error) {
	name := model.Name()
	if name == "" {
		return nil, &meta.MetadataError{Err: meta.ErrUnnamedModel}
	}
	if overrides == nil {
		overrides = meta.Overrides(nil)
	}

	attrs, err := model.Attributes()
	if err != nil {
		return nil, meta.WrapError(name, err)
	}
	assocs, err := model.Associations()
	if err != nil {
		return nil, meta.WrapError(name, err)
	}

	seen := make(map[string]bool, len(attrs)+len(assocs))
	props := make([]PropertyDescription, 0, len(attrs)+len(assocs))
	add := func(p PropertyDescription) error {
		if p.Path == "" {
			return meta.Errorf(name, "", "property %d has no name", len(props))
		}
		if seen[p.Path] {
			return &meta.MetadataError{Model: name, Path: p.Path, Err: meta.ErrDuplicatePath}
		}
		seen[p.Path] = true
		p.index = len(props)
		props = append(props, p)
		return nil
	}

	for _, a := range attrs {
		if err := add(ResolveAttribute(a, overrides.PropertyOptions(a.Name))); err != nil {
			return nil, err
		}
	}
	for _, a := range assocs {
		if err := add(ResolveAssociation(a, overrides.PropertyOptions(a.Name))); err != nil {
			return nil, err
		}
	}
	return props, nil
}

// DefaultVisible returns the paths of props whose Visible flag is set, in
// display order.
func DefaultVisible(props []PropertyDescription) []string {
	var vis []PropertyDescription
	for _, p := range props {
		if p.Visible {
			vis = append(vis, p)
		}
	}
	sortDisplay(vis)
	return Paths(vis)
}

// sortDisplay orders props by Order, then by discovery position.
func sortDisplay(props []PropertyDescription) {
	sort.SliceStable(props, func(i, j int) bool {
		if props[i].Order != props[j].Order {
			return props[i].Order < props[j].Order
		}
		return props[i].index < props[j].index
	})
}

// project returns the properties named by visible, in display order.
func project(all []PropertyDescription, visible []string) []PropertyDescription {
	want := make(map[string]bool, len(visible))
	for _, v := range visible {
		want[v] = true
	}
	out := make([]PropertyDescription, 0, len(visible))
	for _, p := range all {
		if want[p.Path] {
			out = append(out, p)
		}
	}
	sortDisplay(out)
	return out
}
