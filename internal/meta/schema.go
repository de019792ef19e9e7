package meta

// Schema is a hand-declared Model. It also carries its own overrides.
//
//	meta.NewSchema("Post").
//		Attr("id", meta.KindUUID, meta.Hidden()).
//		Attr("title", meta.KindString, meta.Sortable(true)).
//		Enum("status", []string{"draft", "published"}).
//		Assoc("author", "Author", meta.CardinalityOne)
type Schema struct {
	name      string
	attrs     []Attribute
	assocs    []Association
	overrides Overrides
}

// NewSchema returns an empty schema for the named model.
func NewSchema(name string) *Schema {
	return &Schema{name: name, overrides: NewOverrides()}
}

// Attr appends an attribute of the given kind.
func (s *Schema) Attr(name string, kind Kind, opts ...Option) *Schema {
	s.attrs = append(s.attrs, Attribute{Name: name, Type: AttributeType{Kind: kind}})
	s.define(name, opts)
	return s
}

// Enum appends an enum attribute with the given variants.
func (s *Schema) Enum(name string, values []string, opts ...Option) *Schema {
	vals := make([]string, len(values))
	copy(vals, values)
	s.attrs = append(s.attrs, Attribute{Name: name, Type: AttributeType{Kind: KindEnum, EnumValues: vals}})
	s.define(name, opts)
	return s
}

// Assoc appends an association to target.
func (s *Schema) Assoc(name, target string, card Cardinality, opts ...Option) *Schema {
	s.assocs = append(s.assocs, Association{Name: name, Target: target, Cardinality: card})
	s.define(name, opts)
	return s
}

// ReadOnly marks the named properties as read-only.
func (s *Schema) ReadOnly(names ...string) *Schema {
	for _, n := range names {
		for i := range s.attrs {
			if s.attrs[i].Name == n {
				s.attrs[i].ReadOnly = true
			}
		}
		for i := range s.assocs {
			if s.assocs[i].Name == n {
				s.assocs[i].ReadOnly = true
			}
		}
	}
	return s
}

// Optional marks the named attributes as optional.
func (s *Schema) Optional(names ...string) *Schema {
	for _, n := range names {
		for i := range s.attrs {
			if s.attrs[i].Name == n {
				s.attrs[i].Optional = true
			}
		}
	}
	return s
}

// Default sets the default value of the named attribute.
func (s *Schema) Default(name string, v any) *Schema {
	for i := range s.attrs {
		if s.attrs[i].Name == name {
			s.attrs[i].Default = v
		}
	}
	return s
}

func (s *Schema) define(path string, opts []Option) {
	if len(opts) > 0 {
		s.overrides.Define(path, opts...)
	}
}

// Name implements Model.
func (s *Schema) Name() string { return s.name }

// Attributes implements Model.
func (s *Schema) Attributes() ([]Attribute, error) {
	out := make([]Attribute, len(s.attrs))
	copy(out, s.attrs)
	return out, nil
}

// Associations implements Model.
func (s *Schema) Associations() ([]Association, error) {
	out := make([]Association, len(s.assocs))
	copy(out, s.assocs)
	return out, nil
}

// PropertyOptions implements OverrideSource.
func (s *Schema) PropertyOptions(path string) PropertyOptions {
	return s.overrides.PropertyOptions(path)
}
