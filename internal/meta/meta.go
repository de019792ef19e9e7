// Package meta defines the model metadata consumed by screen describers.
//
// A Model reports its attributes and associations in discovery order. How the
// metadata is obtained (ent schemas, CUE definitions, a hand-written Schema)
// is up to the provider; describers treat it as static for their lifetime.
package meta

import "fmt"

// Kind classifies the storage type of an attribute.
type Kind int

const (
	KindString Kind = iota
	KindText
	KindInt
	KindFloat
	KindBool
	KindTime
	KindEnum
	KindUUID
	KindJSON
	KindOther
)

// String returns the type name exposed on property descriptions.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindEnum:
		return "enum"
	case KindUUID:
		return "uuid"
	case KindJSON:
		return "json"
	default:
		return "other"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Comparable returns true if values of the kind have a natural ordering.
func (k Kind) Comparable() bool {
	switch k {
	case KindInt, KindFloat, KindTime, KindString, KindText:
		return true
	default:
		return false
	}
}

// AttributeType is the type tag of an attribute.
type AttributeType struct {
	Kind       Kind
	EnumValues []string // non-nil for KindEnum
}

// String returns the kind name.
func (t AttributeType) String() string { return t.Kind.String() }

// Attribute describes a scalar property of a model.
type Attribute struct {
	Name     string
	Type     AttributeType
	ReadOnly bool
	Optional bool

	// Default is the value a store fills in when the attribute is absent.
	// A func() T is called for every new record.
	Default any
}

// HasDefault reports whether the attribute declares a default value.
func (a Attribute) HasDefault() bool { return a.Default != nil }

// Cardinality is the number of related instances an association holds.
type Cardinality int

const (
	CardinalityOne Cardinality = iota
	CardinalityMany
)

// String returns "one" or "many".
func (c Cardinality) String() string {
	if c == CardinalityMany {
		return "many"
	}
	return "one"
}

// MarshalText implements encoding.TextMarshaler.
func (c Cardinality) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Cardinality) UnmarshalText(b []byte) error {
	switch string(b) {
	case "one":
		*c = CardinalityOne
	case "many":
		*c = CardinalityMany
	default:
		return fmt.Errorf("meta: unknown cardinality %q", b)
	}
	return nil
}

// Association describes a relationship from a model to another model.
type Association struct {
	Name        string
	Target      string      // target model name
	Cardinality Cardinality // one or many
	ReadOnly    bool
}

// Model supplies the metadata of one model.
type Model interface {
	// Name returns the declared model name, e.g. "BlogPost".
	Name() string
	// Attributes returns the attributes in discovery order.
	Attributes() ([]Attribute, error)
	// Associations returns the associations in discovery order.
	Associations() ([]Association, error)
}

// OverrideSource supplies per-property display overrides keyed by path.
type OverrideSource interface {
	PropertyOptions(path string) PropertyOptions
}
