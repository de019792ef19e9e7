package screen

import (
	"fmt"

	"github.com/matthewbaird/screens/internal/meta"
)

// PropertyValue and ValueSource are re-exported so view code only needs
// this package.
type (
	PropertyValue = meta.PropertyValue
	ValueSource   = meta.ValueSource
)

// Kind discriminates attributes from associations.
type Kind int

const (
	KindAttribute Kind = iota
	KindAssociation
)

func (k Kind) String() string {
	if k == KindAssociation {
		return "association"
	}
	return "attribute"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "attribute":
		*k = KindAttribute
	case "association":
		*k = KindAssociation
	default:
		return fmt.Errorf("screen: unknown property kind %q", b)
	}
	return nil
}

// PropertyDescription is the resolved, immutable description of one
// property of a model.
type PropertyDescription struct {
	Path       string      `json:"path"`
	Label      string      `json:"label"`
	Sortable   bool        `json:"sortable"`
	Filterable bool        `json:"filterable"`
	Visible    bool        `json:"visible"`
	ReadOnly   bool        `json:"read_only"`
	Order      int         `json:"order"`
	Values     ValueSource `json:"-"`
	Data       any         `json:"data,omitempty"`

	Kind        Kind             `json:"kind"`
	Type        string           `json:"type"`           // attribute kind or association target
	EnumValues  []string         `json:"enum,omitempty"` // attributes only
	Cardinality meta.Cardinality `json:"cardinality"`    // associations only
	Optional    bool             `json:"optional"`       // attributes only

	index int // discovery position, breaks Order ties
}

// Index returns the discovery position of the property within its model.
func (p PropertyDescription) Index() int { return p.index }

// IsAttribute reports whether the property is an attribute.
func (p PropertyDescription) IsAttribute() bool { return p.Kind == KindAttribute }

// IsAssociation reports whether the property is an association.
func (p PropertyDescription) IsAssociation() bool { return p.Kind == KindAssociation }

// Paths returns the paths of props in order.
func Paths(props []PropertyDescription) []string {
	out := make([]string, len(props))
	for i, p := range props {
		out[i] = p.Path
	}
	return out
}
