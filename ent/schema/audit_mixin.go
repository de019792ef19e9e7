package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/mixin"

	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/meta/entschema"
)

// AuditMixin adds the timestamps and provenance fields every screen model
// carries. They are read-only on forms and hidden on lists by default,
// except for created_at which lists sort on.
type AuditMixin struct {
	mixin.Schema
}

// Fields of the AuditMixin.
func (AuditMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Time("created_at").
			Default(time.Now).
			Immutable().
			Annotations(entschema.Props(meta.Label("Created"), meta.Sortable(true), meta.Order(90))).
			Comment("When the record was created"),
		field.Time("updated_at").
			Default(time.Now).
			UpdateDefault(time.Now).
			Annotations(entschema.Props(meta.Label("Updated"), meta.Sortable(true), meta.Hidden())).
			Comment("When the record was last updated"),
		field.String("created_by").
			Optional().
			Immutable().
			Annotations(entschema.Props(meta.Hidden())).
			Comment("User who created the record"),
		field.Enum("source").
			Values("editor", "import", "system").
			Default("editor").
			Annotations(entschema.Props(meta.Filterable(true), meta.Hidden())).
			Comment("Origin of the record"),
	}
}
