package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"

	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/meta/entschema"
)

// Author holds the schema definition for the Author entity.
type Author struct {
	ent.Schema
}

// Mixin of the Author.
func (Author) Mixin() []ent.Mixin {
	return []ent.Mixin{AuditMixin{}}
}

// Fields of the Author.
func (Author) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			Annotations(entschema.Props(meta.Hidden())),
		field.String("name").
			NotEmpty().
			Annotations(entschema.Props(meta.Label("Name"), meta.Sortable(true), meta.Filterable(true), meta.Order(1))),
		field.String("email").
			Sensitive().
			Annotations(entschema.Props(meta.Label("Email"))),
		field.Text("bio").
			Optional().
			Annotations(entschema.Props(meta.Label("Biography"), meta.Hidden())),
	}
}

// Edges of the Author.
func (Author) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("posts", Post.Type).
			Annotations(entschema.Props(meta.Label("Posts"), meta.Hidden())),
	}
}
