package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"

	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/meta/entschema"
)

// Post holds the schema definition for the Post entity.
type Post struct {
	ent.Schema
}

// Mixin of the Post.
func (Post) Mixin() []ent.Mixin {
	return []ent.Mixin{AuditMixin{}}
}

// Fields of the Post.
func (Post) Fields() []ent.Field {
	return []ent.Field{
		field.UUID("id", uuid.UUID{}).
			Default(uuid.New).
			Immutable().
			Annotations(entschema.Props(meta.Hidden())),
		field.String("title").
			NotEmpty().
			MaxLen(200).
			Annotations(entschema.Props(meta.Label("Title"), meta.Sortable(true), meta.Filterable(true), meta.Order(1))),
		field.Text("body").
			Optional().
			Annotations(entschema.Props(meta.Label("Body"), meta.Hidden())),
		field.Enum("status").
			Values("draft", "review", "published", "archived").
			Default("draft").
			Annotations(entschema.Props(meta.Label("Status"), meta.Sortable(true), meta.Filterable(true), meta.Order(2))),
		field.Int("views").
			Default(0).
			NonNegative().
			Annotations(entschema.Props(meta.Label("Views"), meta.Sortable(true), meta.Order(3))),
		field.Float("rating").
			Optional().
			Annotations(entschema.Props(meta.Label("Rating"), meta.Sortable(true), meta.Hidden())),
		field.Bool("featured").
			Default(false).
			Annotations(entschema.Props(meta.Label("Featured"), meta.Filterable(true), meta.Order(4))),
		field.Time("published_at").
			Optional().
			Nillable().
			Annotations(entschema.Props(meta.Label("Published"), meta.Sortable(true), meta.Order(5))),
		field.UUID("author_id", uuid.UUID{}).
			Optional().
			Annotations(entschema.Props(meta.Hidden())),
	}
}

// Edges of the Post.
func (Post) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("author", Author.Type).
			Ref("posts").
			Field("author_id").
			Unique().
			Annotations(entschema.Props(meta.Label("Author"), meta.Filterable(true), meta.Order(6))),
	}
}

// Models returns the screen models of every schema in this package.
func Models() []meta.Model {
	return []meta.Model{entschema.New(Post{}), entschema.New(Author{})}
}
