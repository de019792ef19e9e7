package entschema_test

import (
	"errors"
	"testing"
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/mixin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/meta/entschema"
	"github.com/matthewbaird/screens/internal/screen"
)

type stampMixin struct {
	mixin.Schema
}

func (stampMixin) Fields() []ent.Field {
	return []ent.Field{
		field.Time("created_at").Default(time.Now).Immutable(),
	}
}

type Book struct {
	ent.Schema
}

func (Book) Mixin() []ent.Mixin { return []ent.Mixin{stampMixin{}} }

func (Book) Fields() []ent.Field {
	return []ent.Field{
		field.String("title").
			Annotations(entschema.Props(meta.Label("Title"), meta.Sortable(true))),
		field.Text("summary").Optional(),
		field.Enum("format").Values("hardcover", "paperback"),
		field.Int("pages"),
		field.Float("price"),
		field.Bool("in_print"),
		field.String("isbn").Sensitive(),
		field.JSON("tags", []string{}),
	}
}

func (Book) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("publisher", Publisher.Type).Ref("books").Unique().
			Annotations(entschema.Props(meta.Label("Publisher")), entschema.Props(meta.Order(4))),
		edge.To("reviews", Review.Type),
	}
}

type Publisher struct{ ent.Schema }

func (Publisher) Edges() []ent.Edge {
	return []ent.Edge{edge.To("books", Book.Type)}
}

type Review struct{ ent.Schema }

type broken struct{ ent.Schema }

func (broken) Fields() []ent.Field {
	return []ent.Field{brokenField{}}
}

type brokenField struct{}

func (brokenField) Descriptor() *field.Descriptor {
	return &field.Descriptor{Name: "weird", Err: errors.New("bad default")}
}

func TestModel_Attributes(t *testing.T) {
	m := entschema.New(Book{})
	assert.Equal(t, "Book", m.Name())

	attrs, err := m.Attributes()
	require.NoError(t, err)

	names := make([]string, len(attrs))
	kinds := map[string]meta.Kind{}
	for i, a := range attrs {
		names[i] = a.Name
		kinds[a.Name] = a.Type.Kind
	}
	assert.Equal(t, []string{"id", "created_at", "title", "summary", "format", "pages", "price", "in_print", "isbn", "tags"}, names)
	assert.Equal(t, meta.KindInt, kinds["id"])
	assert.Equal(t, meta.KindTime, kinds["created_at"])
	assert.Equal(t, meta.KindString, kinds["title"])
	assert.Equal(t, meta.KindText, kinds["summary"])
	assert.Equal(t, meta.KindEnum, kinds["format"])
	assert.Equal(t, meta.KindInt, kinds["pages"])
	assert.Equal(t, meta.KindFloat, kinds["price"])
	assert.Equal(t, meta.KindBool, kinds["in_print"])
	assert.Equal(t, meta.KindJSON, kinds["tags"])

	assert.True(t, attrs[0].ReadOnly, "implicit id is read-only")
	assert.True(t, attrs[1].ReadOnly, "immutable fields are read-only")
	assert.True(t, attrs[1].HasDefault())
	assert.False(t, attrs[2].HasDefault())
	assert.True(t, attrs[3].Optional)
	assert.Equal(t, []string{"hardcover", "paperback"}, attrs[4].Type.EnumValues)
}

func TestModel_Associations(t *testing.T) {
	assocs, err := entschema.New(&Book{}).Associations()
	require.NoError(t, err)
	require.Len(t, assocs, 2)

	assert.Equal(t, meta.Association{Name: "publisher", Target: "Publisher", Cardinality: meta.CardinalityOne}, assocs[0])
	assert.Equal(t, meta.Association{Name: "reviews", Target: "Review", Cardinality: meta.CardinalityMany}, assocs[1])
}

func TestModel_Overrides(t *testing.T) {
	m := entschema.New(Book{})

	title := m.PropertyOptions("title")
	assert.Equal(t, "Title", title.Label)
	require.NotNil(t, title.Sortable)
	assert.True(t, *title.Sortable)

	isbn := m.PropertyOptions("isbn")
	require.NotNil(t, isbn.Visible)
	assert.False(t, *isbn.Visible, "sensitive fields are hidden")

	pub := m.PropertyOptions("publisher")
	assert.Equal(t, "Publisher", pub.Label)
	require.NotNil(t, pub.Order)
	assert.Equal(t, 4, *pub.Order)
}

func TestModel_Describe(t *testing.T) {
	d := screen.NewDescriber[map[string]any](entschema.New(Book{}), screen.WithLogger(screen.NopLogger))
	desc, err := d.Screen()
	require.NoError(t, err)
	assert.Equal(t, "books", desc.Plural)
	assert.NotContains(t, desc.Visible, "isbn")
	assert.Equal(t, "reviews", desc.Visible[len(desc.Visible)-2])
	assert.Equal(t, "publisher", desc.Visible[len(desc.Visible)-1])
}

func TestModel_DescriptorError(t *testing.T) {
	_, err := entschema.Named("Broken", broken{}).Attributes()
	var me *meta.MetadataError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "Broken", me.Model)
	assert.Equal(t, "weird", me.Path)

	_, err = entschema.Named("Nil", nil).Associations()
	assert.True(t, meta.IsMetadataError(err))
}

func TestRegister(t *testing.T) {
	r := meta.NewRegistry()
	require.NoError(t, entschema.Register(r, Book{}, Publisher{}))
	_, ok := r.Model("publisher")
	assert.True(t, ok)
	assert.Error(t, entschema.Register(r, Book{}))
}

func TestAnnotation_Merge(t *testing.T) {
	a := entschema.Props(meta.Label("A"), meta.Sortable(true))
	merged := a.Merge(entschema.Props(meta.Label("B"))).(entschema.Annotation)
	assert.Equal(t, "B", merged.Options.Label)
	require.NotNil(t, merged.Options.Sortable)
	assert.Equal(t, "Screen", merged.Name())
}
