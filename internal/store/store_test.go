package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/screens/internal/form"
	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/screen"
)

func testRegistry() *meta.Registry {
	post := meta.NewSchema("BlogPost").
		Attr("id", meta.KindUUID).
		Attr("title", meta.KindString, meta.Sortable(true)).
		Enum("status", []string{"draft", "published"}).
		Attr("views", meta.KindInt).
		Attr("rating", meta.KindFloat).
		Attr("featured", meta.KindBool).
		Attr("tags", meta.KindJSON).
		Attr("created", meta.KindTime).
		Assoc("author", "Author", meta.CardinalityOne).
		Assoc("comments", "Comment", meta.CardinalityMany).
		ReadOnly("id", "created").
		Optional("rating", "tags").
		Default("status", "draft").
		Default("views", 0).
		Default("featured", false).
		Default("created", time.Now)
	author := meta.NewSchema("Author").Attr("name", meta.KindString)

	r := meta.NewRegistry()
	r.MustRegister(post, author)
	return r
}

type storeFactory struct {
	name string
	open func(t *testing.T, r *meta.Registry) Store
}

var factories = []storeFactory{
	{"memory", func(_ *testing.T, r *meta.Registry) Store { return NewMemoryStore(r) }},
	{"sqlite", func(t *testing.T, r *meta.Registry) Store {
		db, err := sql.Open("sqlite", ":memory:")
		require.NoError(t, err)
		db.SetMaxOpenConns(1)
		t.Cleanup(func() { db.Close() })
		s := NewSQLStore(db, r)
		require.NoError(t, s.Migrate(context.Background()))
		return s
	}},
}

func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for _, f := range factories {
		t.Run(f.name, func(t *testing.T) {
			fn(t, f.open(t, testRegistry()))
		})
	}
}

func seedPosts(t *testing.T, s Store) []Record {
	t.Helper()
	ctx := context.Background()
	var out []Record
	for i, title := range []string{"alpha", "Bravo", "charlie", "delta", "echo"} {
		r, err := s.Save(ctx, "BlogPost", Record{
			"title":    title,
			"views":    i + 1,
			"featured": i%2 == 0,
			"status":   []string{"draft", "published"}[i%2],
		})
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func titles(recs []Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i], _ = r["title"].(string)
	}
	return out
}

func TestStore_CreateAppliesDefaults(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		r, err := s.Save(context.Background(), "BlogPost", Record{"title": "Hello", "tags": []string{"a", "b"}})
		require.NoError(t, err)

		assert.NotEmpty(t, r.ID())
		assert.Equal(t, "Hello", r["title"])
		assert.Equal(t, "draft", r["status"])
		assert.Equal(t, int64(0), r["views"])
		assert.Equal(t, false, r["featured"])
		assert.Nil(t, r["rating"])
		assert.Nil(t, r["author_id"])
		assert.Equal(t, []any{"a", "b"}, r["tags"])
		require.IsType(t, "", r["created"])
		_, err = time.Parse(time.RFC3339, r["created"].(string))
		assert.NoError(t, err)

		got, err := s.Get(context.Background(), "blog_post", r.ID())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	})
}

func TestStore_Validation(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		_, err := s.Save(context.Background(), "BlogPost", Record{
			"status": "bogus",
			"views":  1.5,
			"nope":   true,
		})
		var ferr *form.Error
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, "Invalid", ferr.Message)
		assert.Equal(t, map[string][]string{
			"title":  {"required"},
			"status": {"must be one of draft, published"},
			"views":  {"must be a whole number"},
			"nope":   {"unknown field"},
		}, ferr.Errors)

		res, err := s.List(context.Background(), "BlogPost", list.Query{})
		require.NoError(t, err)
		assert.Empty(t, res.Items, "nothing is stored on validation failure")
	})
}

func TestStore_UpdateKeepsReadOnly(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		orig, err := s.Save(ctx, "BlogPost", Record{"title": "A"})
		require.NoError(t, err)

		upd, err := s.Save(ctx, "BlogPost", Record{
			"id":      orig.ID(),
			"title":   "B",
			"created": "2000-01-01T00:00:00Z",
			"author":  "someone",
		})
		require.NoError(t, err)
		assert.Equal(t, orig.ID(), upd.ID())
		assert.Equal(t, "B", upd["title"])
		assert.Equal(t, orig["created"], upd["created"])
		assert.Equal(t, "someone", upd["author_id"], "to-one associations are stored in <name>_id")

		res, err := s.List(ctx, "BlogPost", list.Query{})
		require.NoError(t, err)
		assert.Len(t, res.Items, 1)
	})
}

func TestStore_ListFilters(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		seedPosts(t, s)
		ctx := context.Background()

		cases := []struct {
			name    string
			filters []list.Filter
			want    []string
		}{
			{"gte", []list.Filter{{Path: "views", Operator: list.OpGte, Value: 3}}, []string{"charlie", "delta", "echo"}},
			{"lt string number", []list.Filter{{Path: "views", Operator: list.OpLt, Value: "3"}}, []string{"alpha", "Bravo"}},
			{"eq bool", []list.Filter{{Path: "featured", Operator: list.OpEq, Value: true}}, []string{"alpha", "charlie", "echo"}},
			{"neq enum", []list.Filter{{Path: "status", Operator: list.OpNeq, Value: "draft"}}, []string{"Bravo", "delta"}},
			{"contains folds case", []list.Filter{{Path: "title", Operator: list.OpContains, Value: "BR"}}, []string{"Bravo"}},
			{"prefix", []list.Filter{{Path: "title", Operator: list.OpPrefix, Value: "d"}}, []string{"delta"}},
			{"in", []list.Filter{{Path: "views", Operator: list.OpIn, Value: []any{1, 5}}}, []string{"alpha", "echo"}},
			{"null", []list.Filter{{Path: "author", Operator: list.OpEq, Value: nil}}, []string{"alpha", "Bravo", "charlie", "delta", "echo"}},
			{"and", []list.Filter{
				{Path: "featured", Operator: list.OpEq, Value: true},
				{Path: "views", Operator: list.OpGt, Value: 1},
			}, []string{"charlie", "echo"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				res, err := s.List(ctx, "BlogPost", list.Query{Filters: tc.filters})
				require.NoError(t, err)
				assert.Equal(t, tc.want, titles(res.Items))
				assert.Nil(t, res.Paging)
			})
		}
	})
}

func TestStore_ListSortAndPage(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		seedPosts(t, s)
		ctx := context.Background()

		res, err := s.List(ctx, "BlogPost", list.Query{
			Sorting: []list.Sort{{Path: "status", Order: list.Asc}, {Path: "views", Order: list.Desc}},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"echo", "charlie", "alpha", "delta", "Bravo"}, titles(res.Items))

		res, err = s.List(ctx, "BlogPost", list.Query{
			Sorting: []list.Sort{{Path: "views", Order: list.Asc}},
			Paging:  &list.Paging{Page: 2, ItemsPerPage: 2},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"charlie", "delta"}, titles(res.Items))
		require.NotNil(t, res.Paging)
		assert.Equal(t, list.Paging{Page: 2, ItemsPerPage: 2, NumItems: 5}, *res.Paging)

		res, err = s.List(ctx, "BlogPost", list.Query{Paging: &list.Paging{Page: 9, ItemsPerPage: 2}})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.Equal(t, 5, res.Paging.NumItems)
	})
}

func TestStore_ListErrors(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.List(ctx, "Nope", list.Query{})
		assert.ErrorIs(t, err, ErrUnknownModel)

		_, err = s.List(ctx, "BlogPost", list.Query{Filters: []list.Filter{{Path: "comments", Operator: list.OpEq, Value: 1}}})
		assert.ErrorIs(t, err, ErrUnknownPath)

		_, err = s.List(ctx, "BlogPost", list.Query{Sorting: []list.Sort{{Path: "nope"}}})
		assert.ErrorIs(t, err, ErrUnknownPath)

		_, err = s.List(ctx, "BlogPost", list.Query{Filters: []list.Filter{{Path: "title", Operator: "like", Value: "x"}}})
		assert.ErrorIs(t, err, ErrUnsupportedOperator)

		_, err = s.List(ctx, "BlogPost", list.Query{Filters: []list.Filter{{Path: "views", Operator: list.OpEq, Value: "many"}}})
		assert.ErrorIs(t, err, ErrInvalidFilter)
	})
}

func TestStore_Delete(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		posts := seedPosts(t, s)

		require.NoError(t, s.Delete(ctx, "BlogPost", posts[1].ID()))
		_, err := s.Get(ctx, "BlogPost", posts[1].ID())
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, "BlogPost", posts[1].ID()), ErrNotFound)

		res, err := s.List(ctx, "BlogPost", list.Query{})
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "charlie", "delta", "echo"}, titles(res.Items))
	})
}

func TestStore_DrivesScreens(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		seedPosts(t, s)
		r := testRegistry()
		model, _ := r.Model("BlogPost")

		ld := list.NewDescriber[Record](model, list.Config[Record]{
			Refresh: Refresh(s, "BlogPost"),
			Paging:  &list.Paging{Page: 1, ItemsPerPage: 2},
		}, screen.WithLogger(screen.NopLogger))
		ls, err := ld.State()
		require.NoError(t, err)
		require.NoError(t, ls.Sort(ctx, "views", list.Desc))
		assert.Equal(t, []string{"echo", "delta"}, titles(ls.Data()))
		require.NoError(t, ls.LastPage(ctx))
		assert.Equal(t, []string{"alpha"}, titles(ls.Data()))
		p, _ := ls.Paging()
		assert.Equal(t, 3, p.NumPages)

		fd := form.NewDescriber[Record](model, form.Config[Record]{Save: SaveForm(s, "BlogPost")}, screen.WithLogger(screen.NopLogger))
		fs, err := fd.State(Record{"status": "draft"})
		require.NoError(t, err)
		_, err = fs.Save(ctx, nil)
		require.Error(t, err)
		assert.Equal(t, []string{"required"}, fs.FieldErrors("title"))

		fs.Bind(Record{"title": "foxtrot"})
		saved, err := fs.Save(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, fs.Errors())

		dd := screen.NewDeleteDescriber[Record](model, DeleteConfig(s, "BlogPost"), screen.WithLogger(screen.NopLogger))
		ds, err := dd.State()
		require.NoError(t, err)
		require.NoError(t, ds.Delete(ctx, saved, nil))
		err = ds.Delete(ctx, saved, nil)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, closeFn, err := Open(ctx, "", testRegistry())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	assert.NoError(t, closeFn())

	s, closeFn, err = Open(ctx, "file:"+t.TempDir()+"/screens.db", testRegistry())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &SQLStore{}, s)
	saved, err := s.Save(ctx, "Author", Record{"name": "Ada"})
	require.NoError(t, err)
	got, err := s.Get(ctx, "Author", saved.ID())
	require.NoError(t, err)
	assert.Equal(t, "Ada", got["name"])
}
