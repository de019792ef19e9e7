// Package seed provides demo data for the example blog models.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/store"
)

type demoPost struct {
	title    string
	status   string
	views    int
	rating   float64
	featured bool
	author   int
	ageDays  int
}

var demoAuthors = []store.Record{
	{"name": "Ada Lovelace", "email": "ada@example.com", "bio": "Writes about engines, analytical and otherwise."},
	{"name": "Grace Hopper", "email": "grace@example.com", "bio": "Compilers, nanoseconds and naval history."},
	{"name": "Edsger Dijkstra", "email": "edsger@example.com"},
}

var demoPosts = []demoPost{
	{"Notes on the Analytical Engine", "published", 1843, 4.9, true, 0, 400},
	{"Bernoulli numbers by hand", "published", 512, 4.2, false, 0, 320},
	{"Why the loom matters", "review", 0, 0, false, 0, 3},
	{"A nanosecond of wire", "published", 2210, 4.8, true, 1, 250},
	{"The first bug", "published", 3120, 4.7, true, 1, 180},
	{"COBOL for managers", "archived", 87, 3.1, false, 1, 900},
	{"It's easier to ask forgiveness", "draft", 0, 0, false, 1, 1},
	{"Go To statement considered harmful", "published", 4999, 4.6, false, 2, 700},
	{"On the cruelty of really teaching computing science", "published", 1250, 4.0, false, 2, 60},
	{"Shortest paths in an afternoon", "review", 14, 0, false, 2, 5},
	{"Semaphores, informally", "draft", 0, 0, false, 2, 2},
	{"The humble programmer", "published", 2048, 4.4, true, 2, 30},
}

// SeedBlog creates the demo authors and posts. If authors already exist it
// skips seeding.
func SeedBlog(ctx context.Context, s store.Store) error {
	existing, err := s.List(ctx, "Author", list.Query{Paging: &list.Paging{Page: 1, ItemsPerPage: 1}})
	if err != nil {
		return fmt.Errorf("checking authors: %w", err)
	}
	if existing.Paging != nil && existing.Paging.NumItems > 0 {
		log.Printf("blog already seeded (%d authors found), skipping", existing.Paging.NumItems)
		return nil
	}

	now := time.Now().UTC()
	actor := "system"

	authorIDs := make([]string, len(demoAuthors))
	for i, a := range demoAuthors {
		rec := a.Clone()
		rec["created_by"] = actor
		rec["source"] = "system"
		saved, err := s.Save(ctx, "Author", rec)
		if err != nil {
			return fmt.Errorf("creating author %q: %w", a["name"], err)
		}
		authorIDs[i] = saved.ID()
	}

	for _, p := range demoPosts {
		created := now.AddDate(0, 0, -p.ageDays)
		rec := store.Record{
			"title":      p.title,
			"body":       fmt.Sprintf("%s.\n\nDemo content.", p.title),
			"status":     p.status,
			"views":      p.views,
			"featured":   p.featured,
			"author_id":  authorIDs[p.author],
			"created_at": created,
			"updated_at": created,
			"created_by": actor,
			"source":     "system",
		}
		if p.rating > 0 {
			rec["rating"] = p.rating
		}
		if p.status == "published" || p.status == "archived" {
			rec["published_at"] = created.Add(time.Hour)
		}
		if _, err := s.Save(ctx, "Post", rec); err != nil {
			return fmt.Errorf("creating post %q: %w", p.title, err)
		}
	}

	log.Printf("seeded %d authors with %d posts", len(demoAuthors), len(demoPosts))
	return nil
}
