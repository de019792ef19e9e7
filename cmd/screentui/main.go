// cmd/screentui browses the records of one of the built-in models in the
// terminal. It drives a list screen state: sorting, filtering and paging go
// through the same operations the server exposes.
//
// Usage:
//
//	screentui [model]
//
// The model defaults to Post. Records come from the configured database, or
// from an in-memory store seeded with demo data.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matthewbaird/screens/ent/schema"
	"github.com/matthewbaird/screens/internal/config"
	"github.com/matthewbaird/screens/internal/list"
	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/screen"
	"github.com/matthewbaird/screens/internal/seed"
	"github.com/matthewbaird/screens/internal/store"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("screentui: ")

	name := "Post"
	if len(os.Args) > 1 {
		name = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	registry := meta.NewRegistry()
	if err := registry.Register(schema.Models()...); err != nil {
		log.Fatalf("registering models: %v", err)
	}
	m, ok := registry.Model(name)
	if !ok {
		msg := fmt.Sprintf("unknown model %q", name)
		if hint := screen.Suggest(meta.Key(name), registry.Keys()); hint != "" {
			msg += fmt.Sprintf(", did you mean %q?", hint)
		}
		log.Fatal(msg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStore, err := store.Open(ctx, cfg.Database.DSN, registry)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()
	if cfg.Database.Seed {
		// Seeding logs would draw over the screen.
		log.SetOutput(io.Discard)
		err := seed.SeedBlog(ctx, st)
		log.SetOutput(os.Stderr)
		if err != nil {
			log.Fatalf("seeding demo data: %v", err)
		}
	}

	d := list.NewDescriber(m, list.Config[store.Record]{
		Refresh:    store.Refresh(st, m.Name()),
		Paging:     &list.Paging{Page: 1, ItemsPerPage: cfg.List.ItemsPerPage},
		StaleGuard: true,
	}, screen.WithLogger(screen.NopLogger))
	state, err := d.State()
	if err != nil {
		log.Fatalf("describing %s: %v", m.Name(), err)
	}
	desc, _ := d.Screen()

	if _, err := tea.NewProgram(newModel(ctx, desc.Plural, state), tea.WithAltScreen()).Run(); err != nil {
		log.Fatal(err)
	}
}
