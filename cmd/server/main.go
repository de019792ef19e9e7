package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/matthewbaird/screens/ent/schema"
	"github.com/matthewbaird/screens/internal/activity"
	"github.com/matthewbaird/screens/internal/config"
	"github.com/matthewbaird/screens/internal/event"
	"github.com/matthewbaird/screens/internal/eventbus"
	"github.com/matthewbaird/screens/internal/meta"
	"github.com/matthewbaird/screens/internal/meta/cueschema"
	"github.com/matthewbaird/screens/internal/seed"
	"github.com/matthewbaird/screens/internal/server"
	"github.com/matthewbaird/screens/internal/server/session"
	"github.com/matthewbaird/screens/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	registry, err := loadModels(cfg.Models)
	if err != nil {
		log.Fatalf("loading models: %v", err)
	}
	log.Printf("serving models: %v", registry.Keys())

	st, closeStore, err := store.Open(ctx, cfg.Database.DSN, registry)
	if err != nil {
		log.Fatal(err)
	}
	defer closeStore()
	if cfg.Database.DSN == "" {
		log.Println("no database configured, records are kept in memory")
	} else {
		log.Println("database migrated successfully")
	}

	if cfg.Database.Seed && cfg.Models.Dir == "" {
		if err := seed.SeedBlog(ctx, st); err != nil {
			log.Fatalf("seeding demo data: %v", err)
		}
	}

	bus := eventbus.New(cfg.Events.Buffer)
	bus.Subscribe("log", &eventbus.LogConsumer{Errors: !cfg.Events.Log})
	counter := eventbus.NewCounter()
	bus.Subscribe("counter", counter)

	history, closeHistory, err := activity.Open(ctx, cfg.Database.DSN, cfg.Events.History)
	if err != nil {
		log.Fatal(err)
	}
	defer closeHistory()
	indexer := activity.NewIndexer(history)
	indexer.Skip = []string{event.TypeRefreshed}
	bus.Subscribe("activity", indexer)

	go bus.Start(ctx)
	defer bus.Stop()

	sessions := session.NewManager(cfg.Session.MaxAge, cfg.Session.IdleTimeout)
	go sessions.Run(ctx, time.Minute)

	srv := server.New(server.Config{
		Addr:         cfg.Server.Addr(),
		Registry:     registry,
		Store:        st,
		Sessions:     sessions,
		Bus:          bus,
		Counter:      counter,
		Activity:     history,
		ItemsPerPage: cfg.List.ItemsPerPage,
	})
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func loadModels(cfg config.ModelsConfig) (*meta.Registry, error) {
	registry := meta.NewRegistry()
	if cfg.Dir == "" {
		return registry, registry.Register(schema.Models()...)
	}
	models, err := cueschema.LoadDir(cfg.Dir)
	if err != nil {
		return nil, err
	}
	return registry, cueschema.Register(registry, models...)
}
