package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/tagwise/tagwise/internal/config"
	"github.com/tagwise/tagwise/internal/engine"
	"github.com/tagwise/tagwise/internal/guard"
	"github.com/tagwise/tagwise/internal/learn"
	"github.com/tagwise/tagwise/internal/rules"
	"github.com/tagwise/tagwise/internal/storage"
)

// initStorage opens the database with auto-migration.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// classificationStack wires the registry, guard, learner and classifier on
// top of one storage handle.
type classificationStack struct {
	store      *storage.SQLiteStorage
	registry   *rules.Registry
	guard      *guard.Guard
	learner    *learn.Learner
	classifier *engine.Classifier
}

// initStack builds the full classification stack with persisted state loaded.
func initStack(ctx context.Context) (*classificationStack, error) {
	store, err := initStorage(ctx)
	if err != nil {
		return nil, err
	}

	registry := rules.NewRegistry(store)
	if err := registry.Load(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	g := guard.New(guard.Config{
		MinInvestmentMinor: viper.GetInt64("classification.min_investment"),
	})

	learner := learn.NewLearner(registry, store)
	if err := learner.LoadAssignments(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}

	return &classificationStack{
		store:      store,
		registry:   registry,
		guard:      g,
		learner:    learner,
		classifier: engine.NewClassifier(registry, g, learner),
	}, nil
}

// Close releases the underlying storage handle.
func (s *classificationStack) Close() error {
	return s.store.Close()
}
