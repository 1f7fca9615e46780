package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/Veraticus/fieldwise/internal/config"
	"github.com/Veraticus/fieldwise/internal/jobber"
	"github.com/Veraticus/fieldwise/internal/storage"
)

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// openStore opens the account database and brings its schema up to date.
func openStore(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	slog.Debug("Opened account store", "path", store.Path())
	return store, nil
}

func newPlatform(cfg *config.Config) *jobber.Client {
	return jobber.NewClient(jobber.Config{
		Endpoint:   cfg.Jobber.GraphQLURL,
		APIVersion: cfg.Jobber.APIVersion,
	})
}
