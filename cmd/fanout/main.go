package main

import (
	"context"
	"log/slog"
	"os"

	"crewdeck.app/herald/common/id"
	"crewdeck.app/herald/common/logger"
	"crewdeck.app/herald/common/otel"
	"crewdeck.app/herald/core/config"
	"crewdeck.app/herald/core/db"
	"crewdeck.app/herald/internal/access"
	"crewdeck.app/herald/internal/cache"
	"crewdeck.app/herald/internal/fanout"
	"crewdeck.app/herald/internal/prefs"
	"crewdeck.app/herald/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.JobFanout)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	if telemetry != nil {
		defer func() {
			if err := telemetry.Shutdown(context.Background()); err != nil {
				slog.Error("otel shutdown failed", "error", err)
			}
		}()
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "fanout starting", "env", cfg.Env, "batch_size", cfg.Fanout.BatchSize)

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	slog.InfoContext(ctx, "database connected")

	names, err := cache.New(cfg.Cache)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to cache", "error", err)
		os.Exit(1)
	}
	defer names.Close()

	stores := store.NewStores(pool)
	handlers := fanout.NewHandlers(fanout.HandlerDeps{
		Notifications: stores.Notifications(),
		Emails:        stores.Emails(),
		Projects:      stores.Projects(),
		Profiles:      stores.Profiles(),
		Threads:       stores.Threads(),
		Meetings:      stores.Meetings(),
		Resources:     stores.Resources(),
		Access:        access.NewResolver(stores.Resources(), stores.Permissions()),
		Prefs:         prefs.NewResolver(stores.Preferences()),
		Names:         names,
		SiteURL:       cfg.SiteURL,
	})
	dispatcher := fanout.NewDispatcher(stores.Events(), handlers.Registry(), cfg.Fanout.BatchSize)

	if err := dispatcher.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "fanout run failed", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "fanout finished")
}
