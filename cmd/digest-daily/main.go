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
	"crewdeck.app/herald/internal/digest"
	"crewdeck.app/herald/internal/mailer"
	"crewdeck.app/herald/internal/prefs"
	"crewdeck.app/herald/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.JobDigestDaily)
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

	slog.InfoContext(ctx, "daily digest starting", "env", cfg.Env)

	if err := id.Init(4); err != nil {
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

	stores := store.NewStores(pool)
	worker := digest.NewWorker(digest.WorkerDeps{
		Events:      stores.Events(),
		Projects:    stores.Projects(),
		Profiles:    stores.Profiles(),
		Threads:     stores.Threads(),
		Preferences: stores.Preferences(),
		Digests:     stores.Digests(),
		Access:      access.NewResolver(stores.Resources(), stores.Permissions()),
		Prefs:       prefs.NewResolver(stores.Preferences()),
		Sender:      mailer.NewSender(cfg.Email),
	})

	if err := worker.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "daily digest run failed", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "daily digest finished")
}
