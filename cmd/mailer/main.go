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
	"crewdeck.app/herald/internal/mailer"
	"crewdeck.app/herald/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.JobMailer)
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

	slog.InfoContext(ctx, "mailer starting",
		"env", cfg.Env,
		"dry_run", cfg.Email.DryRun,
		"test_mode", cfg.Email.TestMode)

	if err := id.Init(2); err != nil {
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
	sender := mailer.NewSender(cfg.Email)
	dispatcher := mailer.NewInstantDispatcher(stores.Emails(), stores.Profiles(), sender, cfg.Fanout.BatchSize)

	if err := dispatcher.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "mailer run failed", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "mailer finished")
}
