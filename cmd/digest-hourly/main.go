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

	cfg, err := config.Load(config.JobDigestHourly)
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

	slog.InfoContext(ctx, "hourly digest starting", "env", cfg.Env, "batch_size", cfg.Digest.BatchSize)

	if err := id.Init(3); err != nil {
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
	digest := mailer.NewHourlyDigest(stores.Emails(), stores.Profiles(), sender, cfg.Digest.BatchSize)

	if err := digest.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "hourly digest run failed", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "hourly digest finished")
}
