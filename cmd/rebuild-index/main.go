// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Command rebuild-index replaces the files of the vector store with a fresh
// snapshot of the active locations and open positions.
//
// Without a schedule it rebuilds once and exits non-zero on failure.
// With -schedule (or REBUILD_SCHEDULE), e.g. "@every 6h", it rebuilds at start
// and then on the schedule until SIGINT or SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ktong/lpassistant/index"
	"github.com/ktong/lpassistant/internal/config"
	"github.com/ktong/lpassistant/internal/logging"
	"github.com/ktong/lpassistant/openai"
	"github.com/ktong/lpassistant/openai/httpclient"
	"github.com/ktong/lpassistant/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// ── Config ───────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	schedule := flag.String("schedule", cfg.RebuildSchedule, "cron spec to rebuild on, e.g. @every 6h")
	outputDir := flag.String("out", cfg.IndexOutputDir, "directory the index files are written to")
	flag.Parse()

	if err := cfg.RequireVectorStore(); err != nil {
		return err
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Debug().Msg("postgres connected")

	// ── Rebuilder ────────────────────────────────────────────────────────────
	var clientOpts []httpclient.Option
	if cfg.OpenAIBaseURL != "" {
		clientOpts = append(clientOpts, httpclient.WithBaseURL(cfg.OpenAIBaseURL))
	}
	opts := []index.Option{
		index.WithOutputDir(*outputDir),
		index.WithPollPolicy(cfg.PollPolicy()),
		index.WithLogger(logger),
	}

	// ── Redis (optional) ─────────────────────────────────────────────────────
	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts, index.WithNotifier(index.NewRedisNotifier(client)))
		logger.Debug().Msg("redis connected")
	}

	rebuilder := index.New(store.New(pool), openai.New(cfg.OpenAIAPIKey, clientOpts...), cfg.VectorStoreID, opts...)

	if *schedule == "" {
		report, err := rebuilder.Run(ctx)
		if err != nil {
			return err
		}
		logReport(logger, report)

		return nil
	}

	return runScheduled(ctx, rebuilder, *schedule, logger)
}

func runScheduled(ctx context.Context, rebuilder *index.Rebuilder, spec string, logger zerolog.Logger) error {
	scheduler := index.NewScheduler(rebuilder, spec, logger)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	logger.Info().Msg("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second) //nolint:mnd
	defer cancel()
	scheduler.Stop(stopCtx)
	logger.Info().Msg("stopped")

	return nil
}

func connectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return client, nil
}

func logReport(logger zerolog.Logger, report index.Report) {
	logger.Info().
		Str("vector_store_id", report.VectorStoreID).
		Int("locations", report.Locations).
		Int("positions", report.Positions).
		Int("removed", report.Removed).
		Str("batch_id", report.BatchID).
		Str("status", report.Status).
		Int("completed", report.FileCounts.Completed).
		Int("failed", report.FileCounts.Failed).
		Msg("index rebuilt")
}
