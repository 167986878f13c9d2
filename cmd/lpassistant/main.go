// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Command lpassistant answers questions about locations and positions.
//
//	lpassistant ask [-steps] <query>   answer one query and exit
//	lpassistant serve [-file-search]   serve the chat API on PORT
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ktong/lpassistant"
	"github.com/ktong/lpassistant/internal/chat"
	"github.com/ktong/lpassistant/internal/config"
	"github.com/ktong/lpassistant/internal/logging"
	"github.com/ktong/lpassistant/lookup"
	"github.com/ktong/lpassistant/openai"
	"github.com/ktong/lpassistant/openai/httpclient"
	"github.com/ktong/lpassistant/store"
)

const usage = `usage:
  lpassistant ask [-steps] <query>
  lpassistant serve [-file-search]`

func main() {
	if len(os.Args) < 2 { //nolint:mnd
		die(usage)
	}

	cfg, err := config.Load()
	if err != nil {
		die("config: %v", err)
	}
	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		die("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "ask":
		err = ask(ctx, cfg, logger, os.Args[2:])
	case "serve":
		err = serve(ctx, cfg, logger, os.Args[2:])
	default:
		die(usage)
	}
	if err != nil {
		logger.Error().Err(err).Msg(os.Args[1] + " failed")
		stop()
		os.Exit(1)
	}
}

func ask(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	flags := flag.NewFlagSet("ask", flag.ExitOnError)
	steps := flags.Bool("steps", false, "print the run steps after the answer")
	_ = flags.Parse(args)

	query := strings.TrimSpace(strings.Join(flags.Args(), " "))
	if query == "" {
		die(usage)
	}

	lookups, closeStore, err := connectLookups(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	session := newSession(cfg, logger, lookups)
	if err := session.EnsureAssistant(ctx, cfg.Assistant); err != nil {
		return err
	}
	if err := session.EnsureThread(ctx); err != nil {
		return err
	}

	answer, err := session.Ask(ctx, cfg.Assistant.FormatPrompt(query))
	if err != nil {
		return err
	}
	fmt.Println(answer.Text) //nolint:forbidigo

	if *steps {
		runSteps, err := session.RunSteps(ctx)
		if err != nil {
			return err
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		for _, step := range runSteps {
			if err := encoder.Encode(step); err != nil {
				return fmt.Errorf("print run step %s: %w", step.ID, err)
			}
		}
	}

	return nil
}

func serve(ctx context.Context, cfg *config.Config, logger zerolog.Logger, args []string) error {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	fileSearch := flags.Bool("file-search", false, "answer from the vector store files instead of the lookup tools")
	_ = flags.Parse(args)

	// ── Assistant ────────────────────────────────────────────────────────────
	var lookups lpassistant.Lookups
	if *fileSearch {
		if err := cfg.RequireVectorStore(); err != nil {
			return err
		}
	}
	// The lookup tools stay available next to file search when a database is configured.
	if !*fileSearch || cfg.RequireDatabase() == nil {
		service, closeStore, err := connectLookups(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeStore()
		lookups = service
	}

	setup := newSession(cfg, logger, lookups)
	if err := setup.EnsureAssistant(ctx, cfg.Assistant); err != nil {
		return err
	}
	if *fileSearch {
		if err := setup.AttachVectorStore(ctx, cfg.VectorStoreID); err != nil {
			return err
		}
	}
	assistantID := setup.AssistantID()
	logger.Info().Str("assistant_id", assistantID).Bool("file_search", *fileSearch).Msg("assistant ready")

	// ── Sessions ─────────────────────────────────────────────────────────────
	threads, closeThreads, err := threadStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeThreads()

	sessions := func(threadID string) chat.Conversation {
		return newSession(cfg, logger, lookups,
			lpassistant.WithAssistantID(assistantID),
			lpassistant.WithThreadID(threadID),
			lpassistant.WithInstructions(cfg.Assistant.RunInstructions),
		)
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	chat.NewHandler(sessions, threads, logger).RegisterRoutes(mux)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second, //nolint:mnd
		// Answers wait for the run, so writes may take up to the poll timeout.
		WriteTimeout: cfg.PollTimeout + 30*time.Second, //nolint:mnd
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case err := <-errs:
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second) //nolint:mnd
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	logger.Info().Msg("stopped")

	return nil
}

func newSession(cfg *config.Config, logger zerolog.Logger, lookups lpassistant.Lookups, opts ...lpassistant.Option) *lpassistant.Session {
	var clientOpts []httpclient.Option
	if cfg.OpenAIBaseURL != "" {
		clientOpts = append(clientOpts, httpclient.WithBaseURL(cfg.OpenAIBaseURL))
	}

	return lpassistant.NewSession(
		openai.New(cfg.OpenAIAPIKey, clientOpts...),
		lookups,
		append([]lpassistant.Option{
			lpassistant.WithAssistantID(cfg.AssistantID),
			lpassistant.WithModel(cfg.Model),
			lpassistant.WithPollPolicy(cfg.PollPolicy()),
			lpassistant.WithLogger(logger),
		}, opts...)...,
	)
}

func connectLookups(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*lookup.Service, func(), error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug().Msg("postgres connected")

	return lookup.New(store.New(pool), lookup.WithLogger(logger)), pool.Close, nil
}

// threadStore keeps session threads in Redis when REDIS_URL is set, in memory otherwise.
func threadStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (chat.ThreadStore, func(), error) {
	if cfg.RedisURL == "" {
		logger.Warn().Msg("REDIS_URL not set, sessions are kept in memory")

		return chat.NewMemoryThreads(), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Debug().Msg("redis connected")

	return chat.NewRedisThreads(client, chat.DefaultThreadTTL), func() { _ = client.Close() }, nil
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
