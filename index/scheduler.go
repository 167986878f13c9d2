// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Runner is implemented by *Rebuilder.
type Runner interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler runs a rebuild on a cron spec such as "@every 6h" or "0 3 * * *".
// A tick is skipped while the previous rebuild is still running.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	spec    string
	logger  zerolog.Logger
	running sync.Mutex
	initial sync.WaitGroup
}

func NewScheduler(runner Runner, spec string, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLogger(cronLogger{logger: logger})),
		runner: runner,
		spec:   spec,
		logger: logger,
	}
}

// Start registers the rebuild and starts the scheduler.
// It also rebuilds once right away so the index is fresh without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.rebuild(ctx) }); err != nil {
		return fmt.Errorf("schedule rebuild %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.logger.Info().Str("spec", s.spec).Msg("rebuild scheduler started")

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		s.rebuild(ctx)
	}()

	return nil
}

// Stop stops the scheduler and waits for a running rebuild to finish or ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		<-s.cron.Stop().Done()
		s.initial.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
	s.logger.Info().Msg("rebuild scheduler stopped")
}

func (s *Scheduler) rebuild(ctx context.Context) {
	if !s.running.TryLock() {
		s.logger.Warn().Msg("rebuild still running, skipping")

		return
	}
	defer s.running.Unlock()

	report, err := s.runner.Run(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("status", report.Status).Msg("rebuild failed")

		return
	}
	s.logger.Info().
		Str("status", report.Status).
		Int("files", len(report.Files)).
		Int("completed", report.FileCounts.Completed).
		Msg("rebuild finished")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
