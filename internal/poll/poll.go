// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Package poll waits between status checks of remote jobs with bounded exponential backoff.
package poll

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrTimeout is returned when the total wait budget of a Policy is exhausted.
var ErrTimeout = errors.New("timed out waiting for remote status")

// Policy bounds how long and how often a remote status is polled.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Jitter          float64
	// Timeout is the total budget across all waits. Zero means no limit.
	Timeout time.Duration
}

// DefaultPolicy starts at one second and never waits longer than five seconds between checks.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: time.Second,
		MaxInterval:     5 * time.Second, //nolint:mnd
		Multiplier:      1.5,             //nolint:mnd
		Jitter:          0.2,             //nolint:mnd
		Timeout:         2 * time.Minute, //nolint:mnd
	}
}

// Waiter sleeps between polls. It is not safe for concurrent use.
type Waiter struct {
	backOff  *backoff.ExponentialBackOff
	deadline time.Time
}

func (p Policy) Start() *Waiter {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	}
	b.RandomizationFactor = p.Jitter
	// The budget is tracked by the Waiter so Reset does not extend it.
	b.MaxElapsedTime = 0
	b.Reset()

	waiter := &Waiter{backOff: b}
	if p.Timeout > 0 {
		waiter.deadline = time.Now().Add(p.Timeout)
	}

	return waiter
}

// Wait blocks for the next backoff interval.
// It returns ErrTimeout once the policy budget is spent, or the context error if ctx is done first.
// The last wait is shortened to end at the deadline so one final check can still happen.
func (w *Waiter) Wait(ctx context.Context) error {
	next := w.backOff.NextBackOff()
	if !w.deadline.IsZero() {
		remaining := time.Until(w.deadline)
		if remaining <= 0 {
			return ErrTimeout
		}
		next = min(next, remaining)
	}

	timer := time.NewTimer(next)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	case <-timer.C:
		return nil
	}
}

// Reset restarts the interval sequence, e.g. after the remote job made progress.
// The total budget keeps counting from Start.
func (w *Waiter) Reset() {
	w.backOff.Reset()
}
