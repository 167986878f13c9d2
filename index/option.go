// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package index

import (
	"github.com/rs/zerolog"

	"github.com/ktong/lpassistant/internal/poll"
)

type Option func(*Rebuilder)

// WithOutputDir sets the directory the files are written to before upload.
func WithOutputDir(dir string) Option {
	return func(rebuilder *Rebuilder) {
		rebuilder.dir = dir
	}
}

func WithPollPolicy(policy poll.Policy) Option {
	return func(rebuilder *Rebuilder) {
		rebuilder.policy = policy
	}
}

// WithNotifier announces every successful rebuild.
func WithNotifier(notifier Notifier) Option {
	return func(rebuilder *Rebuilder) {
		rebuilder.notifier = notifier
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(rebuilder *Rebuilder) {
		rebuilder.logger = logger
	}
}
