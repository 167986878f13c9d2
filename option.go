// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package lpassistant

import "github.com/rs/zerolog"

type Option func(*Session)

// WithAssistantID reuses an existing assistant instead of creating one.
func WithAssistantID(id string) Option {
	return func(session *Session) {
		session.assistantID = id
	}
}

// WithThreadID continues an existing thread.
func WithThreadID(id string) Option {
	return func(session *Session) {
		session.threadID = id
	}
}

// WithModel overrides the model of the assistant for runs and for assistant creation.
func WithModel(model string) Option {
	return func(session *Session) {
		session.model = model
	}
}

// WithInstructions sets the instructions passed to every run,
// overriding the run instructions of the Definition.
func WithInstructions(instructions string) Option {
	return func(session *Session) {
		session.instructions = instructions
	}
}

func WithPollPolicy(policy PollPolicy) Option {
	return func(session *Session) {
		session.policy = policy
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(session *Session) {
		session.logger = logger
	}
}
