// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Package lpassistant runs the locations and positions assistant on the OpenAI Assistants API.
//
// A Session owns one assistant, one thread and the run in flight.
// The model answers questions about locations and positions by calling
// the lookup tools, which are resolved against the store through Lookups.
package lpassistant

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ktong/lpassistant/internal/poll"
	"github.com/ktong/lpassistant/lookup"
	"github.com/ktong/lpassistant/openai"
)

type (
	// Client is the part of the Assistants API a Session uses. It is implemented by openai.Client.
	Client interface {
		CreateAssistant(ctx context.Context, asst openai.Assistant) (openai.Assistant, error)
		RetrieveAssistant(ctx context.Context, id string) (openai.Assistant, error)
		ModifyAssistant(ctx context.Context, id string, asst openai.Assistant) (openai.Assistant, error)

		CreateThread(ctx context.Context, messages ...openai.MessageRequest) (openai.Thread, error)
		RetrieveThread(ctx context.Context, id string) (openai.Thread, error)
		CreateMessage(ctx context.Context, threadID string, msg openai.MessageRequest) (openai.Message, error)
		ListMessages(ctx context.Context, threadID string, params openai.ListMessagesParams) ([]openai.Message, error)

		CreateRun(ctx context.Context, threadID string, run openai.RunRequest) (openai.Run, error)
		RetrieveRun(ctx context.Context, threadID, runID string) (openai.Run, error)
		SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []openai.ToolOutput) (openai.Run, error)
		CancelRun(ctx context.Context, threadID, runID string) (openai.Run, error)
		ListRunSteps(ctx context.Context, threadID, runID string) ([]openai.RunStep, error)
	}

	// Lookups resolves the tool calls of the model. It is implemented by *lookup.Service.
	Lookups interface {
		Location(ctx context.Context, id string) (lookup.Result, error)
		Position(ctx context.Context, id string) (lookup.Result, error)
	}

	// PollPolicy bounds the polling of runs.
	PollPolicy = poll.Policy
)

// Session is a conversation with the assistant on a single thread.
//
// Only one run can be active on a thread, so a Session is not safe for concurrent use.
// Callers sharing a thread across goroutines must serialize Ask.
type Session struct {
	client  Client
	lookups Lookups

	assistant    openai.Assistant
	assistantID  string
	threadID     string
	run          openai.Run
	model        string
	instructions string
	policy       PollPolicy
	logger       zerolog.Logger
}

// NewSession creates a Session. lookups may be nil for an assistant without function tools,
// in which case any tool call fails the wait with ErrUnknownTool.
func NewSession(client Client, lookups Lookups, opts ...Option) *Session {
	session := &Session{
		client:  client,
		lookups: lookups,
		policy:  poll.DefaultPolicy(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(session)
	}

	return session
}

// DefaultPollPolicy polls from every second up to every five seconds for at most two minutes.
func DefaultPollPolicy() PollPolicy {
	return poll.DefaultPolicy()
}

func (s *Session) AssistantID() string {
	return s.assistantID
}

func (s *Session) ThreadID() string {
	return s.threadID
}

// RunID returns the id of the last started run.
func (s *Session) RunID() string {
	return s.run.ID
}
