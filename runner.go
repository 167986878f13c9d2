// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package lpassistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ktong/lpassistant/openai"
	"github.com/ktong/lpassistant/openai/httpclient"
)

// Ask adds the query to the thread as a user message, runs the assistant and waits for its answer.
// The assistant and the thread must be ensured first.
func (s *Session) Ask(ctx context.Context, query string) (Answer, error) {
	if err := s.AddMessage(ctx, RoleUser, query); err != nil {
		return Answer{}, err
	}
	if err := s.StartRun(ctx, s.instructions); err != nil {
		return Answer{}, err
	}

	return s.WaitForCompletion(ctx)
}

// StartRun starts a run of the assistant on the thread.
// Empty instructions keep the instructions of the assistant.
func (s *Session) StartRun(ctx context.Context, instructions string) error {
	if s.assistantID == "" || s.threadID == "" {
		return errors.New("start run: assistant and thread must be ensured first") //nolint:err113
	}

	run, err := s.client.CreateRun(ctx, s.threadID, openai.RunRequest{
		AssistantID:  s.assistantID,
		Model:        s.model,
		Instructions: instructions,
	})
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	s.run = run
	s.logger.Debug().Str("thread_id", s.threadID).Str("run_id", run.ID).Msg("run started")

	return nil
}

// WaitForCompletion polls the run until it reaches a terminal status.
//
// Tool calls requested by the model are dispatched to the lookups and
// all outputs are submitted in one batch. A completed run returns the latest
// message of the thread; any other terminal status returns a *RunError.
// The wait is bounded by the poll policy and returns ErrTimeout when it runs out.
//
// When the wait ends early, on a tool fault, a timeout, a canceled ctx or a poll error,
// the run is canceled on the server so the thread accepts new messages.
func (s *Session) WaitForCompletion(ctx context.Context) (Answer, error) {
	if s.run.ID == "" {
		return Answer{}, errors.New("wait for completion: no run started") //nolint:err113
	}

	logger := s.logger.With().Str("thread_id", s.threadID).Str("run_id", s.run.ID).Logger()
	waiter := s.policy.Start()
	for {
		if err := waiter.Wait(ctx); err != nil {
			return Answer{}, s.abandon(ctx, logger, fmt.Errorf("wait for run %s: %w", s.run.ID, err))
		}

		run, err := s.client.RetrieveRun(ctx, s.threadID, s.run.ID)
		if err != nil {
			if httpclient.IsTransient(err) {
				logger.Warn().Err(err).Msg("poll run failed, retrying")

				continue
			}

			return Answer{}, s.abandon(ctx, logger, fmt.Errorf("poll run: %w", err))
		}
		s.run = run
		logger.Debug().Str("status", run.Status).Msg("run polled")

		switch run.Status {
		case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
		case openai.RunStatusRequiresAction:
			if err := s.submitToolOutputs(ctx, run); err != nil {
				return Answer{}, s.abandon(ctx, logger, err)
			}
			// The run is working again; check back soon.
			waiter.Reset()
		case openai.RunStatusCompleted:
			return s.answer(ctx)
		default:
			runErr := &RunError{RunID: run.ID, Status: run.Status}
			if run.LastError != nil {
				runErr.Code, runErr.Message = run.LastError.Code, run.LastError.Message
			} else if run.IncompleteDetails != nil {
				runErr.Message = run.IncompleteDetails.Reason
			}
			logger.Error().Err(runErr).Str("status", run.Status).Msg("run did not complete")

			return Answer{}, runErr
		}
	}
}

// cancelTimeout bounds the cancel request sent when a wait is abandoned.
const cancelTimeout = 10 * time.Second

// abandon cancels the active run and returns err.
// The cancel is sent even when ctx is done, and its failure is only logged.
func (s *Session) abandon(ctx context.Context, logger zerolog.Logger, err error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()

	if _, cancelErr := s.client.CancelRun(ctx, s.threadID, s.run.ID); cancelErr != nil {
		logger.Warn().Err(cancelErr).Msg("cancel run failed")
	} else {
		logger.Info().Err(err).Msg("run canceled")
	}

	return err
}

func (s *Session) submitToolOutputs(ctx context.Context, run openai.Run) error {
	if run.RequiredAction == nil {
		return fmt.Errorf("run %s requires action without tool calls", run.ID) //nolint:err113
	}

	calls := run.RequiredAction.SubmitToolOutputs.ToolCalls
	outputs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		invocation, err := Decode(call)
		if err != nil {
			s.logger.Error().Err(err).Str("run_id", run.ID).Str("tool", call.Function.Name).Msg("tool call rejected")

			return fmt.Errorf("dispatch tool call %s: %w", call.ID, err)
		}

		output, err := s.invoke(ctx, invocation)
		if err != nil {
			return fmt.Errorf("dispatch tool call %s: %w", call.ID, err)
		}
		s.logger.Debug().Str("run_id", run.ID).Str("tool", call.Function.Name).Str("call_id", call.ID).Msg("tool called")
		outputs = append(outputs, openai.ToolOutput{ToolCallID: call.ID, Output: output})
	}

	if _, err := s.client.SubmitToolOutputs(ctx, s.threadID, run.ID, outputs); err != nil {
		return fmt.Errorf("submit tool outputs: %w", err)
	}

	return nil
}

// RunSteps lists the steps of the last run, oldest first.
func (s *Session) RunSteps(ctx context.Context) ([]openai.RunStep, error) {
	if s.run.ID == "" {
		return nil, errors.New("list run steps: no run started") //nolint:err113
	}

	steps, err := s.client.ListRunSteps(ctx, s.threadID, s.run.ID)
	if err != nil {
		return nil, fmt.Errorf("list run steps: %w", err)
	}

	return steps, nil
}
