// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package openai

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ktong/lpassistant/openai/httpclient"
)

// Run statuses reported by the API.
const (
	RunStatusQueued         = "queued"
	RunStatusInProgress     = "in_progress"
	RunStatusRequiresAction = "requires_action"
	RunStatusCancelling     = "cancelling"
	RunStatusCancelled      = "cancelled"
	RunStatusFailed         = "failed"
	RunStatusCompleted      = "completed"
	RunStatusIncomplete     = "incomplete"
	RunStatusExpired        = "expired"
)

func (c Client) CreateRun(ctx context.Context, threadID string, run RunRequest) (Run, error) {
	resp, err := httpclient.Post[Run](ctx, "/threads/"+threadID+"/runs", run, c.options...)
	if err != nil {
		return Run{}, fmt.Errorf("create run: %w", err)
	}

	return resp, nil
}

func (c Client) RetrieveRun(ctx context.Context, threadID, runID string) (Run, error) {
	resp, err := httpclient.Get[Run](ctx, "/threads/"+threadID+"/runs/"+runID, c.options...)
	if err != nil {
		return Run{}, fmt.Errorf("retrieve run: %w", err)
	}

	return resp, nil
}

// SubmitToolOutputs sends the outputs of all pending tool calls in one request.
// The run only continues once every call listed in its required action has an output.
func (c Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (Run, error) {
	request := struct {
		ToolOutputs []ToolOutput `json:"tool_outputs"`
	}{ToolOutputs: outputs}

	resp, err := httpclient.Post[Run](ctx,
		"/threads/"+threadID+"/runs/"+runID+"/submit_tool_outputs", request, c.options...,
	)
	if err != nil {
		return Run{}, fmt.Errorf("submit tool outputs: %w", err)
	}

	return resp, nil
}

// CancelRun asks the server to cancel the run. The run moves to cancelling and then cancelled.
func (c Client) CancelRun(ctx context.Context, threadID, runID string) (Run, error) {
	resp, err := httpclient.Post[Run](ctx, "/threads/"+threadID+"/runs/"+runID+"/cancel", nil, c.options...)
	if err != nil {
		return Run{}, fmt.Errorf("cancel run: %w", err)
	}

	return resp, nil
}

// ListRunSteps returns every step of the run, oldest first, following the pagination cursor.
func (c Client) ListRunSteps(ctx context.Context, threadID, runID string) ([]RunStep, error) {
	var (
		steps []RunStep
		after string
	)
	for {
		resp, err := httpclient.Get[list[RunStep]](ctx, "/threads/"+threadID+"/runs/"+runID+"/steps",
			c.with(
				httpclient.WithQuery("order", "asc"),
				httpclient.WithQuery("limit", strconv.Itoa(listPageSize)),
				httpclient.WithQuery("after", after),
			)...,
		)
		if err != nil {
			return nil, fmt.Errorf("list run steps: %w", err)
		}
		steps = append(steps, resp.Data...)

		if !resp.HasMore || resp.LastID == "" {
			return steps, nil
		}
		after = resp.LastID
	}
}
