// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package lpassistant_test

import (
	"context"
	"net/http"
	"time"

	"github.com/ktong/lpassistant"
	"github.com/ktong/lpassistant/lookup"
	"github.com/ktong/lpassistant/openai"
	"github.com/ktong/lpassistant/openai/httpclient"
	"github.com/ktong/lpassistant/store"
)

// fakeClient replays a scripted sequence of run polls.
type fakeClient struct {
	assistants map[string]openai.Assistant
	threads    map[string]bool

	created  []openai.Assistant
	modified []openai.Assistant
	added    []openai.MessageRequest
	runs     []openai.RunRequest

	polls     []poll
	polled    int
	submitted [][]openai.ToolOutput
	canceled  []string
	cancelErr error
	messages  []openai.Message
	listed    []openai.ListMessagesParams
	steps     []openai.RunStep
}

type poll struct {
	run openai.Run
	err error
}

func (f *fakeClient) CreateAssistant(_ context.Context, asst openai.Assistant) (openai.Assistant, error) {
	f.created = append(f.created, asst)
	asst.ID = "asst_new"

	return asst, nil
}

func (f *fakeClient) RetrieveAssistant(_ context.Context, id string) (openai.Assistant, error) {
	if asst, ok := f.assistants[id]; ok {
		return asst, nil
	}

	return openai.Assistant{}, notFound
}

func (f *fakeClient) ModifyAssistant(_ context.Context, id string, asst openai.Assistant) (openai.Assistant, error) {
	f.modified = append(f.modified, asst)
	asst.ID = id

	return asst, nil
}

func (f *fakeClient) CreateThread(context.Context, ...openai.MessageRequest) (openai.Thread, error) {
	return openai.Thread{ID: "thread_new"}, nil
}

func (f *fakeClient) RetrieveThread(_ context.Context, id string) (openai.Thread, error) {
	if f.threads[id] {
		return openai.Thread{ID: id}, nil
	}

	return openai.Thread{}, notFound
}

func (f *fakeClient) CreateMessage(_ context.Context, _ string, msg openai.MessageRequest) (openai.Message, error) {
	f.added = append(f.added, msg)

	return openai.Message{ID: "msg_user"}, nil
}

func (f *fakeClient) ListMessages(_ context.Context, _ string, params openai.ListMessagesParams) ([]openai.Message, error) {
	f.listed = append(f.listed, params)

	return f.messages, nil
}

func (f *fakeClient) CreateRun(_ context.Context, threadID string, run openai.RunRequest) (openai.Run, error) {
	f.runs = append(f.runs, run)

	return openai.Run{ID: "run_1", ThreadID: threadID, Status: openai.RunStatusQueued}, nil
}

func (f *fakeClient) RetrieveRun(context.Context, string, string) (openai.Run, error) {
	p := f.polls[min(f.polled, len(f.polls)-1)]
	f.polled++

	return p.run, p.err
}

func (f *fakeClient) SubmitToolOutputs(_ context.Context, _, runID string, outputs []openai.ToolOutput) (openai.Run, error) {
	f.submitted = append(f.submitted, outputs)

	return openai.Run{ID: runID, Status: openai.RunStatusQueued}, nil
}

func (f *fakeClient) CancelRun(ctx context.Context, _, runID string) (openai.Run, error) {
	if ctx.Err() != nil {
		return openai.Run{}, ctx.Err()
	}
	f.canceled = append(f.canceled, runID)

	return openai.Run{ID: runID, Status: openai.RunStatusCancelling}, f.cancelErr
}

func (f *fakeClient) ListRunSteps(context.Context, string, string) ([]openai.RunStep, error) {
	return f.steps, nil
}

var notFound = &httpclient.StatusError{Code: http.StatusNotFound, Message: "not found"} //nolint:gochecknoglobals

// fakeLookups records the ids it was asked for.
type fakeLookups struct {
	locations []string
	positions []string
	err       error
}

func (f *fakeLookups) Location(_ context.Context, id string) (lookup.Result, error) {
	f.locations = append(f.locations, id)
	if f.err != nil {
		return lookup.Result{}, f.err
	}

	return lookup.Result{
		Kind:   lookup.KindLocation,
		ID:     id,
		Record: store.Record{{Name: "name", Value: "Downtown"}},
		Found:  true,
	}, nil
}

func (f *fakeLookups) Position(_ context.Context, id string) (lookup.Result, error) {
	f.positions = append(f.positions, id)
	if f.err != nil {
		return lookup.Result{}, f.err
	}

	return lookup.Absent(lookup.KindPosition, id), nil
}

func fastPolicy() lpassistant.PollPolicy {
	return lpassistant.PollPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Multiplier:      1,
		Timeout:         time.Second,
	}
}

func toolCall(id, name, arguments string) openai.ToolCall {
	var call openai.ToolCall
	call.ID = id
	call.Type = "function"
	call.Function.Name = name
	call.Function.Arguments = arguments

	return call
}

func requiresAction(calls ...openai.ToolCall) openai.Run {
	run := openai.Run{ID: "run_1", Status: openai.RunStatusRequiresAction, RequiredAction: &openai.RequiredAction{Type: "submit_tool_outputs"}}
	run.RequiredAction.SubmitToolOutputs.ToolCalls = calls

	return run
}

func status(s string) poll {
	return poll{run: openai.Run{ID: "run_1", Status: s}}
}

func textMessage(id, text string) openai.Message {
	return openai.Message{
		ID:   id,
		Role: "assistant",
		Content: []openai.MessageContent{
			{Type: "text", Text: &openai.MessageText{Value: text}},
		},
	}
}
