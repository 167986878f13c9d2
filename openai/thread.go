// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package openai

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ktong/lpassistant/openai/httpclient"
)

func (c Client) CreateThread(ctx context.Context, messages ...MessageRequest) (Thread, error) {
	resp, err := httpclient.Post[Thread](ctx, "/threads", Thread{Messages: messages}, c.options...)
	if err != nil {
		return Thread{}, fmt.Errorf("create thread: %w", err)
	}

	return resp, nil
}

func (c Client) RetrieveThread(ctx context.Context, id string) (Thread, error) {
	resp, err := httpclient.Get[Thread](ctx, "/threads/"+id, c.options...)
	if err != nil {
		return Thread{}, fmt.Errorf("retrieve thread: %w", err)
	}

	return resp, nil
}

func (c Client) CreateMessage(ctx context.Context, threadID string, msg MessageRequest) (Message, error) {
	resp, err := httpclient.Post[Message](ctx, "/threads/"+threadID+"/messages", msg, c.options...)
	if err != nil {
		return Message{}, fmt.Errorf("create message: %w", err)
	}

	return resp, nil
}

// ListMessagesParams narrows ListMessages. Zero values are omitted from the request.
type ListMessagesParams struct {
	Limit int
	// Order is "asc" or "desc" by creation time; the API defaults to "desc".
	Order string
	RunID string
}

func (c Client) ListMessages(ctx context.Context, threadID string, params ListMessagesParams) ([]Message, error) {
	opts := c.with(
		httpclient.WithQuery("order", params.Order),
		httpclient.WithQuery("run_id", params.RunID),
	)
	if params.Limit > 0 {
		opts = append(opts, httpclient.WithQuery("limit", strconv.Itoa(params.Limit)))
	}

	resp, err := httpclient.Get[list[Message]](ctx, "/threads/"+threadID+"/messages", opts...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	return resp.Data, nil
}
