// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Package openai provides access to the [OpenAI Assistants API] used by the assistant and the index rebuilder.
//
// [OpenAI Assistants API]: https://platform.openai.com/docs/api-reference/assistants
package openai

import (
	"context"
	"fmt"

	"github.com/ktong/lpassistant/openai/httpclient"
)

const DefaultBaseURL = "https://api.openai.com/v1"

// Client is a thin REST client. The zero value is not usable; create it with New.
type Client struct {
	options []httpclient.Option
}

// New creates a Client authenticated with apiKey.
// Options are applied after the defaults, so WithBaseURL overrides DefaultBaseURL.
func New(apiKey string, opts ...httpclient.Option) Client {
	return Client{options: append([]httpclient.Option{
		httpclient.WithBaseURL(DefaultBaseURL),
		httpclient.WithHeader("Authorization", "Bearer "+apiKey),
		httpclient.WithHeader("OpenAI-Beta", "assistants=v2"),
	}, opts...)}
}

func (c Client) with(opts ...httpclient.Option) []httpclient.Option {
	return append(append(make([]httpclient.Option, 0, len(c.options)+len(opts)), c.options...), opts...)
}

func (c Client) CreateAssistant(ctx context.Context, asst Assistant) (Assistant, error) {
	if asst.Model == "" {
		asst.Model = "gpt-4o"
	}

	resp, err := httpclient.Post[Assistant](ctx, "/assistants", asst, c.options...)
	if err != nil {
		return Assistant{}, fmt.Errorf("create assistant: %w", err)
	}

	return resp, nil
}

func (c Client) RetrieveAssistant(ctx context.Context, id string) (Assistant, error) {
	resp, err := httpclient.Get[Assistant](ctx, "/assistants/"+id, c.options...)
	if err != nil {
		return Assistant{}, fmt.Errorf("retrieve assistant: %w", err)
	}

	return resp, nil
}

// ModifyAssistant updates the non-empty fields of asst on the assistant with the given id.
func (c Client) ModifyAssistant(ctx context.Context, id string, asst Assistant) (Assistant, error) {
	asst.ID = ""

	resp, err := httpclient.Post[Assistant](ctx, "/assistants/"+id, asst, c.options...)
	if err != nil {
		return Assistant{}, fmt.Errorf("modify assistant: %w", err)
	}

	return resp, nil
}

func (c Client) DeleteAssistant(ctx context.Context, id string) error {
	if err := httpclient.Delete(ctx, "/assistants/"+id, c.options...); err != nil {
		// Ignore 404 for deleting.
		if !httpclient.IsNotFound(err) {
			return fmt.Errorf("delete assistant: %w", err)
		}
	}

	return nil
}
