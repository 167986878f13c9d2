// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package lpassistant

import (
	"context"
	"errors"
	"fmt"

	"github.com/ktong/lpassistant/openai"
	"github.com/ktong/lpassistant/openai/httpclient"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// EnsureThread loads the configured thread.
// If no id is configured or the thread does not exist anymore, a new thread is created.
//
// It's suggested that save the thread id in the users' session and pass it
// back with WithThreadID for the following questions of the same conversation.
func (s *Session) EnsureThread(ctx context.Context) error {
	if s.threadID != "" {
		_, err := s.client.RetrieveThread(ctx, s.threadID)
		switch {
		case err == nil:
			return nil
		case !httpclient.IsNotFound(err):
			return fmt.Errorf("load thread: %w", err)
		}
		s.logger.Warn().Str("thread_id", s.threadID).Msg("thread not found, creating a new one")
	}

	thread, err := s.client.CreateThread(ctx)
	if err != nil {
		return fmt.Errorf("create thread: %w", err)
	}
	s.threadID = thread.ID
	s.logger.Debug().Str("thread_id", thread.ID).Msg("thread created")

	return nil
}

// AddMessage appends a message to the thread.
func (s *Session) AddMessage(ctx context.Context, role, text string) error {
	if s.threadID == "" {
		return errors.New("add message: no thread") //nolint:err113
	}

	if _, err := s.client.CreateMessage(ctx, s.threadID, openai.MessageRequest{Role: role, Content: text}); err != nil {
		return fmt.Errorf("add message: %w", err)
	}

	return nil
}
