// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package lpassistant

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ktong/lpassistant/openai"
)

// Answer is the final message of a completed run.
type Answer struct {
	ThreadID  string
	RunID     string
	MessageID string
	Text      string
}

// Matches file search citation markers such as 【4:0†active_positions.json】.
var citation = regexp.MustCompile(`【.*?】`)

// StripCitations removes file search citation markers from text.
func StripCitations(text string) string {
	return strings.TrimSpace(citation.ReplaceAllString(text, ""))
}

func (s *Session) answer(ctx context.Context) (Answer, error) {
	messages, err := s.client.ListMessages(ctx, s.threadID, openai.ListMessagesParams{
		Limit: 1,
		Order: "desc",
		RunID: s.run.ID,
	})
	if err != nil {
		return Answer{}, fmt.Errorf("read answer: %w", err)
	}
	if len(messages) == 0 {
		return Answer{}, fmt.Errorf("run %s: %w", s.run.ID, ErrNoAnswer)
	}

	message := messages[0]

	return Answer{
		ThreadID:  s.threadID,
		RunID:     s.run.ID,
		MessageID: message.ID,
		Text:      StripCitations(message.Text()),
	}, nil
}
