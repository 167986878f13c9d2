// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package lpassistant

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/ktong/lpassistant/openai"
	"github.com/ktong/lpassistant/openai/httpclient"
)

// Definition describes the assistant created on the server when no assistant id is configured.
type Definition struct {
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	Model        string `yaml:"model"`
	Instructions string `yaml:"instructions"`
	// RunInstructions are passed to each run unless WithInstructions overrides them.
	RunInstructions string `yaml:"run_instructions"`
	// Prompt wraps the user query before it is added to the thread.
	// It must hold exactly one %s and no other verb; an empty Prompt sends the query as is.
	Prompt string `yaml:"prompt"`
}

// Validate reports whether Prompt can format a query.
func (d Definition) Validate() error {
	if d.Prompt == "" {
		return nil
	}
	verbs := strings.Count(strings.ReplaceAll(d.Prompt, "%%", ""), "%")
	if verbs != 1 || strings.Count(strings.ReplaceAll(d.Prompt, "%%", ""), "%s") != 1 {
		return errors.New("prompt must contain exactly one %s placeholder and no other verb")
	}

	return nil
}

// FormatPrompt wraps query in Prompt. Call Validate first for prompts from outside the program.
func (d Definition) FormatPrompt(query string) string {
	if d.Prompt == "" {
		return query
	}

	return fmt.Sprintf(d.Prompt, query)
}

// DefaultDefinition is the locations and positions assistant with both lookup tools.
func DefaultDefinition() Definition {
	return Definition{
		Name:  "L&P Assistant",
		Model: "gpt-4o",
		Instructions: "You are a helpful assistant. " +
			"If you are asked about a location, use the id of the location with the provided " + ToolLocation +
			" function to get the information about the location, then answer the user's question with that data exclusively. " +
			"If you are asked about a position, use the id of the position with the provided " + ToolPosition +
			" function to get the information about the position, then answer the user's question with that data exclusively.",
		RunInstructions: "Summarize the details",
		Prompt:          "Summarize the details based on the query and the id: %s",
	}
}

// EnsureAssistant loads the configured assistant.
// If no id is configured or the assistant does not exist anymore,
// a new assistant is created from def with the lookup tools.
func (s *Session) EnsureAssistant(ctx context.Context, def Definition) error {
	if s.instructions == "" {
		s.instructions = def.RunInstructions
	}

	if s.assistantID != "" {
		asst, err := s.client.RetrieveAssistant(ctx, s.assistantID)
		switch {
		case err == nil:
			s.assistant = asst
			s.logger.Debug().Str("assistant_id", asst.ID).Msg("assistant loaded")

			return nil
		case !httpclient.IsNotFound(err):
			return fmt.Errorf("load assistant: %w", err)
		}
		s.logger.Warn().Str("assistant_id", s.assistantID).Msg("assistant not found, creating a new one")
	}

	tools, err := lookupTools()
	if err != nil {
		return err
	}
	model := def.Model
	if s.model != "" {
		model = s.model
	}
	asst, err := s.client.CreateAssistant(ctx, openai.Assistant{
		Name:         def.Name,
		Description:  def.Description,
		Model:        model,
		Instructions: def.Instructions,
		Tools:        tools,
	})
	if err != nil {
		return fmt.Errorf("create assistant: %w", err)
	}
	s.assistant = asst
	s.assistantID = asst.ID
	s.logger.Info().Str("assistant_id", asst.ID).Str("name", asst.Name).Msg("assistant created")

	return nil
}

// AttachVectorStore lets the assistant search the files of the vector store.
// The file_search tool is added next to the existing tools of the assistant,
// so the assistant must be loaded with EnsureAssistant first.
func (s *Session) AttachVectorStore(ctx context.Context, storeID string) error {
	if s.assistant.ID == "" {
		return fmt.Errorf("attach vector store %s: no assistant loaded", storeID) //nolint:err113
	}

	tools := s.assistant.Tools
	if !slices.ContainsFunc(tools, func(tool openai.Tool) bool { return tool.Type == toolTypeFileSearch }) {
		tools = append(slices.Clone(tools), openai.Tool{Type: toolTypeFileSearch})
	}

	asst, err := s.client.ModifyAssistant(ctx, s.assistantID, openai.Assistant{
		Tools:         tools,
		ToolResources: &openai.ToolResources{FileSearch: &openai.FileSearchResources{VectorStoreIDs: []string{storeID}}},
	})
	if err != nil {
		return fmt.Errorf("attach vector store %s: %w", storeID, err)
	}
	s.assistant = asst
	s.logger.Info().Str("assistant_id", s.assistantID).Str("vector_store_id", storeID).Msg("vector store attached")

	return nil
}
