// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package openai

type (
	Function struct {
		Name        string `json:"name"`
		Description string `json:"description,omitempty"`
		Parameters  any    `json:"parameters,omitempty"`
		Strict      bool   `json:"strict,omitempty"`
	}
	Tool struct {
		Type     string    `json:"type"`
		Function *Function `json:"function,omitempty"`
	}

	// ToolResources references the files a built-in tool works on.
	ToolResources struct {
		FileSearch *FileSearchResources `json:"file_search,omitempty"`
	}
	FileSearchResources struct {
		VectorStoreIDs []string `json:"vector_store_ids"`
	}

	Assistant struct {
		ID            string         `json:"id,omitempty"`
		Name          string         `json:"name,omitempty"`
		Description   string         `json:"description,omitempty"`
		Model         string         `json:"model,omitempty"`
		Instructions  string         `json:"instructions,omitempty"`
		Tools         []Tool         `json:"tools,omitempty"`
		ToolResources *ToolResources `json:"tool_resources,omitempty"`
	}

	Thread struct {
		ID       string           `json:"id,omitempty"`
		Messages []MessageRequest `json:"messages,omitempty"`
	}

	MessageRequest struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	Message struct {
		ID        string           `json:"id"`
		ThreadID  string           `json:"thread_id"`
		RunID     string           `json:"run_id,omitempty"`
		Role      string           `json:"role"`
		CreatedAt int64            `json:"created_at"`
		Content   []MessageContent `json:"content"`
	}
	MessageContent struct {
		Type string       `json:"type"`
		Text *MessageText `json:"text,omitempty"`
	}
	MessageText struct {
		Value       string       `json:"value"`
		Annotations []Annotation `json:"annotations,omitempty"`
	}
	// Annotation marks a citation inside a text value, e.g. a file_citation from file search.
	Annotation struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StartIndex int    `json:"start_index"`
		EndIndex   int    `json:"end_index"`
	}

	RunRequest struct {
		AssistantID            string `json:"assistant_id"`
		Model                  string `json:"model,omitempty"`
		Instructions           string `json:"instructions,omitempty"`
		AdditionalInstructions string `json:"additional_instructions,omitempty"`
		Tools                  []Tool `json:"tools,omitempty"`
	}
	Run struct {
		ID                string             `json:"id"`
		ThreadID          string             `json:"thread_id"`
		AssistantID       string             `json:"assistant_id"`
		Status            string             `json:"status"`
		RequiredAction    *RequiredAction    `json:"required_action,omitempty"`
		LastError         *RunLastError      `json:"last_error,omitempty"`
		IncompleteDetails *IncompleteDetails `json:"incomplete_details,omitempty"`
	}
	RequiredAction struct {
		Type              string `json:"type"`
		SubmitToolOutputs struct {
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"submit_tool_outputs"`
	}
	ToolCall struct {
		ID       string `json:"id"`
		Type     string `json:"type"`
		Function struct {
			Name      string `json:"name"`
			Arguments string `json:"arguments"`
		} `json:"function"`
	}
	ToolOutput struct {
		ToolCallID string `json:"tool_call_id"`
		Output     string `json:"output"`
	}
	IncompleteDetails struct {
		Reason string `json:"reason"`
	}
	RunLastError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}

	RunStep struct {
		ID          string         `json:"id"`
		RunID       string         `json:"run_id"`
		Type        string         `json:"type"`
		Status      string         `json:"status"`
		StepDetails map[string]any `json:"step_details"`
	}

	File struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Bytes    int64  `json:"bytes"`
		Purpose  string `json:"purpose"`
	}

	VectorStore struct {
		ID         string     `json:"id"`
		Name       string     `json:"name"`
		Status     string     `json:"status"`
		FileCounts FileCounts `json:"file_counts"`
	}
	VectorStoreFile struct {
		ID            string `json:"id"`
		VectorStoreID string `json:"vector_store_id"`
		Status        string `json:"status"`
	}
	FileBatch struct {
		ID            string     `json:"id"`
		VectorStoreID string     `json:"vector_store_id"`
		Status        string     `json:"status"`
		FileCounts    FileCounts `json:"file_counts"`
	}
	FileCounts struct {
		InProgress int `json:"in_progress"`
		Completed  int `json:"completed"`
		Failed     int `json:"failed"`
		Cancelled  int `json:"cancelled"`
		Total      int `json:"total"`
	}

	list[T any] struct {
		Data    []T    `json:"data"`
		FirstID string `json:"first_id"`
		LastID  string `json:"last_id"`
		HasMore bool   `json:"has_more"`
	}
)

// Text joins the text parts of the message.
func (m Message) Text() string {
	var text string
	for _, content := range m.Content {
		if content.Type == "text" && content.Text != nil {
			if text != "" {
				text += "\n"
			}
			text += content.Text.Value
		}
	}

	return text
}
