// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Package chat serves the assistant as a JSON API.
//
// Routes:
//
//	GET  /health    liveness
//	POST /api/chat  {"session_id"?: string, "message": string} -> {"session_id", "answer"}
//
// A session id is minted on the first message and maps to one provider thread.
// Messages of the same session are answered one at a time.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ktong/lpassistant"
)

const maxBodyBytes = 64 << 10

type (
	// Conversation is the part of *lpassistant.Session used to answer a message.
	Conversation interface {
		EnsureThread(ctx context.Context) error
		ThreadID() string
		Ask(ctx context.Context, query string) (lpassistant.Answer, error)
	}

	// SessionFactory returns a conversation on the given thread, or on a new thread if threadID is empty.
	SessionFactory func(threadID string) Conversation

	Request struct {
		SessionID string `json:"session_id,omitempty"`
		Message   string `json:"message"`
	}
	Response struct {
		SessionID string `json:"session_id"`
		Answer    string `json:"answer"`
	}
)

type Handler struct {
	sessions SessionFactory
	threads  ThreadStore
	locks    sessionLocks
	logger   zerolog.Logger
}

func NewHandler(sessions SessionFactory, threads ThreadStore, logger zerolog.Logger) *Handler {
	return &Handler{sessions: sessions, threads: threads, logger: logger}
}

// RegisterRoutes mounts the chat routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/api/chat", h.chat)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "lpassistant"})
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")

		return
	}

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")

		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")

		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx := r.Context()
	logger := h.logger.With().Str("session_id", req.SessionID).Logger()

	unlock, err := h.locks.lock(ctx, req.SessionID)
	if err != nil {
		// The client is gone or gave up waiting behind an earlier ask.
		logger.Warn().Err(err).Msg("session busy")
		writeError(w, http.StatusServiceUnavailable, "session busy")

		return
	}
	defer unlock()

	threadID, _, err := h.threads.Thread(ctx, req.SessionID)
	if err != nil {
		logger.Error().Err(err).Msg("load thread failed")
		writeError(w, http.StatusInternalServerError, "session store unavailable")

		return
	}

	conversation := h.sessions(threadID)
	if err := conversation.EnsureThread(ctx); err != nil {
		logger.Error().Err(err).Msg("ensure thread failed")
		writeError(w, http.StatusBadGateway, "assistant unavailable")

		return
	}
	// Refreshes the TTL as well as recording a new thread.
	if err := h.threads.SetThread(ctx, req.SessionID, conversation.ThreadID()); err != nil {
		logger.Error().Err(err).Msg("save thread failed")
		writeError(w, http.StatusInternalServerError, "session store unavailable")

		return
	}

	answer, err := conversation.Ask(ctx, req.Message)
	if err != nil {
		status := statusOf(err)
		logger.Error().Err(err).Str("thread_id", conversation.ThreadID()).Int("status", status).Msg("ask failed")
		writeError(w, status, http.StatusText(status))

		return
	}
	logger.Info().Str("thread_id", answer.ThreadID).Str("run_id", answer.RunID).Msg("answered")

	writeJSON(w, http.StatusOK, Response{SessionID: req.SessionID, Answer: answer.Text})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, lpassistant.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, lpassistant.ErrUnknownTool), errors.Is(err, lpassistant.ErrInvalidArguments):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
