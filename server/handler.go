// Package server is the HTTP binding of the chat orchestrator: request
// parsing, the error-to-status mapping, and response shaping live here and
// nowhere else.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	contractx "github.com/pattarawit/amort-mortgage-advisor/agent/contract"
	statex "github.com/pattarawit/amort-mortgage-advisor/agent/state"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

// ChatService is the orchestrator surface the transport depends on.
type ChatService interface {
	HandleTurn(ctx context.Context, req contractx.ChatRequest) (contractx.ChatResult, error)
}

type Handler struct {
	chat ChatService
}

func NewHandler(chat ChatService) *Handler {
	return &Handler{chat: chat}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	var req contractx.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "request body is required")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	result, err := h.chat.HandleTurn(r.Context(), req)
	if err != nil {
		status := statusForError(err)
		hlog.FromRequest(r).Error().
			Err(err).
			Str("session_id", req.SessionID).
			Int("status", status).
			Msg("chat turn failed")
		if status >= http.StatusInternalServerError {
			writeError(w, status, "internal server error")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	w.Header().Set("x-session-id", result.SessionID)
	writeJSON(w, http.StatusOK, result)
}

// statusForError is the single place typed errors become status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, contractx.ErrValidation),
		errors.Is(err, contractx.ErrNoPendingApproval),
		errors.Is(err, statex.ErrInvalidSession):
		return http.StatusBadRequest
	case errors.Is(err, statex.ErrSessionNotFound):
		return http.StatusNotFound
	default:
		// ErrModelInvoke, ErrEmptyModelReply, store failures, unknowns
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
