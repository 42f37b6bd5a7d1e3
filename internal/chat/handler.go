package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xdpzq/centralgpt/internal/auth"
	"go.uber.org/zap"
)

// maxBodyBytes bounds a chat request body; inline images dominate it.
const maxBodyBytes = 20 << 20

// Handler serves the chat endpoint.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a chat Handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers chat routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/chat", h.handleChat)
}

// handleChat answers a message.
//
//	@Summary		Send a chat message
//	@Description	Sends a prompt (and optional base64 image) to the model under the caller's persona.
//	@Description	Provider failures are returned as a 200 with failed=true and a "System Failure" response.
//	@Tags			chat
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		Request	true	"Message"
//	@Success		200		{object}	Reply
//	@Failure		400		{object}	auth.ProblemDetail
//	@Failure		401		{object}	auth.ProblemDetail
//	@Failure		403		{object}	auth.ProblemDetail
//	@Failure		503		{object}	auth.ProblemDetail
//	@Router			/chat [post]
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	claims := auth.RequireUser(w, r)
	if claims == nil {
		return
	}

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.service.Send(r.Context(), claims, req)
	if err != nil {
		status, detail := StatusFor(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("chat failed", zap.String("user_id", claims.UserID), zap.Error(err))
		}
		writeError(w, status, detail)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(reply)
}

// StatusFor maps a Send error to an HTTP status and client-facing detail.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMaintenance):
		return http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, ErrImageDisabled), errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMessageTooLarge):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrUserDisabled):
		return http.StatusUnauthorized, "session no longer valid"
	default:
		return http.StatusInternalServerError, "chat failed"
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(auth.ProblemDetail{
		Type:   "https://centralgpt.dev/problems/chat-error",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
