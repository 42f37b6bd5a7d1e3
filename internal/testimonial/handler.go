package testimonial

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/xdpzq/centralgpt/internal/auth"
	"go.uber.org/zap"
)

// maxBodyBytes bounds a create request; the optional image dominates it.
const maxBodyBytes = 10 << 20

// CreateRequest is the request body for POST /testimonials.
type CreateRequest struct {
	Text      string `json:"text" example:"Best assistant on the network."`
	ImageData string `json:"image_data,omitempty" example:"data:image/png;base64,iVBORw0KGgo..."`
}

// Handler serves testimonial endpoints.
type Handler struct {
	store  *Store
	logger *zap.Logger
}

// NewHandler creates a testimonial Handler.
func NewHandler(store *Store, logger *zap.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes registers testimonial routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/testimonials", h.handleList)
	mux.HandleFunc("POST /api/v1/testimonials", h.handleCreate)
	mux.HandleFunc("DELETE /api/v1/testimonials/{id}", h.handleDelete)
}

// handleList returns every testimonial.
//
//	@Summary		List testimonials
//	@Tags			testimonials
//	@Produce		json
//	@Success		200	{array}	Testimonial
//	@Router			/testimonials [get]
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list testimonials", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list testimonials")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleCreate adds a testimonial.
//
//	@Summary		Create testimonial
//	@Tags			testimonials
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateRequest	true	"Testimonial"
//	@Success		201		{object}	Testimonial
//	@Failure		400		{object}	auth.ProblemDetail
//	@Failure		403		{object}	auth.ProblemDetail
//	@Router			/testimonials [post]
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !auth.RequireAdmin(w, r) {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	t, err := h.store.Create(r.Context(), text, strings.TrimSpace(req.ImageData))
	if err != nil {
		h.logger.Error("failed to create testimonial", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create testimonial")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleDelete removes a testimonial.
//
//	@Summary		Delete testimonial
//	@Tags			testimonials
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Testimonial ID"
//	@Success		204	"No Content"
//	@Failure		404	{object}	auth.ProblemDetail
//	@Router			/testimonials/{id} [delete]
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !auth.RequireAdmin(w, r) {
		return
	}

	if err := h.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to delete testimonial", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete testimonial")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(auth.ProblemDetail{
		Type:   "https://centralgpt.dev/problems/testimonial-error",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
