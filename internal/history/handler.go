package history

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/xdpzq/centralgpt/internal/auth"
	"go.uber.org/zap"
)

// Handler serves chat history endpoints.
type Handler struct {
	store  *Store
	limit  int
	logger *zap.Logger
}

// NewHandler creates a history Handler returning at most limit entries.
func NewHandler(store *Store, limit int, logger *zap.Logger) *Handler {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Handler{store: store, limit: limit, logger: logger}
}

// RegisterRoutes registers history routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/history", h.handleOwnHistory)
	mux.HandleFunc("GET /api/v1/history/{username}", h.handleUserHistory)
}

// handleOwnHistory returns the caller's recent exchanges.
//
//	@Summary		Own chat history
//	@Description	The caller's most recent exchanges, oldest first.
//	@Tags			history
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query		int	false	"Maximum entries (default 50)"
//	@Success		200		{array}		Entry
//	@Failure		401		{object}	auth.ProblemDetail
//	@Failure		403		{object}	auth.ProblemDetail
//	@Router			/history [get]
func (h *Handler) handleOwnHistory(w http.ResponseWriter, r *http.Request) {
	claims := auth.RequireUser(w, r)
	if claims == nil {
		return
	}
	h.list(w, r, claims.Username)
}

// handleUserHistory returns any user's recent exchanges.
//
//	@Summary		User chat history
//	@Tags			history
//	@Produce		json
//	@Security		BearerAuth
//	@Param			username	path		string	true	"Username"
//	@Param			limit		query		int		false	"Maximum entries (default 50)"
//	@Success		200			{array}		Entry
//	@Failure		403			{object}	auth.ProblemDetail
//	@Router			/history/{username} [get]
func (h *Handler) handleUserHistory(w http.ResponseWriter, r *http.Request) {
	if !auth.RequireAdmin(w, r) {
		return
	}
	h.list(w, r, r.PathValue("username"))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, username string) {
	limit := h.limit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, h.limit)
	}

	entries, err := h.store.ListForUser(r.Context(), username, limit)
	if err != nil {
		h.logger.Error("failed to list history", zap.String("username", username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(entries)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://centralgpt.dev/problems/history-error",
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}
