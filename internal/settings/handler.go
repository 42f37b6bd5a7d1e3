// Package settings stores the operator-controlled application configuration
// (maintenance mode, feature flags, the Gemini credential pool) and serves
// the admin settings endpoints.
package settings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/xdpzq/centralgpt/internal/auth"
	"go.uber.org/zap"
)

// AddKeyRequest is the request body for POST /settings/keys.
// @Description Request body for adding a Gemini API key to the pool.
type AddKeyRequest struct {
	Key string `json:"key" example:"AIzaSyA1b2C3d4E5f6G7h8I9j0KlMnOpXk9zQw"`
}

// SettingsProblemDetail represents an RFC 7807 error response for settings endpoints.
// @Description RFC 7807 Problem Details error response.
type SettingsProblemDetail struct {
	Type   string `json:"type" example:"https://centralgpt.dev/problems/settings-error"`
	Title  string `json:"title" example:"Bad Request"`
	Status int    `json:"status" example:"400"`
	Detail string `json:"detail" example:"credential must not be empty"`
}

// Handler provides HTTP handlers for settings endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a settings Handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers settings-related routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Public
	mux.HandleFunc("GET /api/v1/settings/features", h.handleGetFeatures)

	// Admin
	mux.HandleFunc("GET /api/v1/settings/app", h.handleGetAppConfig)
	mux.HandleFunc("PATCH /api/v1/settings/app", h.handleUpdateFlags)
	mux.HandleFunc("POST /api/v1/settings/keys", h.handleAddKey)
	mux.HandleFunc("DELETE /api/v1/settings/keys/{index}", h.handleRemoveKey)
}

// handleGetFeatures returns the public feature flags.
//
//	@Summary		Get feature flags
//	@Description	Maintenance mode and feature toggles, readable without a session.
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	Features
//	@Router			/settings/features [get]
func (h *Handler) handleGetFeatures(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Features())
}

// handleGetAppConfig returns the full configuration with masked credentials.
//
//	@Summary		Get app config
//	@Tags			settings
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	AppConfigView
//	@Failure		401	{object}	SettingsProblemDetail
//	@Failure		403	{object}	SettingsProblemDetail
//	@Router			/settings/app [get]
func (h *Handler) handleGetAppConfig(w http.ResponseWriter, r *http.Request) {
	if !auth.RequireAdmin(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, h.service.View())
}

// handleUpdateFlags toggles maintenance mode or feature flags.
//
//	@Summary		Update feature flags
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		FlagsUpdate	true	"Flags to change"
//	@Success		200		{object}	AppConfigView
//	@Failure		400		{object}	SettingsProblemDetail
//	@Router			/settings/app [patch]
func (h *Handler) handleUpdateFlags(w http.ResponseWriter, r *http.Request) {
	if !auth.RequireAdmin(w, r) {
		return
	}

	var req FlagsUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSettingsError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.service.UpdateFlags(r.Context(), req); err != nil {
		h.logger.Error("failed to update flags", zap.Error(err))
		writeSettingsError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, h.service.View())
}

// handleAddKey appends a Gemini credential to the pool.
//
//	@Summary		Add API key
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		AddKeyRequest	true	"Credential"
//	@Success		201		{object}	AppConfigView
//	@Failure		400		{object}	SettingsProblemDetail
//	@Failure		409		{object}	SettingsProblemDetail
//	@Router			/settings/keys [post]
func (h *Handler) handleAddKey(w http.ResponseWriter, r *http.Request) {
	if !auth.RequireAdmin(w, r) {
		return
	}

	var req AddKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeSettingsError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if _, err := h.service.AddKey(r.Context(), req.Key); err != nil {
		switch {
		case errors.Is(err, ErrEmptyKey):
			writeSettingsError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrDuplicateKey):
			writeSettingsError(w, http.StatusConflict, err.Error())
		default:
			h.logger.Error("failed to add key", zap.Error(err))
			writeSettingsError(w, http.StatusInternalServerError, "failed to save settings")
		}
		return
	}
	writeJSON(w, http.StatusCreated, h.service.View())
}

// handleRemoveKey deletes a credential by its position in the list.
//
//	@Summary		Remove API key
//	@Tags			settings
//	@Produce		json
//	@Security		BearerAuth
//	@Param			index	path		int	true	"Position in gemini_keys"
//	@Success		200		{object}	AppConfigView
//	@Failure		404		{object}	SettingsProblemDetail
//	@Router			/settings/keys/{index} [delete]
func (h *Handler) handleRemoveKey(w http.ResponseWriter, r *http.Request) {
	if !auth.RequireAdmin(w, r) {
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeSettingsError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	if _, err := h.service.RemoveKey(r.Context(), index); err != nil {
		if errors.Is(err, ErrKeyIndex) {
			writeSettingsError(w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("failed to remove key", zap.Error(err))
		writeSettingsError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	writeJSON(w, http.StatusOK, h.service.View())
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSettingsError writes an RFC 7807 problem response.
func writeSettingsError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SettingsProblemDetail{
		Type:   "https://centralgpt.dev/problems/settings-error",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
