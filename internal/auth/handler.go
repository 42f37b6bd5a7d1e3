package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xdpzq/centralgpt/internal/version"
	"go.uber.org/zap"
)

// Pinger reports whether the backing database is reachable.
type Pinger func(ctx context.Context) error

// Handler provides HTTP handlers for authentication and user management.
type Handler struct {
	service *Service
	ping    Pinger
	logger  *zap.Logger
}

// NewHandler creates an auth Handler. ping may be nil.
func NewHandler(service *Service, ping Pinger, logger *zap.Logger) *Handler {
	return &Handler{service: service, ping: ping, logger: logger}
}

// RegisterRoutes registers auth-related routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Public.
	mux.HandleFunc("POST /api/v1/auth/login", h.handleLogin)
	mux.HandleFunc("POST /api/v1/auth/refresh", h.handleRefresh)
	mux.HandleFunc("POST /api/v1/auth/logout", h.handleLogout)
	mux.HandleFunc("GET /api/v1/auth/status", h.handleStatus)

	mux.HandleFunc("GET /api/v1/auth/me", h.handleMe)

	// Admin console.
	mux.HandleFunc("GET /api/v1/users", h.handleListUsers)
	mux.HandleFunc("POST /api/v1/users", h.handleCreateUser)
	mux.HandleFunc("GET /api/v1/users/{id}", h.handleGetUser)
	mux.HandleFunc("PATCH /api/v1/users/{id}", h.handleUpdateUser)
	mux.HandleFunc("DELETE /api/v1/users/{id}", h.handleDeleteUser)
	mux.HandleFunc("POST /api/v1/users/{id}/key", h.handleRegenerateKey)
}

// Middleware returns the JWT authentication middleware.
func (h *Handler) Middleware() func(http.Handler) http.Handler {
	return AuthMiddleware(h.service.Tokens())
}

// handleLogin exchanges an access key for a session.
//
//	@Summary		Login
//	@Description	Exchange a user access key (CGPT-XXXX-XXXX) or the admin key for a JWT token pair.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		LoginRequest	true	"Access key"
//	@Success		200		{object}	Session
//	@Failure		400		{object}	ProblemDetail
//	@Failure		401		{object}	ProblemDetail
//	@Router			/auth/login [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AccessKey == "" {
		writeAuthError(w, http.StatusBadRequest, "access_key is required")
		return
	}

	sess, err := h.service.Login(r.Context(), req.AccessKey)
	if err != nil {
		if errors.Is(err, ErrInvalidKey) || errors.Is(err, ErrUserDisabled) {
			writeAuthError(w, http.StatusUnauthorized, "invalid or revoked access key")
			return
		}
		h.logger.Error("login error", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// handleRefresh rotates a refresh token.
//
//	@Summary		Refresh tokens
//	@Description	Exchange a valid refresh token for a new token pair (token rotation).
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	Session
//	@Failure		400		{object}	ProblemDetail
//	@Failure		401		{object}	ProblemDetail
//	@Router			/auth/refresh [post]
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeAuthError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	sess, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrUserDisabled) {
			writeAuthError(w, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}
		h.logger.Error("refresh error", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "token refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, sess)
}

// handleLogout revokes a refresh token.
//
//	@Summary		Logout
//	@Tags			auth
//	@Accept			json
//	@Param			request	body	RefreshRequest	true	"Refresh token to revoke"
//	@Success		204		"No Content"
//	@Failure		400		{object}	ProblemDetail
//	@Router			/auth/logout [post]
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RefreshToken == "" {
		writeAuthError(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		h.logger.Error("logout error", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "logout failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleStatus reports whether the backend can serve logins.
//
//	@Summary		Connection status
//	@Description	Reports database reachability and the server version. Shown on the login screen.
//	@Tags			auth
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Failure		503	{object}	StatusResponse
//	@Router			/auth/status [get]
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Database: "connected", Version: version.Short()}
	status := http.StatusOK
	if h.ping != nil {
		if err := h.ping(r.Context()); err != nil {
			h.logger.Warn("status check failed", zap.Error(err))
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}

// handleMe returns the current principal.
//
//	@Summary		Current principal
//	@Tags			auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	Principal
//	@Failure		401	{object}	ProblemDetail
//	@Router			/auth/me [get]
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := UserFromContext(r.Context())
	if claims == nil {
		writeAuthError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	p, err := h.service.Principal(r.Context(), claims)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrUserDisabled) {
			writeAuthError(w, http.StatusUnauthorized, "session no longer valid")
			return
		}
		h.logger.Error("resolve principal", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleListUsers returns all users.
//
//	@Summary		List users
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{array}		User
//	@Failure		401	{object}	ProblemDetail
//	@Failure		403	{object}	ProblemDetail
//	@Router			/users [get]
func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !RequireAdmin(w, r) {
		return
	}

	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users error", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// handleCreateUser creates an agent and returns its access key once.
//
//	@Summary		Create user
//	@Description	Create a chat agent. The generated access key is only returned in this response.
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		CreateUserRequest	true	"New agent"
//	@Success		201		{object}	CreateUserResponse
//	@Failure		400		{object}	ProblemDetail
//	@Failure		409		{object}	ProblemDetail
//	@Router			/users [post]
func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	if !RequireAdmin(w, r) {
		return
	}

	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := ValidateUsername(req.Username); err != nil {
		writeAuthError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, key, err := h.service.CreateUser(r.Context(), req.Username, req.AIName, req.DevName)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			writeAuthError(w, http.StatusConflict, "username already exists")
			return
		}
		h.logger.Error("create user error", zap.Error(err))
		writeAuthError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	writeJSON(w, http.StatusCreated, CreateUserResponse{User: *user, AccessKey: key})
}

// handleGetUser returns a user by ID.
//
//	@Summary		Get user
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	User
//	@Failure		404	{object}	ProblemDetail
//	@Router			/users/{id} [get]
func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if !RequireAdmin(w, r) {
		return
	}

	user, err := h.service.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeUserError(w, "get user", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser edits a user's persona or disabled flag.
//
//	@Summary		Update user
//	@Tags			users
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		string		true	"User ID"
//	@Param			request	body		UserUpdate	true	"Fields to change"
//	@Success		200		{object}	User
//	@Failure		400		{object}	ProblemDetail
//	@Failure		404		{object}	ProblemDetail
//	@Router			/users/{id} [patch]
func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	if !RequireAdmin(w, r) {
		return
	}

	var req UserUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAuthError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.UpdateUser(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeUserError(w, "update user", err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes a user by ID.
//
//	@Summary		Delete user
//	@Tags			users
//	@Security		BearerAuth
//	@Param			id	path	string	true	"User ID"
//	@Success		204	"No Content"
//	@Failure		404	{object}	ProblemDetail
//	@Router			/users/{id} [delete]
func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if !RequireAdmin(w, r) {
		return
	}

	if err := h.service.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		h.writeUserError(w, "delete user", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleRegenerateKey replaces a user's access key.
//
//	@Summary		Regenerate access key
//	@Tags			users
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	AccessKeyResponse
//	@Failure		404	{object}	ProblemDetail
//	@Router			/users/{id}/key [post]
func (h *Handler) handleRegenerateKey(w http.ResponseWriter, r *http.Request) {
	if !RequireAdmin(w, r) {
		return
	}

	key, err := h.service.RegenerateKey(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeUserError(w, "regenerate key", err)
		return
	}

	writeJSON(w, http.StatusOK, AccessKeyResponse{AccessKey: key})
}

func (h *Handler) writeUserError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrUserNotFound) {
		writeAuthError(w, http.StatusNotFound, "user not found")
		return
	}
	h.logger.Error(op+" error", zap.Error(err))
	writeAuthError(w, http.StatusInternalServerError, "failed to "+op)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAuthError writes an RFC 7807 problem response.
func writeAuthError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ProblemDetail{
		Type:   "https://centralgpt.dev/problems/auth-error",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
