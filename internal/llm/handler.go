// Package llm exposes admin diagnostics for the configured generative-AI
// provider: which model is in use and whether each pooled key still works.
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/xdpzq/centralgpt/internal/auth"
	"github.com/xdpzq/centralgpt/internal/settings"
	pkgllm "github.com/xdpzq/centralgpt/pkg/llm"
	"go.uber.org/zap"
)

// heartbeatTimeout bounds a single key check.
const heartbeatTimeout = 10 * time.Second

// KeySource supplies the keys currently in rotation.
type KeySource interface {
	Credentials() []string
}

// Handler serves the /llm admin endpoints.
type Handler struct {
	factory pkgllm.Factory
	keys    KeySource
	model   string
	logger  *zap.Logger
}

// NewHandler creates an llm Handler. factory builds one provider per key.
func NewHandler(factory pkgllm.Factory, keys KeySource, model string, logger *zap.Logger) *Handler {
	return &Handler{factory: factory, keys: keys, model: model, logger: logger}
}

// RegisterRoutes registers llm routes on the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/llm/config", h.handleGetConfig)
	mux.HandleFunc("POST /api/v1/llm/test", h.handleTestConnection)
}

// Start logs whether the first pooled key can reach the provider. It never
// fails startup.
func (h *Handler) Start(ctx context.Context) {
	keys := h.keys.Credentials()
	if len(keys) == 0 {
		h.logger.Warn("no gemini keys configured; chat answers will report missing credentials")
		return
	}

	st, models := h.check(ctx, keys[0], true)
	if !st.Healthy {
		h.logger.Warn("llm provider not reachable; chat will rotate to other keys",
			zap.String("key", st.Key),
			zap.String("error", st.Message),
		)
		return
	}
	h.logger.Info("llm provider connected",
		zap.String("model", h.model),
		zap.Int("models", len(models)),
	)
}

// handleGetConfig returns the provider configuration.
//
//	@Summary		Get LLM config
//	@Description	Returns the active provider, model, and number of pooled keys.
//	@Tags			llm
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ConfigResponse
//	@Failure		403	{object}	auth.ProblemDetail
//	@Router			/llm/config [get]
func (h *Handler) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if !auth.RequireAdmin(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, ConfigResponse{
		Provider: "gemini",
		Model:    h.model,
		KeyCount: len(h.keys.Credentials()),
	})
}

// handleTestConnection sends a heartbeat with every pooled key.
//
//	@Summary		Test LLM connection
//	@Description	Checks every pooled key against the provider and reports each result.
//	@Tags			llm
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	TestResponse
//	@Failure		403	{object}	auth.ProblemDetail
//	@Router			/llm/test [post]
func (h *Handler) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if !auth.RequireAdmin(w, r) {
		return
	}

	keys := h.keys.Credentials()
	if len(keys) == 0 {
		writeJSON(w, http.StatusOK, TestResponse{
			Success: false,
			Message: "no keys configured",
			Keys:    []KeyStatus{},
		})
		return
	}

	statuses := make([]KeyStatus, len(keys))
	var models []string
	var wg sync.WaitGroup
	var mu sync.Mutex
	for i, key := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, m := h.check(r.Context(), key, i == 0)
			statuses[i] = st
			if m != nil {
				mu.Lock()
				models = m
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	healthy := 0
	for _, st := range statuses {
		if st.Healthy {
			healthy++
		}
	}

	resp := TestResponse{
		Success: healthy > 0,
		Message: "connected",
		Model:   h.model,
		Models:  models,
		Keys:    statuses,
	}
	if healthy == 0 {
		resp.Message = "no key could reach the provider"
	}
	writeJSON(w, http.StatusOK, resp)
}

// check runs a heartbeat with key, and lists models when withModels is set.
func (h *Handler) check(ctx context.Context, key string, withModels bool) (KeyStatus, []string) {
	st := KeyStatus{Key: settings.MaskKey(key)}

	p, err := h.factory(key)
	if err != nil {
		st.Message = err.Error()
		return st, nil
	}
	hr, ok := p.(pkgllm.HealthReporter)
	if !ok {
		st.Message = "provider does not support health checks"
		return st, nil
	}

	ctx, cancel := context.WithTimeout(ctx, heartbeatTimeout)
	defer cancel()

	if err := hr.Heartbeat(ctx); err != nil {
		st.Message = err.Error()
		return st, nil
	}
	st.Healthy = true
	st.Message = "connected"

	if !withModels {
		return st, nil
	}
	models, err := hr.ListModels(ctx)
	if err != nil {
		h.logger.Debug("failed to list models", zap.String("key", st.Key), zap.Error(err))
		return st, nil
	}
	return st, models
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
