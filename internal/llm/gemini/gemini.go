// Package gemini implements llm.Provider against the Google Gemini
// generateContent REST API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/xdpzq/centralgpt/pkg/llm"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ llm.Provider       = (*Provider)(nil)
	_ llm.HealthReporter = (*Provider)(nil)
)

// Provider implements llm.Provider for a single Gemini API key.
type Provider struct {
	apiKey     string
	httpClient *http.Client
	cfg        Config
	logger     *zap.Logger
}

// New creates a Gemini provider bound to apiKey.
func New(cfg Config, apiKey string, logger *zap.Logger) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("gemini: parse base url: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// NewFactory returns an llm.Factory that builds one Provider per key,
// sharing cfg and logger.
func NewFactory(cfg Config, logger *zap.Logger) llm.Factory {
	return func(apiKey string) (llm.Provider, error) {
		return New(cfg, apiKey, logger)
	}
}

// Generate creates a completion from a single prompt.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.CallOption) (*llm.Response, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}

// Chat creates a completion from a conversation history. System messages
// are folded into the request's systemInstruction.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	if len(messages) == 0 {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)
	}

	cfg := llm.ApplyOptions(opts...)

	model := cfg.Model
	if model == "" {
		model = p.cfg.Model
	}

	req := generateRequest{
		GenerationConfig: &generationConfig{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxTokens,
		},
	}

	var system []string
	if cfg.SystemInstruction != "" {
		system = append(system, cfg.SystemInstruction)
	}
	for _, m := range messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		req.Contents = append(req.Contents, toContent(m))
	}
	if len(req.Contents) == 0 {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "at least one user message is required", nil)
	}
	if len(system) > 0 {
		req.SystemInstruction = &content{Parts: []part{{Text: strings.Join(system, "\n\n")}}}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	respBody, err := p.doPost(ctx, "/v1beta/models/"+url.PathEscape(model)+":generateContent", body)
	if err != nil {
		return nil, mapError(err)
	}
	defer respBody.Close()

	var resp generateResponse
	if err := json.NewDecoder(respBody).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}

	out := &llm.Response{
		Model: resp.ModelVersion,
		Usage: llm.Usage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
		},
	}
	if out.Model == "" {
		out.Model = model
	}
	if len(resp.Candidates) > 0 {
		c := resp.Candidates[0]
		var sb strings.Builder
		for _, pt := range c.Content.Parts {
			sb.WriteString(pt.Text)
		}
		out.Content = sb.String()
		out.Done = c.FinishReason == "" || c.FinishReason == "STOP"
	}
	if resp.PromptFeedback.BlockReason != "" {
		p.logger.Warn("gemini blocked prompt",
			zap.String("block_reason", resp.PromptFeedback.BlockReason),
			zap.String("model", out.Model),
		)
	}
	return out, nil
}

// Heartbeat checks whether the Gemini API is reachable with this key.
func (p *Provider) Heartbeat(ctx context.Context) error {
	body, err := p.doGet(ctx, "/v1beta/models?pageSize=1")
	if err != nil {
		return mapError(err)
	}
	body.Close()
	return nil
}

// ListModels returns the model names available to this key, without the
// "models/" prefix.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	body, err := p.doGet(ctx, "/v1beta/models")
	if err != nil {
		return nil, mapError(err)
	}
	defer body.Close()

	var result listResponse
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode list response: %w", err)
	}

	names := make([]string, len(result.Models))
	for i := range result.Models {
		names[i] = strings.TrimPrefix(result.Models[i].Name, "models/")
	}
	return names, nil
}

func (p *Provider) doGet(ctx context.Context, path string) (io.ReadCloser, error) {
	return p.do(ctx, http.MethodGet, path, nil)
}

func (p *Provider) doPost(ctx context.Context, path string, body []byte) (io.ReadCloser, error) {
	return p.do(ctx, http.MethodPost, path, body)
}

// do sends an authenticated request and returns the response body.
// Responses with status >= 400 are returned as *statusError.
func (p *Provider) do(ctx context.Context, method, path string, body []byte) (io.ReadCloser, error) {
	var rdr io.Reader = http.NoBody
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(p.cfg.BaseURL, "/")+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, parseStatusError(resp)
	}

	return resp.Body, nil
}

// parseStatusError reads a google.rpc error envelope from resp.
func parseStatusError(resp *http.Response) *statusError {
	var errResp struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
			Details []struct {
				Reason string `json:"reason"`
			} `json:"details"`
		} `json:"error"`
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(raw, &errResp); err != nil {
		return &statusError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	se := &statusError{
		StatusCode: resp.StatusCode,
		Status:     errResp.Error.Status,
		Message:    errResp.Error.Message,
	}
	for _, d := range errResp.Error.Details {
		if d.Reason != "" {
			se.Reason = d.Reason
			break
		}
	}
	if se.Message == "" {
		se.Message = resp.Status
	}
	return se
}

func toContent(m llm.Message) content {
	role := "user"
	if m.Role == llm.RoleAssistant {
		role = "model"
	}
	c := content{Role: role}
	if m.Content != "" {
		c.Parts = append(c.Parts, part{Text: m.Content})
	}
	for _, img := range m.Images {
		c.Parts = append(c.Parts, part{InlineData: &inlineData{MIMEType: img.MIMEType, Data: img.Data}})
	}
	return c
}

// --- Gemini REST API types (internal) ---

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ModelVersion string `json:"modelVersion"`
}

type listResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}
