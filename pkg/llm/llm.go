// Package llm provides the public SDK types for generative-AI provider
// integrations. Providers (Gemini today) implement these interfaces in
// internal/llm/{provider}/ adapters; the dispatcher only sees this package.
package llm

import "context"

// Provider is the core interface implemented by all LLM providers.
// It exposes single-prompt generation and multi-turn chat completion.
type Provider interface {
	// Generate creates a completion from a single prompt.
	// Use CallOption values to override model, temperature, or system instruction.
	Generate(ctx context.Context, prompt string, opts ...CallOption) (*Response, error)

	// Chat creates a completion from a conversation history.
	// Messages may carry inline images for multimodal models.
	Chat(ctx context.Context, messages []Message, opts ...CallOption) (*Response, error)
}

// HealthReporter is optionally implemented by providers that can report
// connection health and model availability. Detected via type assertion.
type HealthReporter interface {
	// Heartbeat checks whether the LLM service is reachable with the
	// provider's credential.
	Heartbeat(ctx context.Context) error

	// ListModels returns the names of models available from this provider.
	ListModels(ctx context.Context) ([]string, error)
}

// Factory builds a Provider bound to a single API key. The dispatcher calls
// it once per candidate key.
type Factory func(apiKey string) (Provider, error)

// CallOption configures a single Generate or Chat call.
type CallOption func(*CallConfig)

// CallConfig holds the resolved configuration for a single LLM call.
// Users interact through CallOption functions, not this struct directly.
type CallConfig struct {
	Model             string
	Temperature       float64
	MaxTokens         int
	SystemInstruction string
}

// WithModel sets the model to use for this call, overriding the provider default.
func WithModel(model string) CallOption {
	return func(c *CallConfig) { c.Model = model }
}

// WithTemperature sets the sampling temperature.
// 0.0 = deterministic, 1.0+ = creative. Provider default if unset.
func WithTemperature(temp float64) CallOption {
	return func(c *CallConfig) { c.Temperature = temp }
}

// WithMaxTokens sets the maximum number of tokens to generate.
// Zero leaves the limit to the provider.
func WithMaxTokens(max int) CallOption {
	return func(c *CallConfig) { c.MaxTokens = max }
}

// WithSystemInstruction sets the system instruction (persona) for the call.
func WithSystemInstruction(instruction string) CallOption {
	return func(c *CallConfig) { c.SystemInstruction = instruction }
}

// ApplyOptions creates a CallConfig from a list of options, starting from defaults.
func ApplyOptions(opts ...CallOption) CallConfig {
	cfg := CallConfig{
		Temperature: 0.7,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
