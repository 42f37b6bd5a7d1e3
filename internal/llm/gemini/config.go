package gemini

import "time"

// Config holds the Gemini provider configuration.
type Config struct {
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns sensible defaults for Gemini.
func DefaultConfig() Config {
	return Config{
		Model:   "gemini-2.5-flash",
		BaseURL: "https://generativelanguage.googleapis.com",
		Timeout: 2 * time.Minute,
	}
}
