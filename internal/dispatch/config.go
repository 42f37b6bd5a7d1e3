package dispatch

// Defaults applied by New.
const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = 0.9
)

// Config holds dispatcher settings bound from the "gemini" config section.
type Config struct {
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	FallbackKey string  `mapstructure:"api_key"`
}

// DefaultConfig returns the default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
	}
}
