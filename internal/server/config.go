package server

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DevMode bool   `mapstructure:"dev_mode"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// fallbackKeyEnv lists unprefixed variables read as the fallback Gemini key,
// in priority order.
var fallbackKeyEnv = []string{"API_KEY", "GEMINI_API_KEY"}

// LoadConfig reads configuration from file and environment variables.
// A .env file in the working directory is loaded first when present.
func LoadConfig(configPath string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/centralgpt.db")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.refresh_token_ttl", "168h")
	v.SetDefault("auth.admin_key", "")
	v.SetDefault("vault.passphrase", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.timeout", "2m")
	v.SetDefault("gemini.temperature", 0.9)
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("ratelimit.rps", DefaultRPS)
	v.SetDefault("ratelimit.burst", DefaultBurst)
	v.SetDefault("ratelimit.trust_proxy", false)
	v.SetDefault("ratelimit.login.rps", DefaultLoginRPS)
	v.SetDefault("ratelimit.login.burst", DefaultLoginBurst)
	v.SetDefault("ratelimit.chat.rps", DefaultChatRPS)
	v.SetDefault("ratelimit.chat.burst", DefaultChatBurst)
	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.timeout", "10s")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("centralgpt")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/centralgpt")
	}

	// Environment variable support: CGPT_SERVER_PORT=9090
	v.SetEnvPrefix("CGPT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	if v.GetString("gemini.api_key") == "" {
		for _, name := range fallbackKeyEnv {
			if key := strings.TrimSpace(os.Getenv(name)); key != "" {
				v.Set("gemini.api_key", key)
				break
			}
		}
	}

	return v, nil
}
