package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xdpzq/centralgpt/internal/event"
	"github.com/xdpzq/centralgpt/internal/vault"
	"go.uber.org/zap"
)

// appConfigKey is the settings key holding the JSON-encoded AppConfig.
const appConfigKey = "app_config"

// Service errors.
var (
	ErrEmptyKey     = errors.New("credential must not be empty")
	ErrKeyIndex     = errors.New("credential index out of range")
	ErrDuplicateKey = errors.New("credential already configured")
)

// Service owns the AppConfig: it loads it once, serves reads from memory,
// persists every change with credentials sealed by the vault keyring, and
// announces changes on the event bus.
type Service struct {
	repo    *Repository
	keyring vault.Keyring
	bus     event.Publisher
	logger  *zap.Logger

	// pubMu serializes mutate end to end so settings.updated events reach
	// subscribers in the order the changes were applied.
	pubMu sync.Mutex
	mu    sync.RWMutex
	cfg   AppConfig
}

// NewService loads the stored AppConfig. bus may be nil.
func NewService(ctx context.Context, repo *Repository, keyring vault.Keyring, bus event.Publisher, logger *zap.Logger) (*Service, error) {
	s := &Service{repo: repo, keyring: keyring, bus: bus, logger: logger}
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.cfg = cfg
	return s, nil
}

// AppConfig returns a copy of the current configuration with credentials
// in plain text.
func (s *Service) AppConfig() AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Clone()
}

// Features returns the public flags.
func (s *Service) Features() Features {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Features()
}

// Credentials returns the configured Gemini credentials.
func (s *Service) Credentials() []string {
	return s.AppConfig().GeminiKeys
}

// View returns the admin console form of the configuration.
func (s *Service) View() AppConfigView {
	cfg := s.AppConfig()
	masked := make([]string, len(cfg.GeminiKeys))
	for i, k := range cfg.GeminiKeys {
		masked[i] = MaskKey(k)
	}
	return AppConfigView{
		Features:   cfg.Features(),
		GeminiKeys: masked,
		KeyCount:   len(masked),
		Encrypted:  s.keyring.Encrypting(),
	}
}

// UpdateFlags applies a partial flag change.
func (s *Service) UpdateFlags(ctx context.Context, upd FlagsUpdate) (AppConfig, error) {
	return s.mutate(ctx, func(c *AppConfig) error {
		if upd.MaintenanceMode != nil {
			c.MaintenanceMode = *upd.MaintenanceMode
		}
		if upd.FeatureVoice != nil {
			c.FeatureVoice = *upd.FeatureVoice
		}
		if upd.FeatureImage != nil {
			c.FeatureImage = *upd.FeatureImage
		}
		return nil
	})
}

// AddKey appends a credential to the pool.
func (s *Service) AddKey(ctx context.Context, key string) (AppConfig, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return AppConfig{}, ErrEmptyKey
	}
	return s.mutate(ctx, func(c *AppConfig) error {
		for _, k := range c.GeminiKeys {
			if k == key {
				return ErrDuplicateKey
			}
		}
		c.GeminiKeys = append(c.GeminiKeys, key)
		return nil
	})
}

// RemoveKey deletes the credential at index (as listed by View).
func (s *Service) RemoveKey(ctx context.Context, index int) (AppConfig, error) {
	return s.mutate(ctx, func(c *AppConfig) error {
		if index < 0 || index >= len(c.GeminiKeys) {
			return ErrKeyIndex
		}
		c.GeminiKeys = append(c.GeminiKeys[:index:index], c.GeminiKeys[index+1:]...)
		return nil
	})
}

// mutate applies fn to a copy of the configuration, persists the result,
// swaps it in and publishes settings.updated. Readers are only blocked
// while the change is saved, not while it is published.
func (s *Service) mutate(ctx context.Context, fn func(*AppConfig) error) (AppConfig, error) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	next := s.cfg.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return AppConfig{}, err
	}
	if err := s.save(ctx, next); err != nil {
		s.mu.Unlock()
		return AppConfig{}, err
	}
	s.cfg = next
	s.mu.Unlock()

	s.logger.Info("app config updated",
		zap.Bool("maintenance_mode", next.MaintenanceMode),
		zap.Bool("feature_image", next.FeatureImage),
		zap.Int("credentials", len(next.GeminiKeys)),
	)
	if s.bus != nil {
		_ = s.bus.Publish(ctx, event.New(event.TopicSettingsUpdated, "settings", next.Clone()))
	}
	return next.Clone(), nil
}

func (s *Service) load(ctx context.Context) (AppConfig, error) {
	cfg := DefaultAppConfig()
	stored, err := s.repo.Get(ctx, appConfigKey)
	if errors.Is(err, ErrNotFound) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal([]byte(stored.Value), &cfg); err != nil {
		return cfg, fmt.Errorf("decode app config: %w", err)
	}

	keys := make([]string, 0, len(cfg.GeminiKeys))
	for i, sealed := range cfg.GeminiKeys {
		k, err := s.keyring.Open(sealed)
		if err != nil {
			return cfg, fmt.Errorf("open credential %d: %w", i, err)
		}
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	cfg.GeminiKeys = keys
	return cfg, nil
}

func (s *Service) save(ctx context.Context, cfg AppConfig) error {
	out := cfg.Clone()
	for i, k := range out.GeminiKeys {
		sealed, err := s.keyring.Seal(k)
		if err != nil {
			return fmt.Errorf("seal credential: %w", err)
		}
		out.GeminiKeys[i] = sealed
	}
	b, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode app config: %w", err)
	}
	return s.repo.Set(ctx, appConfigKey, string(b))
}
