// Package webhook forwards completed chats and settings changes to an
// operator-configured HTTP endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/xdpzq/centralgpt/internal/event"
	"github.com/xdpzq/centralgpt/internal/history"
	"github.com/xdpzq/centralgpt/internal/settings"
	"github.com/xdpzq/centralgpt/internal/version"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single delivery when none is configured.
const DefaultTimeout = 10 * time.Second

// Config holds the webhook notifier configuration.
type Config struct {
	URL     string
	Timeout time.Duration
	Enabled bool
}

// Notifier posts a Payload for every subscribed event. Deliveries run in
// the background so a slow endpoint never delays the publisher.
type Notifier struct {
	logger   *zap.Logger
	cfg      Config
	client   *http.Client
	inflight sync.WaitGroup
}

// New creates a Notifier. A zero Timeout falls back to DefaultTimeout.
func New(cfg Config, logger *zap.Logger) *Notifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	n := &Notifier{
		logger: logger,
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}

	if cfg.Enabled && cfg.URL == "" {
		logger.Warn("webhook URL not configured; notifications will be dropped",
			zap.String("component", "webhook"),
		)
	}
	logger.Info("webhook notifier initialized",
		zap.String("url", cfg.URL),
		zap.Duration("timeout", cfg.Timeout),
		zap.Bool("enabled", cfg.Enabled),
	)
	return n
}

// Active reports whether events will actually be delivered.
func (n *Notifier) Active() bool {
	return n.cfg.Enabled && n.cfg.URL != ""
}

// Wait blocks until every started delivery has finished.
func (n *Notifier) Wait() {
	n.inflight.Wait()
}

// Subscribe registers the notifier on bus. It is a no-op when inactive.
func (n *Notifier) Subscribe(bus event.Subscriber) {
	if bus == nil || !n.Active() {
		return
	}
	bus.Subscribe(event.TopicChatCompleted, n.handleEvent)
	bus.Subscribe(event.TopicSettingsUpdated, n.handleEvent)
}

// Payload is the JSON body sent to the webhook URL.
type Payload struct {
	Event     string `json:"event"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// ChatData summarizes a completed chat. Message bodies stay on the server.
type ChatData struct {
	Username      string `json:"username"`
	AIName        string `json:"ai_name"`
	MessageChars  int    `json:"message_chars"`
	ResponseChars int    `json:"response_chars"`
	HasImage      bool   `json:"has_image"`
}

// SettingsData reports the feature flags after a change. Gemini keys are
// reduced to a count.
type SettingsData struct {
	settings.Features
	KeyCount int `json:"key_count"`
}

// payloadData converts an event payload into its outbound form. Unknown
// payload types are dropped.
func payloadData(e event.Event) (any, bool) {
	switch p := e.Payload.(type) {
	case history.Entry:
		return ChatData{
			Username:      p.Username,
			AIName:        p.AIName,
			MessageChars:  len([]rune(p.Message)),
			ResponseChars: len([]rune(p.Response)),
			HasImage:      p.Image != "",
		}, true
	case settings.AppConfig:
		return SettingsData{Features: p.Features(), KeyCount: len(p.GeminiKeys)}, true
	default:
		return nil, false
	}
}

func (n *Notifier) handleEvent(ctx context.Context, e event.Event) {
	if !n.Active() {
		return
	}

	data, ok := payloadData(e)
	if !ok {
		n.logger.Debug("webhook skipped unsupported payload", zap.String("topic", e.Topic))
		return
	}

	body, err := json.Marshal(Payload{
		Event:     e.Topic,
		Source:    e.Source,
		Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		n.logger.Error("failed to marshal webhook payload",
			zap.String("topic", e.Topic),
			zap.Error(err),
		)
		return
	}

	ctx = context.WithoutCancel(ctx)
	n.inflight.Go(func() {
		n.send(ctx, body, e.Topic)
	})
}

func (n *Notifier) send(ctx context.Context, body []byte, topic string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("failed to create webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CentralGPT-Webhook/"+version.Short())

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook delivery failed",
			zap.String("url", n.cfg.URL),
			zap.String("topic", topic),
			zap.Error(err),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		n.logger.Warn("webhook endpoint returned error",
			zap.String("url", n.cfg.URL),
			zap.String("topic", topic),
			zap.Int("status_code", resp.StatusCode),
		)
		return
	}

	n.logger.Debug("webhook delivered",
		zap.String("topic", topic),
		zap.Int("status_code", resp.StatusCode),
	)
}
