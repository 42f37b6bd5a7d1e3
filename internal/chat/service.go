// Package chat turns an authenticated user's message into a completion
// from the dispatcher, wrapped in the user's persona, and records it.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xdpzq/centralgpt/internal/auth"
	"github.com/xdpzq/centralgpt/internal/dispatch"
	"github.com/xdpzq/centralgpt/internal/event"
	"github.com/xdpzq/centralgpt/internal/history"
	"github.com/xdpzq/centralgpt/internal/settings"
	"go.uber.org/zap"
)

// MaxMessageLength bounds a single prompt in bytes.
const MaxMessageLength = 16 << 10

// Service errors.
var (
	ErrMaintenance     = errors.New("system is under maintenance")
	ErrImageDisabled   = errors.New("image upload is disabled")
	ErrEmptyMessage    = errors.New("message is required")
	ErrMessageTooLarge = errors.New("message is too long")
)

// Dispatcher obtains completions.
type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Result
}

// FeatureSource reports the current feature flags.
type FeatureSource interface {
	Features() settings.Features
}

// PrincipalResolver loads the persona of a session holder.
type PrincipalResolver interface {
	Principal(ctx context.Context, claims *auth.Claims) (auth.Principal, error)
}

// HistorySaver records completed exchanges.
type HistorySaver interface {
	Save(ctx context.Context, e *history.Entry) error
}

// AsyncPublisher announces completed exchanges.
type AsyncPublisher interface {
	PublishAsync(ctx context.Context, e event.Event)
}

// Request is a chat message from a user.
type Request struct {
	Message string `json:"message" example:"Who are you?"`
	Image   string `json:"image,omitempty" example:"data:image/png;base64,iVBORw0KGgo..."`
}

// Reply is the answer returned to the user.
type Reply struct {
	Response  string    `json:"response" example:"I am CentralGPT, developed by XdpzQ."`
	AIName    string    `json:"ai_name" example:"CentralGPT"`
	Failed    bool      `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// Service handles chat requests.
type Service struct {
	dispatcher Dispatcher
	features   FeatureSource
	principals PrincipalResolver
	history    HistorySaver
	bus        AsyncPublisher
	logger     *zap.Logger
}

// NewService creates a chat Service. history and bus may be nil.
func NewService(d Dispatcher, features FeatureSource, principals PrincipalResolver, h HistorySaver, bus AsyncPublisher, logger *zap.Logger) *Service {
	return &Service{
		dispatcher: d,
		features:   features,
		principals: principals,
		history:    h,
		bus:        bus,
		logger:     logger,
	}
}

// Send answers req on behalf of the user described by claims.
func (s *Service) Send(ctx context.Context, claims *auth.Claims, req Request) (*Reply, error) {
	flags := s.features.Features()
	if flags.MaintenanceMode {
		return nil, ErrMaintenance
	}

	req.Message = strings.TrimSpace(req.Message)
	req.Image = strings.TrimSpace(req.Image)
	if req.Message == "" && req.Image == "" {
		return nil, ErrEmptyMessage
	}
	if len(req.Message) > MaxMessageLength {
		return nil, ErrMessageTooLarge
	}
	if req.Image != "" && !flags.FeatureImage {
		return nil, ErrImageDisabled
	}

	p, err := s.principals.Principal(ctx, claims)
	if err != nil {
		return nil, err
	}

	result := s.dispatcher.Dispatch(ctx, dispatch.Request{
		Prompt:            req.Message,
		SystemInstruction: SystemInstruction(p.AIName, p.DevName),
		Image:             req.Image,
	})

	reply := &Reply{
		Response:  result.Text,
		AIName:    p.AIName,
		Failed:    result.Failed,
		Timestamp: time.Now().UTC(),
	}

	s.logger.Debug("chat completed",
		zap.String("username", p.Username),
		zap.String("outcome", result.Outcome),
		zap.Int("attempts", result.Attempts),
	)

	if !result.Failed {
		s.record(ctx, p, req, reply)
	}
	return reply, nil
}

// record saves the exchange and announces it. Failures are logged only.
func (s *Service) record(ctx context.Context, p auth.Principal, req Request, reply *Reply) {
	entry := &history.Entry{
		Username:  p.Username,
		AIName:    p.AIName,
		Message:   req.Message,
		Response:  reply.Response,
		Image:     req.Image,
		CreatedAt: reply.Timestamp,
	}
	if s.history != nil {
		if err := s.history.Save(ctx, entry); err != nil {
			s.logger.Warn("failed to save chat history", zap.String("username", p.Username), zap.Error(err))
		}
	}
	if s.bus != nil {
		s.bus.PublishAsync(ctx, event.New(event.TopicChatCompleted, "chat", *entry))
	}
}

// SystemInstruction builds the persona prompt for a user.
func SystemInstruction(aiName, devName string) string {
	if aiName == "" {
		aiName = auth.DefaultAIName
	}
	if devName == "" {
		devName = auth.DefaultDevName
	}
	return fmt.Sprintf(
		"You are %[1]s, an AI assistant developed by %[2]s. "+
			"When asked who you are or who created you, answer that you are %[1]s, created by %[2]s. "+
			"Do not say that you are Gemini or that you were made by Google. "+
			"Answer in the language the user writes in.",
		aiName, devName)
}
