package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service errors.
var (
	ErrInvalidKey   = errors.New("invalid access key")
	ErrUserDisabled = errors.New("user account is disabled")
	ErrUserExists   = errors.New("username already exists")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrUserNotFound = errors.New("user not found")

	ErrAdminKeyFormat = errors.New("auth.admin_key must not use the " + AccessKeyPrefix + " user key prefix")
)

// TokenPair contains an access token and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // Access token TTL in seconds
}

// Session is returned by Login and Refresh.
type Session struct {
	TokenPair
	User Principal `json:"user"`
}

// UserUpdate carries the admin-editable fields; nil leaves a field unchanged.
type UserUpdate struct {
	AIName   *string `json:"ai_name,omitempty"`
	DevName  *string `json:"dev_name,omitempty"`
	Disabled *bool   `json:"disabled,omitempty"`
}

// Service provides authentication business logic.
type Service struct {
	store     *UserStore
	tokens    *TokenService
	adminHash string
	logger    *zap.Logger
}

// NewService creates an auth Service. adminKey enables admin login; an
// empty key leaves the console locked.
func NewService(store *UserStore, tokens *TokenService, adminKey string, logger *zap.Logger) (*Service, error) {
	s := &Service{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
	if adminKey = strings.TrimSpace(adminKey); adminKey != "" {
		if strings.HasPrefix(adminKey, AccessKeyPrefix) {
			return nil, ErrAdminKeyFormat
		}
		hash, err := HashPassword(adminKey, 0)
		if err != nil {
			return nil, fmt.Errorf("hash admin key: %w", err)
		}
		s.adminHash = hash
	} else {
		logger.Warn("auth.admin_key is not set; the admin console is disabled")
	}
	return s, nil
}

// Tokens returns the token service for middleware use.
func (s *Service) Tokens() *TokenService {
	return s.tokens
}

// Login exchanges an access key (user key or the admin key) for a session.
func (s *Service) Login(ctx context.Context, accessKey string) (*Session, error) {
	accessKey = strings.TrimSpace(accessKey)
	if accessKey == "" {
		return nil, ErrInvalidKey
	}

	if s.adminHash != "" && !strings.HasPrefix(accessKey, AccessKeyPrefix) && CheckPassword(s.adminHash, accessKey) {
		s.logger.Info("admin logged in")
		return s.issueSession(ctx, adminPrincipal())
	}

	user, err := s.store.GetUserByKeyHash(ctx, HashAccessKey(accessKey))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidKey
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.Disabled {
		return nil, ErrUserDisabled
	}

	sess, err := s.issueSession(ctx, user.principal())
	if err != nil {
		return nil, err
	}

	_ = s.store.UpdateLastLogin(ctx, user.ID)
	s.logger.Info("user logged in", zap.String("username", user.Username), zap.String("user_id", user.ID))
	return sess, nil
}

// Refresh validates a refresh token and returns a new session (rotation).
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	rt, err := s.store.GetRefreshToken(ctx, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup refresh token: %w", err)
	}

	if rt.Revoked || rt.ExpiresAt.Before(time.Now()) {
		return nil, ErrInvalidToken
	}

	if err := s.store.RevokeRefreshToken(ctx, rt.ID); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}

	if rt.Subject == adminSubject {
		if s.adminHash == "" {
			return nil, ErrInvalidToken
		}
		return s.issueSession(ctx, adminPrincipal())
	}

	user, err := s.store.GetUserByID(ctx, rt.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup user for refresh: %w", err)
	}
	if user.Disabled {
		return nil, ErrUserDisabled
	}

	return s.issueSession(ctx, user.principal())
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	rt, err := s.store.GetRefreshToken(ctx, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("lookup refresh token: %w", err)
	}
	return s.store.RevokeRefreshToken(ctx, rt.ID)
}

// Principal resolves the session holder described by claims, reading the
// current persona from the database for users.
func (s *Service) Principal(ctx context.Context, claims *Claims) (Principal, error) {
	if claims.IsAdmin() {
		return adminPrincipal(), nil
	}
	user, err := s.GetUser(ctx, claims.UserID)
	if err != nil {
		return Principal{}, err
	}
	if user.Disabled {
		return Principal{}, ErrUserDisabled
	}
	return user.principal(), nil
}

// CreateUser creates an agent and returns it with its access key. The key
// is only available here; the database keeps its hash.
func (s *Service) CreateUser(ctx context.Context, username, aiName, devName string) (*User, string, error) {
	username = strings.TrimSpace(username)
	if err := ValidateUsername(username); err != nil {
		return nil, "", err
	}
	taken, err := s.store.UsernameTaken(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", ErrUserExists
	}

	key, err := GenerateAccessKey()
	if err != nil {
		return nil, "", err
	}

	user := &User{
		ID:        uuid.New().String(),
		Username:  username,
		KeyHash:   HashAccessKey(key),
		AIName:    orDefault(aiName, DefaultAIName),
		DevName:   orDefault(devName, DefaultDevName),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	s.logger.Info("user created", zap.String("username", username), zap.String("user_id", user.ID))
	return user, key, nil
}

// RegenerateKey issues a new access key for a user and ends its sessions.
func (s *Service) RegenerateKey(ctx context.Context, id string) (string, error) {
	key, err := GenerateAccessKey()
	if err != nil {
		return "", err
	}
	if err := s.store.SetKeyHash(ctx, id, HashAccessKey(key)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", err
	}
	_ = s.store.RevokeSubjectTokens(ctx, id)
	s.logger.Info("access key regenerated", zap.String("user_id", id))
	return key, nil
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateUser applies upd to a user. Disabling a user revokes its sessions.
func (s *Service) UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.AIName != nil {
		user.AIName = orDefault(*upd.AIName, DefaultAIName)
	}
	if upd.DevName != nil {
		user.DevName = orDefault(*upd.DevName, DefaultDevName)
	}
	if upd.Disabled != nil {
		user.Disabled = *upd.Disabled
	}

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	if user.Disabled {
		_ = s.store.RevokeSubjectTokens(ctx, id)
	}
	return user, nil
}

// DeleteUser removes a user by ID.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id))
	return nil
}

func (s *Service) issueSession(ctx context.Context, p Principal) (*Session, error) {
	accessToken, err := s.tokens.IssueAccessToken(p)
	if err != nil {
		return nil, err
	}

	rawRefresh, hashRefresh, expiresAt, err := s.tokens.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveRefreshToken(ctx, uuid.New().String(), p.ID, hashRefresh, expiresAt); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}

	return &Session{
		TokenPair: TokenPair{
			AccessToken:  accessToken,
			RefreshToken: rawRefresh,
			ExpiresIn:    int(s.tokens.AccessTokenTTL().Seconds()),
		},
		User: p,
	}, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}
