package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/congo-pay/walletledger/internal/identity"
)

// Service issues, refreshes and revokes tokens for identity users.
type Service struct {
	tokens *TokenManager
	users  *identity.Service
	logger *slog.Logger
}

// NewService constructs an auth service.
func NewService(tokens *TokenManager, users *identity.Service, logger *slog.Logger) *Service {
	return &Service{tokens: tokens, users: users, logger: logger}
}

// Login verifies credentials and issues a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (identity.User, TokenPair, error) {
	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return identity.User{}, TokenPair{}, err
	}
	pair, err := s.tokens.GeneratePair(user.ID, user.Role, user.TokenVersion)
	if err != nil {
		return identity.User{}, TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	return user, pair, nil
}

// Refresh trades a valid refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, int64, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return "", 0, err
	}
	user, err := s.current(ctx, claims)
	if err != nil {
		return "", 0, err
	}
	access, err := s.tokens.GenerateAccess(user.ID, user.Role, user.TokenVersion)
	if err != nil {
		return "", 0, fmt.Errorf("issue access token: %w", err)
	}
	return access, int64(s.tokens.accessTTL.Seconds()), nil
}

// Logout revokes every outstanding token of the user.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if _, err := s.users.RevokeTokens(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user logged out", slog.String("user_id", userID))
	return nil
}

// Verify validates an access token and checks it has not been revoked.
func (s *Service) Verify(ctx context.Context, accessToken string) (*Claims, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, err
	}
	user, err := s.current(ctx, claims)
	if err != nil {
		return nil, err
	}
	// Role comes from the store so a demotion applies immediately.
	claims.Role = user.Role
	return claims, nil
}

func (s *Service) current(ctx context.Context, claims *Claims) (identity.User, error) {
	user, err := s.users.Get(ctx, claims.UserID)
	if errors.Is(err, identity.ErrUserNotFound) {
		return identity.User{}, ErrInvalidToken
	}
	if err != nil {
		return identity.User{}, err
	}
	if user.TokenVersion != claims.Version {
		return identity.User{}, ErrInvalidToken
	}
	return user, nil
}
