package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/congo-pay/walletledger/internal/clock"
	"github.com/congo-pay/walletledger/internal/idgen"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes.
	maxPasswordLen = 72
)

// Service manages identity lifecycle.
type Service struct {
	repo   Repository
	ids    idgen.Generator
	clock  clock.Clock
	admins map[string]struct{}
	logger *slog.Logger
}

// NewService creates a new identity service. Usernames listed in admins are
// registered with the admin role.
func NewService(repo Repository, ids idgen.Generator, clk clock.Clock, admins []string, logger *slog.Logger) *Service {
	set := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		if a = strings.TrimSpace(a); a != "" {
			set[a] = struct{}{}
		}
	}
	return &Service{repo: repo, ids: ids, clock: clk, admins: set, logger: logger}
}

// Register creates a user with a bcrypt password hash. The user id is the
// owner id used for the wallet.
func (s *Service) Register(ctx context.Context, reg Registration) (User, error) {
	reg.Username = strings.TrimSpace(reg.Username)
	reg.Email = strings.TrimSpace(reg.Email)
	if err := validate(reg); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	role := RoleUser
	if _, ok := s.admins[reg.Username]; ok {
		role = RoleAdmin
	}

	user := User{
		ID:           s.ids.New(idgen.KindOwner),
		Username:     reg.Username,
		Email:        reg.Email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}
	s.logger.Info("user registered", slog.String("user_id", user.ID), slog.String("role", role))
	return user, nil
}

// Authenticate verifies a username and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// List returns every user.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// RevokeTokens bumps the user's token version, invalidating outstanding
// refresh tokens, and returns the new version.
func (s *Service) RevokeTokens(ctx context.Context, id string) (int, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	next := user.TokenVersion + 1
	if err := s.repo.UpdateTokenVersion(ctx, id, next); err != nil {
		return 0, err
	}
	return next, nil
}

func validate(reg Registration) error {
	if n := utf8.RuneCountInString(reg.Username); n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("%w: username must be %d to %d characters", ErrInvalidRegistration, minUsernameLen, maxUsernameLen)
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return fmt.Errorf("%w: email is not valid", ErrInvalidRegistration)
	}
	if len(reg.Password) < minPasswordLen || len(reg.Password) > maxPasswordLen {
		return fmt.Errorf("%w: password must be %d to %d bytes", ErrInvalidRegistration, minPasswordLen, maxPasswordLen)
	}
	return nil
}
