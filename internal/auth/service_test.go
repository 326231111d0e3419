package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletledger/internal/clock"
	"github.com/congo-pay/walletledger/internal/identity"
	"github.com/congo-pay/walletledger/internal/idgen"
	"github.com/congo-pay/walletledger/internal/logging"
)

type fixture struct {
	clock  *clock.Manual
	tokens *TokenManager
	users  *identity.Service
	svc    *Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clk := clock.NewManual(time.Now().UTC())
	users := identity.NewService(identity.NewMemoryRepository(), idgen.NewSequence(), clk, []string{"root"}, logging.Discard())
	tokens := NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, time.Hour, clk)
	_, err := users.Register(context.Background(), identity.Registration{Username: "alice", Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)
	return fixture{clock: clk, tokens: tokens, users: users, svc: NewService(tokens, users, logging.Discard())}
}

func TestLoginIssuesVerifiableTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, pair, err := f.svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)
	assert.EqualValues(t, 900, pair.ExpiresIn)

	claims, err := f.svc.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, identity.RoleUser, claims.Role)

	// A refresh token is not an access token.
	_, err = f.svc.Verify(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.svc.Login(context.Background(), "alice", "nope-nope")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
}

func TestRefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, pair, err := f.svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)

	access, exp, err := f.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.EqualValues(t, 900, exp)
	_, err = f.svc.Verify(ctx, access)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, user.ID))

	_, _, err = f.svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = f.svc.Verify(ctx, access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredAccessToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, pair, err := f.svc.Login(ctx, "alice", "password1")
	require.NoError(t, err)

	f.clock.Advance(16 * time.Minute)
	_, err = f.svc.Verify(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenSignedWithOtherSecretIsRejected(t *testing.T) {
	f := newFixture(t)
	other := NewTokenManager("other", "other-refresh", time.Minute, time.Hour, f.clock)
	forged, err := other.GenerateAccess("USR-000001", identity.RoleAdmin, 0)
	require.NoError(t, err)

	_, err = f.svc.Verify(context.Background(), forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
