package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/congo-pay/walletledger/internal/clock"
)

const (
	tokenAccess  = "access"
	tokenRefresh = "refresh"
)

// ErrInvalidToken covers malformed, expired, wrongly signed and revoked tokens.
var ErrInvalidToken = errors.New("invalid token")

// Claims carried by both access and refresh tokens.
type Claims struct {
	UserID  string `json:"uid"`
	Role    string `json:"role"`
	Type    string `json:"typ"`
	Version int    `json:"ver"`
	jwt.RegisteredClaims
}

// TokenManager signs and parses HS256 tokens. Access and refresh tokens use
// separate secrets so one cannot stand in for the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	clock         clock.Clock
}

// NewTokenManager constructs a token manager.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, clk clock.Clock) *TokenManager {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		clock:         clk,
	}
}

// TokenPair is returned on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// GeneratePair issues an access and a refresh token for the subject.
func (tm *TokenManager) GeneratePair(userID, role string, version int) (TokenPair, error) {
	access, err := tm.sign(userID, role, version, tokenAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := tm.sign(userID, role, version, tokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: int64(tm.accessTTL.Seconds())}, nil
}

// GenerateAccess issues only an access token.
func (tm *TokenManager) GenerateAccess(userID, role string, version int) (string, error) {
	return tm.sign(userID, role, version, tokenAccess)
}

// ParseAccess validates an access token.
func (tm *TokenManager) ParseAccess(token string) (*Claims, error) {
	return tm.parse(token, tm.accessSecret, tokenAccess)
}

// ParseRefresh validates a refresh token.
func (tm *TokenManager) ParseRefresh(token string) (*Claims, error) {
	return tm.parse(token, tm.refreshSecret, tokenRefresh)
}

func (tm *TokenManager) sign(userID, role string, version int, typ string) (string, error) {
	secret, ttl := tm.accessSecret, tm.accessTTL
	if typ == tokenRefresh {
		secret, ttl = tm.refreshSecret, tm.refreshTTL
	}
	now := tm.clock.Now()
	claims := Claims{
		UserID:  userID,
		Role:    role,
		Type:    typ,
		Version: version,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (tm *TokenManager) parse(token string, secret []byte, typ string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || claims.Type != typ || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
