package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every verification failure: bad signature,
// malformed token, or expiry. Callers must not learn which case occurred.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the set of claims that tie a token to a user.
type Identity struct {
	UserID   int64
	Username string
}

// Claims is the JWT payload for access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"uid,omitempty"`
	Username string `json:"username,omitempty"`
}

// ResetClaims is the JWT payload for password-reset tokens. It deliberately
// carries only the user id.
type ResetClaims struct {
	jwt.RegisteredClaims
	UserID int64 `json:"userId"`
}

// IssuerConfig holds the three signing secrets and token lifetimes. The
// secrets are independent so that leaking one cannot forge tokens of
// another kind.
type IssuerConfig struct {
	AccessSecret  string
	RefreshSecret string
	ResetSecret   string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	ResetTTL      time.Duration
}

// Issuer mints and verifies HS256-signed access, refresh, and password-reset
// tokens.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	resetSecret   []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	resetTTL      time.Duration
	now           func() time.Time // injectable clock for testing
}

// NewIssuer creates an Issuer. All three secrets must be non-empty.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" || cfg.ResetSecret == "" {
		return nil, fmt.Errorf("all three token secrets must be configured")
	}
	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		resetSecret:   []byte(cfg.ResetSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		resetTTL:      cfg.ResetTTL,
		now:           time.Now,
	}, nil
}

// IssueAccessToken signs the identity claims with the access secret.
func (i *Issuer) IssueAccessToken(id Identity) (string, error) {
	return i.sign(id, i.accessSecret, i.accessTTL)
}

// IssueRefreshToken signs the identity claims with the refresh secret. The
// identity is embedded so that a later refresh can mint an access token for
// the same user without a store lookup.
func (i *Issuer) IssueRefreshToken(id Identity) (string, error) {
	return i.sign(id, i.refreshSecret, i.refreshTTL)
}

// IssuePasswordResetToken signs {userId} with the reset secret.
func (i *Issuer) IssuePasswordResetToken(userID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ResetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(i.now().Add(i.resetTTL)),
			IssuedAt:  jwt.NewNumericDate(i.now()),
		},
		UserID: userID,
	})
	signed, err := token.SignedString(i.resetSecret)
	if err != nil {
		return "", fmt.Errorf("signing reset token: %w", err)
	}
	return signed, nil
}

func (i *Issuer) sign(id Identity, secret []byte, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(i.now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(i.now()),
		},
		UserID:   id.UserID,
		Username: id.Username,
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken validates signature and expiry against the access secret.
func (i *Issuer) VerifyAccessToken(tokenString string) (*Claims, error) {
	return i.verify(tokenString, i.accessSecret)
}

// VerifyRefreshToken validates signature and expiry against the refresh secret.
func (i *Issuer) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return i.verify(tokenString, i.refreshSecret)
}

// VerifyPasswordResetToken validates a reset token and returns the user id
// it was issued for.
func (i *Issuer) VerifyPasswordResetToken(tokenString string) (int64, error) {
	claims := &ResetClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.resetSecret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}
	return claims.UserID, nil
}

func (i *Issuer) verify(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
