// Package token mints and verifies the session credential pair. Tokens are
// stateless: regenerable from the signing secret and never persisted, with
// cryptographic expiry as the only invalidation mechanism.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"enrollgate/internal/registration/models"
	dErrors "enrollgate/pkg/domain-errors"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims binds an account and role to a signed bearer token.
type Claims struct {
	AccountID string      `json:"account_id"`
	Role      models.Role `json:"role"`
	TokenType string      `json:"token_type"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies token pairs with a shared HMAC secret.
type Issuer struct {
	signingSecret   []byte
	issuer          string
	accessLifetime  time.Duration
	refreshLifetime time.Duration
}

func NewIssuer(signingSecret, issuer string, accessLifetime, refreshLifetime time.Duration) *Issuer {
	return &Issuer{
		signingSecret:   []byte(signingSecret),
		issuer:          issuer,
		accessLifetime:  accessLifetime,
		refreshLifetime: refreshLifetime,
	}
}

// IssuePair mints an access and a refresh token for the account. Stateless
// and side-effect-free.
func (i *Issuer) IssuePair(accountID uuid.UUID, role models.Role) (models.TokenPair, error) {
	access, err := i.sign(accountID, role, TypeAccess, i.accessLifetime)
	if err != nil {
		return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}
	refresh, err := i.sign(accountID, role, TypeRefresh, i.refreshLifetime)
	if err != nil {
		return models.TokenPair{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign refresh token")
	}
	return models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh verifies a refresh token and re-signs a fresh access token with
// the same claims. There is no revocation list; a refresh token stays valid
// until its own expiry.
func (i *Issuer) Refresh(refreshToken string) (string, error) {
	claims, err := i.parse(refreshToken)
	if err != nil {
		return "", err
	}
	if claims.TokenType != TypeRefresh {
		return "", dErrors.New(dErrors.CodeUnauthorized, "not a refresh token")
	}

	accountID, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	access, err := i.sign(accountID, claims.Role, TypeAccess, i.accessLifetime)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}
	return access, nil
}

// Verify validates an access token and returns its claims. Used by the
// surrounding application's authenticated routes.
func (i *Issuer) Verify(accessToken string) (*Claims, error) {
	claims, err := i.parse(accessToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TypeAccess {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "not an access token")
	}
	return claims, nil
}

func (i *Issuer) sign(accountID uuid.UUID, role models.Role, tokenType string, lifetime time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccountID: accountID.String(),
		Role:      role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			ID:        uuid.NewString(),
		},
	})
	return t.SignedString(i.signingSecret)
}

func (i *Issuer) parse(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
