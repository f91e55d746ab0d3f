package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenIssuer signs HS256 access tokens for logged-in users.
type TokenIssuer struct {
	key    []byte
	issuer string
	ttl     time.Duration
	now     func() time.Time
	revoked Revocations
}

func NewTokenIssuer(key []byte, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{key: key, issuer: issuer, ttl: ttl, now: time.Now}
}

// WithRevocations enables logout. Revoked tokens are refused by the
// middleware built from Config.
func (ti *TokenIssuer) WithRevocations(r Revocations) *TokenIssuer {
	ti.revoked = r
	return ti
}

// Issue returns a signed token for userID and its expiry.
func (ti *TokenIssuer) Issue(userID, name, role string) (string, time.Time, error) {
	now := ti.now()
	exp := now.Add(ti.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    ti.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Name:  name,
		Roles: []string{role},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses and validates a token signed by this issuer.
func (ti *TokenIssuer) Verify(tokenStr string) (*Claims, error) {
	return parseToken(tokenStr, ti.key, ti.issuer)
}

// Revoke invalidates tokenStr for the rest of its lifetime. Without a
// revocation store it does nothing.
func (ti *TokenIssuer) Revoke(ctx context.Context, tokenStr string) error {
	if ti.revoked == nil {
		return nil
	}
	claims, err := ti.Verify(tokenStr)
	if err != nil {
		return err
	}
	exp := ti.now().Add(ti.ttl)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return ti.revoked.Revoke(ctx, claims.ID, exp)
}

// Config returns the middleware configuration matching this issuer.
func (ti *TokenIssuer) Config() JWTConfig {
	return JWTConfig{Issuer: ti.issuer, SigningKey: ti.key, Skipper: AuthSkipper, Revocations: ti.revoked}
}
