package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Claims are the fields the auth service puts in the access token
type Claims struct {
	UserID int64  `json:"sub"`
	Name   string `json:"name"`
	Status string `json:"status"`
	jwt.RegisteredClaims
}

// Inspect decodes an access token without verifying its signature. The
// client cannot verify it and only uses the result for display and
// expiry hints; the server stays the authority.
func Inspect(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, errors.Wrap(err, "failed to parse access token")
	}
	return claims, nil
}

// Expiry returns the token expiry, zero when the token has none
func (c *Claims) Expiry() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

// Expired reports whether the token had expired at now
func (c *Claims) Expired(now time.Time) bool {
	exp := c.Expiry()
	return !exp.IsZero() && !now.Before(exp)
}
