package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/travio/travio-client/pkg/travio"
)

// AccessClaims are the claims the identity service puts in access tokens.
type AccessClaims struct {
	UserID         string `json:"uid"`
	OrganizationID string `json:"oid"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// ParseAccessToken decodes the claims of an access token without verifying
// its signature. The gateway verifies; the client only reads.
func ParseAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}

	_, _, err := jwt.NewParser().ParseUnverified(token, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", travio.ErrInvalidToken, err)
	}

	return claims, nil
}

// Identity returns the principal carried by the claims, or nil when the
// token names no user.
func (c *AccessClaims) Identity() *travio.Identity {
	userID := c.UserID
	if userID == "" {
		userID = c.Subject
	}

	if userID == "" {
		return nil
	}

	return &travio.Identity{
		UserID:         userID,
		OrganizationID: c.OrganizationID,
		Role:           c.Role,
	}
}

// Expiry returns the exp claim, or the zero time.
func (c *AccessClaims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}

	return c.ExpiresAt.Time
}

// IdentityFromToken decodes the principal from an access token.
func IdentityFromToken(token string) (*travio.Identity, error) {
	claims, err := ParseAccessToken(token)
	if err != nil {
		return nil, err
	}

	identity := claims.Identity()
	if identity == nil {
		return nil, fmt.Errorf("%w: no subject", travio.ErrInvalidToken)
	}

	return identity, nil
}
