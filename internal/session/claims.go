package session

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims carried by the platform's HS256 access tokens.
// The identity provider signs them; the client only reads them to recover
// the user id and role for routing guards and expiry checks.
type AccessClaims struct {
	UserID string `json:"sub"`
	Name   string `json:"name,omitempty"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// ParseClaims decodes tokenString without signature verification and returns
// its claims. The token was issued by the external identity provider and is
// verified server-side on every request; locally we only need the role and
// expiry out of it. Expired or malformed tokens still return an error.
func ParseClaims(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parser := jwt.NewParser(jwt.WithExpirationRequired())
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if err := jwt.NewValidator().Validate(claims); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: missing subject")
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("invalid token: unknown role %q", claims.Role)
	}
	return claims, nil
}
