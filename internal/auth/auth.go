// internal/auth/auth.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/srl-labs/access-gateway/internal/config"
)

// ErrMissingSecret is returned when validation is attempted without a secret.
var ErrMissingSecret = errors.New("JWT secret is not configured")

// Claims are the fields the gateway reads from tokens issued by the external
// login service.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// User returns the username, falling back to the registered subject.
func (c *Claims) User() string {
	if c.Username != "" {
		return c.Username
	}
	return c.RegisteredClaims.Subject
}

// ValidateJWT checks the validity of a JWT string against the configured secret
func ValidateJWT(tokenString string) (*Claims, error) {
	secret := config.AppConfig.JWTSecret
	if secret == "" {
		return nil, ErrMissingSecret
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithLeeway(5*time.Second))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
