// internal/auth/auth_test.go
package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srl-labs/access-gateway/internal/config"
)

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func withSecret(t *testing.T, secret string) {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig.JWTSecret = secret
	t.Cleanup(func() { config.AppConfig = prev })
}

func TestValidateJWT(t *testing.T) {
	withSecret(t, "test-secret")

	token := sign(t, jwt.SigningMethodHS256, []byte("test-secret"), &Claims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.User())
}

func TestValidateJWTSubjectFallback(t *testing.T) {
	withSecret(t, "test-secret")

	token := sign(t, jwt.SigningMethodHS256, []byte("test-secret"), &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "bob"},
	})

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "bob", claims.User())
}

func TestValidateJWTRejects(t *testing.T) {
	withSecret(t, "test-secret")

	expired := sign(t, jwt.SigningMethodHS256, []byte("test-secret"), &Claims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	_, err := ValidateJWT(expired)
	assert.Error(t, err)

	wrongKey := sign(t, jwt.SigningMethodHS256, []byte("other"), &Claims{Username: "alice"})
	_, err = ValidateJWT(wrongKey)
	assert.Error(t, err)

	_, err = ValidateJWT("not.a.token")
	assert.Error(t, err)

	none := sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, &Claims{Username: "alice"})
	_, err = ValidateJWT(none)
	assert.Error(t, err)
}

func TestValidateJWTWithoutSecret(t *testing.T) {
	withSecret(t, "")
	_, err := ValidateJWT("anything")
	assert.ErrorIs(t, err, ErrMissingSecret)
}
