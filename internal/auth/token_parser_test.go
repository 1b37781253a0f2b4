package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, claims jwt.MapClaims, secret []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	require.NoError(t, err)
	return signed
}

func TestParseBearerToken_Valid(t *testing.T) {
	tokenString := signToken(t, jwt.MapClaims{
		"sub":  "user-123",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	claims, err := ParseBearerToken(testSecret, tokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID())
	assert.Equal(t, "admin", claims.Role())
	assert.Equal(t, "JWT", claims.Source())
}

func TestParseBearerToken_DefaultsRole(t *testing.T) {
	tokenString := signToken(t, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	claims, err := ParseBearerToken(testSecret, tokenString)
	require.NoError(t, err)
	assert.Equal(t, "user", claims.Role())
}

func TestParseBearerToken_Expired(t *testing.T) {
	tokenString := signToken(t, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}, testSecret)

	_, err := ParseBearerToken(testSecret, tokenString)
	assert.Error(t, err)
}

func TestParseBearerToken_WrongKey(t *testing.T) {
	tokenString := signToken(t, jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(time.Hour).Unix(),
	}, []byte("other-secret"))

	_, err := ParseBearerToken(testSecret, tokenString)
	assert.Error(t, err)
}

func TestParseBearerToken_MissingSubject(t *testing.T) {
	tokenString := signToken(t, jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	_, err := ParseBearerToken(testSecret, tokenString)
	assert.Error(t, err)
}
