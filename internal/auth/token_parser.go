package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ParseBearerToken validates an HMAC-signed API token and extracts the
// caller's claims. Expiry is enforced by the jwt library's default
// validator.
func ParseBearerToken(secretKey []byte, tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	userID, ok := (*claims)["sub"].(string)
	if !ok || userID == "" {
		return nil, errors.New("missing or invalid sub claim")
	}

	role, _ := (*claims)["role"].(string)
	if role == "" {
		role = "user"
	}

	return &JWTClaims{
		UserUUID:  userID,
		RoleValue: role,
	}, nil
}
