package common

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// OAuthState is the decoded contents of a state token handed back by the
// authorize redirect.
type OAuthState struct {
	UserID       string
	StateID      string
	CodeVerifier string
	ExpiresAt    time.Time
}

// OAuthStateService generates and validates signed OAuth state tokens.
// State tokens are HMAC-signed JWTs carrying the PKCE code verifier, and
// are single-use: the jti is marked in Redis on first validation.
type OAuthStateService struct {
	secretKey []byte
	redis     *redis.Client
}

// NewOAuthStateService creates a new OAuth state service
func NewOAuthStateService(secretKey []byte, redis *redis.Client) *OAuthStateService {
	return &OAuthStateService{
		secretKey: secretKey,
		redis:     redis,
	}
}

// GenerateCodeVerifier produces a PKCE code verifier (RFC 7636, 43-128
// chars of unreserved characters). 32 random bytes base64url-encoded.
func GenerateCodeVerifier() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CodeChallenge derives the S256 code challenge from a verifier.
func CodeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateState signs a state token binding the connect flow to userID.
// The PKCE verifier rides inside the token so the callback handler can
// recover it without server-side session storage.
func (s *OAuthStateService) GenerateState(userID, codeVerifier string, ttl time.Duration) (string, error) {
	stateID := uuid.New().String()
	expiresAt := time.Now().Add(ttl)

	claims := jwt.MapClaims{
		"user_id":  userID,
		"verifier": codeVerifier,
		"jti":      stateID,
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	}

	// Sign with HMAC
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}

	return tokenString, nil
}

// ValidateState parses a state token and verifies signature, expiry and
// single-use status. It does NOT mark the state as used; callers do that
// after the code exchange succeeds via MarkStateUsed.
func (s *OAuthStateService) ValidateState(ctx context.Context, stateString string) (*OAuthState, error) {
	token, err := jwt.ParseWithClaims(stateString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse state: %w", err)
	}

	claims, ok := token.Claims.(*jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid state token")
	}

	userID, ok := (*claims)["user_id"].(string)
	if !ok {
		return nil, errors.New("missing or invalid user_id claim")
	}

	verifier, ok := (*claims)["verifier"].(string)
	if !ok {
		return nil, errors.New("missing or invalid verifier claim")
	}

	stateID, ok := (*claims)["jti"].(string)
	if !ok {
		return nil, errors.New("missing or invalid jti claim")
	}

	expFloat, ok := (*claims)["exp"].(float64)
	if !ok {
		return nil, errors.New("missing or invalid exp claim")
	}
	expiresAt := time.Unix(int64(expFloat), 0)

	if time.Now().After(expiresAt) {
		return nil, errors.New("state expired")
	}

	used, err := s.IsStateUsed(ctx, stateID)
	if err != nil {
		return nil, fmt.Errorf("failed to check state usage: %w", err)
	}
	if used {
		return nil, errors.New("state already used")
	}

	return &OAuthState{
		UserID:       userID,
		StateID:      stateID,
		CodeVerifier: verifier,
		ExpiresAt:    expiresAt,
	}, nil
}

// MarkStateUsed records a state jti as consumed (single-use enforcement)
func (s *OAuthStateService) MarkStateUsed(ctx context.Context, stateID string) error {
	// TTL only needs to outlive the state token itself
	ttl := 15 * time.Minute

	err := s.redis.Set(ctx, "used_state:"+stateID, "1", ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to mark state as used: %w", err)
	}

	return nil
}

// IsStateUsed checks if a state token has already been consumed
func (s *OAuthStateService) IsStateUsed(ctx context.Context, stateID string) (bool, error) {
	result, err := s.redis.Get(ctx, "used_state:"+stateID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check state usage: %w", err)
	}
	return result == "1", nil
}
