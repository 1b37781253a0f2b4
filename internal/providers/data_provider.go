package providers

import (
	"context"
	"encoding/json"
	"fmt"

	"seafarer/bosun/internal/models/dtos"
)

// UpstreamProvider defines the interface for the Pelagic platform client.
// Every call reports the upstream HTTP status alongside the result and
// never panics on non-success; retry policy belongs to the caller.
type UpstreamProvider interface {
	// Token endpoint
	ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*dtos.TokenResponse, int, error)
	RefreshToken(ctx context.Context, refreshToken string) (*dtos.TokenResponse, int, error)
	RevokeToken(ctx context.Context, token string) (int, error)

	// Profile
	GetProfile(ctx context.Context, accessToken string) (*dtos.UserProfile, int, error)

	// Listing endpoints; records stay opaque for forward compatibility
	ListWorkflows(ctx context.Context, accessToken string) ([]json.RawMessage, int, error)
	ListWorkflowItems(ctx context.Context, accessToken, workflowID string) ([]json.RawMessage, int, error)
	ListAllItems(ctx context.Context, accessToken string) ([]json.RawMessage, int, error)
	ListRegistries(ctx context.Context, accessToken string) ([]json.RawMessage, int, error)
	ListRegistryThings(ctx context.Context, accessToken, registryID string) ([]json.RawMessage, int, error)

	// GraphQL endpoint for chunked historical queries
	QueryGraphQL(ctx context.Context, accessToken, query string) ([]json.RawMessage, int, error)

	// GetProviderType returns the provider type identifier
	GetProviderType() string
}

// ProviderError represents a provider-specific error
type ProviderError struct {
	Code    string
	Message string
	Details string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
