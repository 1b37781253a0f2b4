package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"seafarer/bosun/internal/constants"
	"seafarer/bosun/internal/metrics"
	"seafarer/bosun/internal/models/dtos"

	"golang.org/x/time/rate"
)

// PelagicProvider implements UpstreamProvider against the Pelagic
// maritime-operations platform. It is stateless: the caller supplies the
// access token on every call.
type PelagicProvider struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Client       *http.Client

	// GraphQL chunk queries scan large windows upstream and get a more
	// generous timeout than the listing endpoints.
	GraphQLClient *http.Client

	limiter    *rate.Limiter
	metricsReg *metrics.MetricsRegistry
}

// NewPelagicProvider creates a new Pelagic platform provider
func NewPelagicProvider(metricsReg *metrics.MetricsRegistry) *PelagicProvider {
	baseURL := os.Getenv("PELAGIC_API_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.pelagic.io" // Default
	}

	return &PelagicProvider{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		ClientID:     os.Getenv("PELAGIC_CLIENT_ID"),
		ClientSecret: os.Getenv("PELAGIC_CLIENT_SECRET"),
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
		GraphQLClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:    rate.NewLimiter(rate.Limit(10), 20), // 10 req/sec, burst 20
		metricsReg: metricsReg,
	}
}

// GetProviderType returns the provider type identifier
func (p *PelagicProvider) GetProviderType() string {
	return "pelagic"
}

// ============================================================================
// Token endpoint
// ============================================================================

// ExchangeCode redeems an authorization code (PKCE) for tokens.
func (p *PelagicProvider) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*dtos.TokenResponse, int, error) {
	form := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {p.ClientID},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {codeVerifier},
	}
	if p.ClientSecret != "" {
		form.Set("client_secret", p.ClientSecret)
	}

	return p.doTokenRequest(ctx, form)
}

// RefreshToken redeems a refresh token for a new token pair.
func (p *PelagicProvider) RefreshToken(ctx context.Context, refreshToken string) (*dtos.TokenResponse, int, error) {
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {p.ClientID},
		"refresh_token": {refreshToken},
	}
	if p.ClientSecret != "" {
		form.Set("client_secret", p.ClientSecret)
	}

	return p.doTokenRequest(ctx, form)
}

func (p *PelagicProvider) doTokenRequest(ctx context.Context, form url.Values) (*dtos.TokenResponse, int, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	endpoint := p.BaseURL + "/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := p.Client.Do(req)
	if err != nil {
		p.observe("token", 0, start)
		return nil, 0, &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: "token endpoint unreachable",
			Err:     err,
		}
	}
	defer resp.Body.Close()
	p.observe("token", resp.StatusCode, start)

	var tok dtos.TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return nil, resp.StatusCode, &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: "token endpoint returned malformed body",
			Err:     err,
		}
	}

	// OAuth error bodies come back as data, not as a Go error: the token
	// lifecycle manager decides what a rejected grant means.
	return &tok, resp.StatusCode, nil
}

// RevokeToken best-effort revokes a token upstream.
func (p *PelagicProvider) RevokeToken(ctx context.Context, token string) (int, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	form := url.Values{
		"token":     {token},
		"client_id": {p.ClientID},
	}

	endpoint := p.BaseURL + "/oauth2/revoke"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := p.Client.Do(req)
	if err != nil {
		p.observe("revoke", 0, start)
		return 0, &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: "revoke endpoint unreachable",
			Err:     err,
		}
	}
	defer resp.Body.Close()
	p.observe("revoke", resp.StatusCode, start)

	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// ============================================================================
// Profile and listing endpoints
// ============================================================================

// GetProfile fetches the authorized user's upstream profile.
func (p *PelagicProvider) GetProfile(ctx context.Context, accessToken string) (*dtos.UserProfile, int, error) {
	var profile dtos.UserProfile
	status, err := p.doGET(ctx, accessToken, "/v1/me", "profile", &profile)
	if err != nil {
		return nil, status, err
	}
	return &profile, status, nil
}

// ListWorkflows lists the workflow definitions visible to the user.
func (p *PelagicProvider) ListWorkflows(ctx context.Context, accessToken string) ([]json.RawMessage, int, error) {
	return p.doListGET(ctx, accessToken, "/v1/workflows", "workflows")
}

// ListWorkflowItems lists work items belonging to one workflow.
func (p *PelagicProvider) ListWorkflowItems(ctx context.Context, accessToken, workflowID string) ([]json.RawMessage, int, error) {
	endpoint := fmt.Sprintf("/v1/workflows/%s/items", url.PathEscape(workflowID))
	return p.doListGET(ctx, accessToken, endpoint, "workflow_items")
}

// ListAllItems is the catch-all item listing across workflows.
func (p *PelagicProvider) ListAllItems(ctx context.Context, accessToken string) ([]json.RawMessage, int, error) {
	return p.doListGET(ctx, accessToken, "/v1/items", "all_items")
}

// ListRegistries lists the registries visible to the user.
func (p *PelagicProvider) ListRegistries(ctx context.Context, accessToken string) ([]json.RawMessage, int, error) {
	return p.doListGET(ctx, accessToken, "/v1/registries", "registries")
}

// ListRegistryThings lists the things of one registry.
func (p *PelagicProvider) ListRegistryThings(ctx context.Context, accessToken, registryID string) ([]json.RawMessage, int, error) {
	endpoint := fmt.Sprintf("/v1/registries/%s/things", url.PathEscape(registryID))
	return p.doListGET(ctx, accessToken, endpoint, "registry_things")
}

// ============================================================================
// GraphQL endpoint
// ============================================================================

// QueryGraphQL posts a query and returns the records of the single list
// field under data. Used by the date-chunked historical extraction.
func (p *PelagicProvider) QueryGraphQL(ctx context.Context, accessToken, query string) ([]json.RawMessage, int, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, 0, err
	}

	endpoint := p.BaseURL + "/graphql"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := p.GraphQLClient.Do(req)
	if err != nil {
		p.observe("graphql", 0, start)
		return nil, 0, &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: "graphql endpoint unreachable",
			Err:     err,
		}
	}
	defer resp.Body.Close()
	p.observe("graphql", resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, resp.StatusCode, &ProviderError{
			Code:    constants.ErrCodeUpstreamRejected,
			Message: fmt.Sprintf("graphql endpoint returned HTTP %d", resp.StatusCode),
			Details: string(raw),
		}
	}

	var envelope struct {
		Data   map[string]json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, resp.StatusCode, &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: "graphql endpoint returned malformed body",
			Err:     err,
		}
	}

	if len(envelope.Errors) > 0 {
		return nil, resp.StatusCode, &ProviderError{
			Code:    constants.ErrCodeUpstreamRejected,
			Message: "graphql query rejected: " + envelope.Errors[0].Message,
		}
	}

	// the chunk queries select exactly one list field
	for _, raw := range envelope.Data {
		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, resp.StatusCode, &ProviderError{
				Code:    constants.ErrCodeInvalidDataFormat,
				Message: "graphql list field is not an array",
				Err:     err,
			}
		}
		return records, resp.StatusCode, nil
	}

	return []json.RawMessage{}, resp.StatusCode, nil
}

// ============================================================================
// HTTP helper methods
// ============================================================================

// doGET performs an authenticated GET and decodes the body into result.
func (p *PelagicProvider) doGET(ctx context.Context, accessToken, endpoint, name string, result interface{}) (int, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := p.Client.Do(req)
	if err != nil {
		p.observe(name, 0, start)
		return 0, &ProviderError{
			Code:    constants.ErrCodeUpstreamUnavailable,
			Message: fmt.Sprintf("%s endpoint unreachable", name),
			Err:     err,
		}
	}
	defer resp.Body.Close()
	p.observe(name, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, &ProviderError{
			Code:    constants.ErrCodeUpstreamRejected,
			Message: fmt.Sprintf("%s endpoint returned HTTP %d", name, resp.StatusCode),
			Details: string(raw),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return resp.StatusCode, &ProviderError{
			Code:    constants.ErrCodeInvalidDataFormat,
			Message: fmt.Sprintf("%s endpoint returned malformed body", name),
			Err:     err,
		}
	}

	return resp.StatusCode, nil
}

// doListGET performs an authenticated GET against a listing endpoint and
// returns the opaque record array.
func (p *PelagicProvider) doListGET(ctx context.Context, accessToken, endpoint, name string) ([]json.RawMessage, int, error) {
	var records []json.RawMessage
	status, err := p.doGET(ctx, accessToken, endpoint, name, &records)
	if err != nil {
		return nil, status, err
	}
	return records, status, nil
}

func (p *PelagicProvider) observe(endpoint string, status int, start time.Time) {
	if p.metricsReg == nil {
		return
	}
	p.metricsReg.UpstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	p.metricsReg.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
