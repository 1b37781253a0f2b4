package api

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"seafarer/bosun/internal/auth"
	"seafarer/bosun/internal/common"
	"seafarer/bosun/internal/jobs"
	"seafarer/bosun/internal/logging"
	"seafarer/bosun/internal/models/dtos"
)

// stateTTL bounds how long a connect URL stays redeemable.
const stateTTL = 10 * time.Minute

func authorizeURL() string {
	if u := os.Getenv("PELAGIC_AUTHORIZE_URL"); u != "" {
		return u
	}
	return "https://app.pelagic.io/oauth2/authorize"
}

func redirectURI() string {
	return os.Getenv("PELAGIC_REDIRECT_URI")
}

// GetConnectURL handles GET /api/v1/connections/url
// Returns the upstream authorize URL with a signed single-use state and
// a PKCE challenge baked in.
func (h *Handlers) GetConnectURL() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		verifier, err := common.GenerateCodeVerifier()
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to generate code verifier", http.StatusInternalServerError)
			return
		}

		state, err := h.deps.Services.OAuthState.GenerateState(claims.UserID(), verifier, stateTTL)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to sign state", http.StatusInternalServerError)
			return
		}

		params := url.Values{
			"response_type":         {"code"},
			"client_id":             {os.Getenv("PELAGIC_CLIENT_ID")},
			"redirect_uri":          {redirectURI()},
			"scope":                 {"inspections:read vessels:read workflows:read offline_access"},
			"state":                 {state},
			"code_challenge":        {common.CodeChallenge(verifier)},
			"code_challenge_method": {"S256"},
		}

		resp := dtos.ConnectURLResponse{
			AuthorizeURL: authorizeURL() + "?" + params.Encode(),
			State:        state,
		}
		common.RespondSuccess(w, initTime, "Connect URL generated", resp)
	}
}

// OAuthCallback handles GET /api/v1/connections/callback
// Redeems the authorization code, stores the encrypted credential, and
// kicks off an opportunistic first sync.
func (h *Handlers) OAuthCallback(trigger *jobs.OpportunisticTrigger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		code := r.URL.Query().Get("code")
		stateParam := r.URL.Query().Get("state")
		if code == "" || stateParam == "" {
			common.RespondError(w, initTime, nil, "Missing code or state parameter", http.StatusBadRequest)
			return
		}

		state, err := h.deps.Services.OAuthState.ValidateState(r.Context(), stateParam)
		if err != nil {
			common.RespondError(w, initTime, err, "Invalid state", http.StatusBadRequest)
			return
		}

		tok, status, err := h.deps.Services.Provider.ExchangeCode(r.Context(), code, redirectURI(), state.CodeVerifier)
		if err != nil {
			common.RespondError(w, initTime, err, "Token exchange failed", http.StatusBadGateway)
			return
		}
		if tok.Error != "" || tok.AccessToken == "" {
			logging.Warn("Code exchange rejected by upstream",
				"user_id", state.UserID,
				"status", status,
				"error", tok.Error,
			)
			common.RespondError(w, initTime, fmt.Errorf("upstream rejected code: %s", tok.Error),
				"Authorization was not accepted", http.StatusBadGateway)
			return
		}

		profile, _, err := h.deps.Services.Provider.GetProfile(r.Context(), tok.AccessToken)
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to fetch upstream profile", http.StatusBadGateway)
			return
		}

		if err := h.deps.Services.Token.StoreConnection(r.Context(), state.UserID, tok, profile); err != nil {
			common.RespondError(w, initTime, err, "Failed to store connection", http.StatusInternalServerError)
			return
		}

		if err := h.deps.Services.OAuthState.MarkStateUsed(r.Context(), state.StateID); err != nil {
			logging.Warn("Failed to mark state as used", "state_id", state.StateID, "error", err.Error())
		}

		// Warm the mirror right away; failures surface in sync status.
		if trigger != nil {
			trigger.Fire(state.UserID)
		}

		common.RespondSuccess(w, initTime, "Connection established", dtos.ConnectionStatusResponse{
			Connected:    true,
			PelagicEmail: profile.Email,
			Scopes:       tok.Scope,
		})
	}
}

// GetConnectionStatus handles GET /api/v1/connections/status
func (h *Handlers) GetConnectionStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		conn, err := h.deps.Repo.Connection.GetByUserID(r.Context(), claims.UserID())
		if err != nil {
			common.RespondError(w, initTime, err, "Failed to fetch connection", http.StatusInternalServerError)
			return
		}

		resp := dtos.ConnectionStatusResponse{}
		if conn != nil && conn.IsActive {
			resp.Connected = true
			resp.PelagicEmail = conn.PelagicEmail
			resp.Scopes = conn.Scopes
			if conn.LastSyncAt != nil {
				s := conn.LastSyncAt.UTC().Format(time.RFC3339)
				resp.LastSyncAt = &s
			}
		}
		common.RespondSuccess(w, initTime, "Connection status", resp)
	}
}

// DeleteConnection handles DELETE /api/v1/connections
// Revokes upstream (best effort) and removes the stored credential.
func (h *Handlers) DeleteConnection() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		claims := auth.GetUserClaims(r.Context())
		if claims == nil {
			common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
			return
		}

		if err := h.deps.Services.Token.Disconnect(r.Context(), claims.UserID()); err != nil {
			common.RespondError(w, initTime, err, "Failed to disconnect", http.StatusInternalServerError)
			return
		}

		common.RespondSuccess(w, initTime, "Connection removed", nil)
	}
}
