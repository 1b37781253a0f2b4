package services

import (
	"context"
	"fmt"
	"time"

	"seafarer/bosun/internal/constants"
	"seafarer/bosun/internal/db/repositories"
	"seafarer/bosun/internal/logging"
	"seafarer/bosun/internal/metrics"
	"seafarer/bosun/internal/models/dtos"
	gormModels "seafarer/bosun/internal/models/gorm"
	"seafarer/bosun/internal/providers"
	"seafarer/bosun/internal/vault"
)

// refreshSkew refreshes tokens slightly before expiry so a credential
// handed to a sync run stays valid for the whole run.
const refreshSkew = 5 * time.Minute

// TokenService is the OAuth credential lifecycle manager. It is the only
// writer of Connection credential fields: callers get "a currently valid
// access token" and never see stored ciphertext.
type TokenService struct {
	vault      *vault.Vault
	provider   providers.UpstreamProvider
	connRepo   *repositories.ConnectionRepo
	metricsReg *metrics.MetricsRegistry
}

func NewTokenService(
	v *vault.Vault,
	provider providers.UpstreamProvider,
	connRepo *repositories.ConnectionRepo,
	metricsReg *metrics.MetricsRegistry,
) *TokenService {
	return &TokenService{
		vault:      v,
		provider:   provider,
		connRepo:   connRepo,
		metricsReg: metricsReg,
	}
}

// GetValidAccessToken returns a usable access token for the user,
// refreshing just-in-time when the stored one is within the skew of
// expiry. Returns nil when no usable credential exists; the caller must
// treat that as "re-authorization required".
func (s *TokenService) GetValidAccessToken(ctx context.Context, userID string) *string {
	conn, err := s.connRepo.GetByUserID(ctx, userID)
	if err != nil {
		logging.Error("Failed to load connection", "user_id", userID, "error", err.Error())
		return nil
	}
	if conn == nil || !conn.IsActive {
		return nil
	}

	needsRefresh := time.Now().After(conn.TokenExpiresAt.Add(-refreshSkew))
	if !needsRefresh {
		access := s.vault.Decrypt(conn.AccessTokenEnc)
		if access == nil {
			s.deactivate(ctx, userID, "stored access token unreadable")
			return nil
		}
		return access
	}

	refresh := s.vault.Decrypt(conn.RefreshTokenEnc)
	if refresh == nil {
		s.deactivate(ctx, userID, "stored refresh token unreadable")
		return nil
	}

	tok, status, err := s.provider.RefreshToken(ctx, *refresh)
	if err != nil {
		s.countRefresh("error")
		s.deactivate(ctx, userID, fmt.Sprintf("token refresh failed: %v", err))
		return nil
	}
	if status < 200 || status >= 300 || tok.Error != "" || tok.AccessToken == "" {
		s.countRefresh("rejected")
		reason := tok.ErrorDescription
		if reason == "" {
			reason = fmt.Sprintf("token refresh rejected with HTTP %d", status)
		}
		s.deactivate(ctx, userID, reason)
		return nil
	}

	if err := s.persistRefreshed(ctx, userID, tok); err != nil {
		logging.Error("Failed to persist refreshed credentials", "user_id", userID, "error", err.Error())
		return nil
	}

	s.countRefresh("success")
	return &tok.AccessToken
}

func (s *TokenService) persistRefreshed(ctx context.Context, userID string, tok *dtos.TokenResponse) error {
	accessEnc, err := s.vault.Encrypt(tok.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	refreshEnc := ""
	if tok.RefreshToken != "" {
		refreshEnc, err = s.vault.Encrypt(tok.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	expiresAt := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return s.connRepo.UpdateCredentials(ctx, userID, accessEnc, refreshEnc, expiresAt)
}

// StoreConnection encrypts and upserts an active connection after a
// successful authorization callback. This is the only path by which a
// connection becomes active.
func (s *TokenService) StoreConnection(ctx context.Context, userID string, tok *dtos.TokenResponse, profile *dtos.UserProfile) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("cannot store connection without an access token")
	}

	accessEnc, err := s.vault.Encrypt(tok.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	refreshEnc := ""
	if tok.RefreshToken != "" {
		refreshEnc, err = s.vault.Encrypt(tok.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
	}

	conn := &gormModels.Connection{
		UserID:          userID,
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
		TokenExpiresAt:  time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		Scopes:          tok.Scope,
		IsActive:        true,
		ConnectedAt:     time.Now().UTC(),
	}
	if profile != nil {
		conn.PelagicUserID = profile.ID
		conn.PelagicEmail = profile.Email
	}

	if err := s.connRepo.Upsert(ctx, conn); err != nil {
		return fmt.Errorf("failed to upsert connection: %w", err)
	}

	logging.Info("Stored upstream connection", "user_id", userID, "scopes", tok.Scope)
	return nil
}

// Disconnect best-effort revokes the current access token upstream, then
// deletes the connection. Irreversible: reconnecting requires a fresh
// authorization.
func (s *TokenService) Disconnect(ctx context.Context, userID string) error {
	conn, err := s.connRepo.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if conn == nil {
		return constants.ErrConnectionNotFound
	}

	if access := s.vault.Decrypt(conn.AccessTokenEnc); access != nil {
		if status, err := s.provider.RevokeToken(ctx, *access); err != nil {
			logging.Warn("Upstream revocation failed", "user_id", userID, "error", err.Error())
		} else if status < 200 || status >= 300 {
			logging.Warn("Upstream revocation rejected", "user_id", userID, "status", status)
		}
	}

	if err := s.connRepo.Delete(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete connection: %w", err)
	}

	logging.Info("Disconnected upstream connection", "user_id", userID)
	return nil
}

func (s *TokenService) deactivate(ctx context.Context, userID, reason string) {
	logging.Warn("Deactivating connection", "user_id", userID, "reason", reason)
	if err := s.connRepo.Deactivate(ctx, userID, reason); err != nil {
		logging.Error("Failed to deactivate connection", "user_id", userID, "error", err.Error())
	}
}

func (s *TokenService) countRefresh(result string) {
	if s.metricsReg != nil {
		s.metricsReg.TokenRefreshes.WithLabelValues(result).Inc()
	}
}
