package services

import (
	"context"
	"testing"
	"time"

	"seafarer/bosun/internal/models/dtos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetValidAccessToken_NoConnection(t *testing.T) {
	env := newTestEnv(t)

	token := env.tokenSvc.GetValidAccessToken(context.Background(), "nobody")
	assert.Nil(t, token)

	refresh, _, _ := env.provider.calls()
	assert.Equal(t, 0, refresh)
}

func TestGetValidAccessToken_FreshTokenNoRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, "user-1")

	token := env.tokenSvc.GetValidAccessToken(context.Background(), "user-1")
	require.NotNil(t, token)
	assert.Equal(t, "access-user-1", *token)

	refresh, _, _ := env.provider.calls()
	assert.Equal(t, 0, refresh)
}

func TestGetValidAccessToken_RefreshesExpiringToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// 60s to expiry is inside the refresh skew
	err := env.tokenSvc.StoreConnection(ctx, "user-1", &dtos.TokenResponse{
		AccessToken:  "stale-access",
		RefreshToken: "good-refresh",
		ExpiresIn:    60,
	}, nil)
	require.NoError(t, err)

	env.provider.refreshTokenFunc = func(_ context.Context, refreshToken string) (*dtos.TokenResponse, int, error) {
		assert.Equal(t, "good-refresh", refreshToken)
		return &dtos.TokenResponse{
			AccessToken:  "minted-access",
			RefreshToken: "minted-refresh",
			ExpiresIn:    3600,
		}, 200, nil
	}

	token := env.tokenSvc.GetValidAccessToken(ctx, "user-1")
	require.NotNil(t, token)
	assert.Equal(t, "minted-access", *token)

	refresh, _, _ := env.provider.calls()
	assert.Equal(t, 1, refresh)

	// refreshed credentials were persisted: the next call needs no refresh
	token = env.tokenSvc.GetValidAccessToken(ctx, "user-1")
	require.NotNil(t, token)
	assert.Equal(t, "minted-access", *token)

	refresh, _, _ = env.provider.calls()
	assert.Equal(t, 1, refresh)

	conn, err := env.connRepo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.True(t, conn.TokenExpiresAt.After(time.Now().Add(30*time.Minute)))
}

func TestGetValidAccessToken_RejectedRefreshDeactivates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.tokenSvc.StoreConnection(ctx, "user-1", &dtos.TokenResponse{
		AccessToken:  "stale-access",
		RefreshToken: "revoked-refresh",
		ExpiresIn:    60,
	}, nil)
	require.NoError(t, err)

	env.provider.refreshTokenFunc = func(_ context.Context, _ string) (*dtos.TokenResponse, int, error) {
		return &dtos.TokenResponse{
			Error:            "invalid_grant",
			ErrorDescription: "refresh token revoked",
		}, 400, nil
	}

	token := env.tokenSvc.GetValidAccessToken(ctx, "user-1")
	assert.Nil(t, token)

	conn, err := env.connRepo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.False(t, conn.IsActive)
	assert.Equal(t, "refresh token revoked", conn.DeactivationReason)

	// deactivated connection short-circuits: no second refresh attempt
	token = env.tokenSvc.GetValidAccessToken(ctx, "user-1")
	assert.Nil(t, token)

	refresh, _, _ := env.provider.calls()
	assert.Equal(t, 1, refresh)
}

func TestGetValidAccessToken_UnreadableCiphertextDeactivates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	// simulate a vault key rotation that orphaned the stored ciphertext
	require.NoError(t, env.db.Table("connections").
		Where("user_id = ?", "user-1").
		Update("access_token_enc", "bm90LXJlYWwtY2lwaGVydGV4dA==").Error)

	token := env.tokenSvc.GetValidAccessToken(ctx, "user-1")
	assert.Nil(t, token)

	conn, err := env.connRepo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.False(t, conn.IsActive)
}

func TestStoreConnection_ReconnectUpsertsInPlace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.connect(t, "user-1")
	first, err := env.connRepo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)

	// deactivate, then reconnect
	require.NoError(t, env.connRepo.Deactivate(ctx, "user-1", "refresh failed"))
	env.connect(t, "user-1")

	second, err := env.connRepo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, second.IsActive)

	var count int64
	require.NoError(t, env.db.Table("connections").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStoreConnection_CiphertextAtRest(t *testing.T) {
	env := newTestEnv(t)
	env.connect(t, "user-1")

	conn, err := env.connRepo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, conn)

	assert.NotEqual(t, "access-user-1", conn.AccessTokenEnc)
	assert.NotEqual(t, "refresh-user-1", conn.RefreshTokenEnc)

	access := env.vault.Decrypt(conn.AccessTokenEnc)
	require.NotNil(t, access)
	assert.Equal(t, "access-user-1", *access)
}

func TestDisconnect_RevokesAndDeletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	require.NoError(t, env.tokenSvc.Disconnect(ctx, "user-1"))

	_, revoke, _ := env.provider.calls()
	assert.Equal(t, 1, revoke)

	conn, err := env.connRepo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, conn)
}

func TestDisconnect_RevocationFailureStillDeletes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.connect(t, "user-1")

	env.provider.revokeTokenFunc = func(_ context.Context, _ string) (int, error) {
		return 503, nil
	}

	require.NoError(t, env.tokenSvc.Disconnect(ctx, "user-1"))

	conn, err := env.connRepo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Nil(t, conn)
}
