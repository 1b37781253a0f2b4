package services

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"seafarer/bosun/internal/db/repositories"
	"seafarer/bosun/internal/models/dtos"
	"seafarer/bosun/internal/models/entities"
	gormModels "seafarer/bosun/internal/models/gorm"
	"seafarer/bosun/internal/vault"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	gormlib "gorm.io/gorm"
)

// mockProvider implements providers.UpstreamProvider with overridable
// function fields. Unset fields return empty successes.
type mockProvider struct {
	mu sync.Mutex

	refreshCalls int
	revokeCalls  int
	graphQLCalls int

	exchangeCodeFunc       func(ctx context.Context, code, redirectURI, codeVerifier string) (*dtos.TokenResponse, int, error)
	refreshTokenFunc       func(ctx context.Context, refreshToken string) (*dtos.TokenResponse, int, error)
	revokeTokenFunc        func(ctx context.Context, token string) (int, error)
	getProfileFunc         func(ctx context.Context, accessToken string) (*dtos.UserProfile, int, error)
	listWorkflowsFunc      func(ctx context.Context, accessToken string) ([]json.RawMessage, int, error)
	listWorkflowItemsFunc  func(ctx context.Context, accessToken, workflowID string) ([]json.RawMessage, int, error)
	listAllItemsFunc       func(ctx context.Context, accessToken string) ([]json.RawMessage, int, error)
	listRegistriesFunc     func(ctx context.Context, accessToken string) ([]json.RawMessage, int, error)
	listRegistryThingsFunc func(ctx context.Context, accessToken, registryID string) ([]json.RawMessage, int, error)
	queryGraphQLFunc       func(ctx context.Context, accessToken, query string) ([]json.RawMessage, int, error)
}

func (m *mockProvider) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*dtos.TokenResponse, int, error) {
	if m.exchangeCodeFunc != nil {
		return m.exchangeCodeFunc(ctx, code, redirectURI, codeVerifier)
	}
	return &dtos.TokenResponse{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600}, 200, nil
}

func (m *mockProvider) RefreshToken(ctx context.Context, refreshToken string) (*dtos.TokenResponse, int, error) {
	m.mu.Lock()
	m.refreshCalls++
	m.mu.Unlock()
	if m.refreshTokenFunc != nil {
		return m.refreshTokenFunc(ctx, refreshToken)
	}
	return &dtos.TokenResponse{AccessToken: "refreshed-access", RefreshToken: "refreshed-refresh", ExpiresIn: 3600}, 200, nil
}

func (m *mockProvider) RevokeToken(ctx context.Context, token string) (int, error) {
	m.mu.Lock()
	m.revokeCalls++
	m.mu.Unlock()
	if m.revokeTokenFunc != nil {
		return m.revokeTokenFunc(ctx, token)
	}
	return 200, nil
}

func (m *mockProvider) GetProfile(ctx context.Context, accessToken string) (*dtos.UserProfile, int, error) {
	if m.getProfileFunc != nil {
		return m.getProfileFunc(ctx, accessToken)
	}
	return &dtos.UserProfile{ID: "pel-user", Email: "skipper@example.com"}, 200, nil
}

func (m *mockProvider) ListWorkflows(ctx context.Context, accessToken string) ([]json.RawMessage, int, error) {
	if m.listWorkflowsFunc != nil {
		return m.listWorkflowsFunc(ctx, accessToken)
	}
	return nil, 200, nil
}

func (m *mockProvider) ListWorkflowItems(ctx context.Context, accessToken, workflowID string) ([]json.RawMessage, int, error) {
	if m.listWorkflowItemsFunc != nil {
		return m.listWorkflowItemsFunc(ctx, accessToken, workflowID)
	}
	return nil, 200, nil
}

func (m *mockProvider) ListAllItems(ctx context.Context, accessToken string) ([]json.RawMessage, int, error) {
	if m.listAllItemsFunc != nil {
		return m.listAllItemsFunc(ctx, accessToken)
	}
	return nil, 200, nil
}

func (m *mockProvider) ListRegistries(ctx context.Context, accessToken string) ([]json.RawMessage, int, error) {
	if m.listRegistriesFunc != nil {
		return m.listRegistriesFunc(ctx, accessToken)
	}
	return nil, 200, nil
}

func (m *mockProvider) ListRegistryThings(ctx context.Context, accessToken, registryID string) ([]json.RawMessage, int, error) {
	if m.listRegistryThingsFunc != nil {
		return m.listRegistryThingsFunc(ctx, accessToken, registryID)
	}
	return nil, 200, nil
}

func (m *mockProvider) QueryGraphQL(ctx context.Context, accessToken, query string) ([]json.RawMessage, int, error) {
	m.mu.Lock()
	m.graphQLCalls++
	m.mu.Unlock()
	if m.queryGraphQLFunc != nil {
		return m.queryGraphQLFunc(ctx, accessToken, query)
	}
	return nil, 200, nil
}

func (m *mockProvider) GetProviderType() string { return "mock" }

func (m *mockProvider) calls() (refresh, revoke, graphQL int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshCalls, m.revokeCalls, m.graphQLCalls
}

// fakeLogStore collects sync log entries in memory.
type fakeLogStore struct {
	mu      sync.Mutex
	entries []entities.SyncLog
}

func (f *fakeLogStore) Append(_ context.Context, entry *entities.SyncLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLogStore) all() []entities.SyncLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entities.SyncLog, len(f.entries))
	copy(out, f.entries)
	return out
}

var testVaultKey = []byte("0123456789abcdef0123456789abcdef")

func setupTestDB(t *testing.T) *gormlib.DB {
	t.Helper()

	db, err := gormlib.Open(sqlite.Open(":memory:"), &gormlib.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&gormModels.Connection{},
		&gormModels.WorkItem{},
		&gormModels.Asset{},
		&gormModels.BiofoulingAssessment{},
		&gormModels.Flow{},
		&gormModels.SyncState{},
	))
	return db
}

type testEnv struct {
	db       *gormlib.DB
	provider *mockProvider
	vault    *vault.Vault
	connRepo *repositories.ConnectionRepo
	tokenSvc *TokenService
	syncSvc  *SyncService
	logStore *fakeLogStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	v, err := vault.New(testVaultKey)
	require.NoError(t, err)

	provider := &mockProvider{}
	connRepo := repositories.NewConnectionRepo(db)
	tokenSvc := NewTokenService(v, provider, connRepo, nil)
	logStore := &fakeLogStore{}

	syncSvc := NewSyncService(
		tokenSvc,
		provider,
		repositories.NewWorkItemRepo(db),
		repositories.NewAssetRepo(db),
		repositories.NewAssessmentRepo(db),
		repositories.NewSyncStateRepo(db),
		repositories.NewFlowRepo(db),
		connRepo,
		logStore,
		nil,
	)

	return &testEnv{
		db:       db,
		provider: provider,
		vault:    v,
		connRepo: connRepo,
		tokenSvc: tokenSvc,
		syncSvc:  syncSvc,
		logStore: logStore,
	}
}

// connect stores an active connection whose access token will not need a
// refresh during the test.
func (e *testEnv) connect(t *testing.T, userID string) {
	t.Helper()
	err := e.tokenSvc.StoreConnection(context.Background(), userID, &dtos.TokenResponse{
		AccessToken:  "access-" + userID,
		RefreshToken: "refresh-" + userID,
		ExpiresIn:    3600,
		Scope:        "inspections:read",
	}, &dtos.UserProfile{ID: "pel-" + userID, Email: userID + "@example.com"})
	require.NoError(t, err)
}
