package api

import (
	"fmt"
	"os"

	"seafarer/bosun/internal/common"
	"seafarer/bosun/internal/db"
	"seafarer/bosun/internal/db/repositories"
	"seafarer/bosun/internal/metrics"
	"seafarer/bosun/internal/providers"
	"seafarer/bosun/internal/services"
	"seafarer/bosun/internal/vault"

	"github.com/redis/go-redis/v9"
)

type Repositories struct {
	Connection *repositories.ConnectionRepo
	WorkItem   *repositories.WorkItemRepo
	Asset      *repositories.AssetRepo
	Assessment *repositories.AssessmentRepo
	SyncState  *repositories.SyncStateRepo
	Flow       *repositories.FlowRepo
	SyncLog    *repositories.SyncLogRepo
}

type Services struct {
	Vault      *vault.Vault
	Provider   providers.UpstreamProvider
	Token      *services.TokenService
	Sync       *services.SyncService
	Cache      *common.CacheService
	OAuthState *common.OAuthStateService
	RedisQueue *common.RedisQueueService
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
}

// InitDependencies wires the full object graph: vault, provider,
// repositories and services, sharing the one Redis client and metrics
// registry across everything.
func InitDependencies(metricsReg *metrics.MetricsRegistry, redisClient *redis.Client) (*Dependencies, error) {

	v, err := vault.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault: %w", err)
	}

	repos := &Repositories{
		Connection: repositories.NewConnectionRepo(db.PgDB),
		WorkItem:   repositories.NewWorkItemRepo(db.PgDB),
		Asset:      repositories.NewAssetRepo(db.PgDB),
		Assessment: repositories.NewAssessmentRepo(db.PgDB),
		SyncState:  repositories.NewSyncStateRepo(db.PgDB),
		Flow:       repositories.NewFlowRepo(db.PgDB),
		SyncLog:    repositories.NewSyncLogRepo(db.DB),
	}

	provider := providers.NewPelagicProvider(metricsReg)
	tokenSvc := services.NewTokenService(v, provider, repos.Connection, metricsReg)
	syncSvc := services.NewSyncService(
		tokenSvc,
		provider,
		repos.WorkItem,
		repos.Asset,
		repos.Assessment,
		repos.SyncState,
		repos.Flow,
		repos.Connection,
		repos.SyncLog,
		metricsReg,
	)

	stateSecret := []byte(os.Getenv("OAUTH_STATE_SECRET"))
	if len(stateSecret) == 0 {
		return nil, fmt.Errorf("OAUTH_STATE_SECRET is not set")
	}

	svcs := &Services{
		Vault:      v,
		Provider:   provider,
		Token:      tokenSvc,
		Sync:       syncSvc,
		Cache:      common.NewCacheService(300, 600),
		OAuthState: common.NewOAuthStateService(stateSecret, redisClient),
		RedisQueue: common.NewRedisQueueService(redisClient),
	}

	return &Dependencies{
		Repo:     repos,
		Services: svcs,
	}, nil
}
