package jobs

import (
	"context"
	"time"

	"seafarer/bosun/internal/common"
	"seafarer/bosun/internal/db/repositories"
	"seafarer/bosun/internal/services"
)

// JobsContainer holds the background jobs started at boot.
type JobsContainer struct {
	Reconcile *ReconcileJob
	Trigger   *OpportunisticTrigger
}

// InitializeJobs initializes and starts all background jobs
func InitializeJobs(
	ctx context.Context,
	syncSvc *services.SyncService,
	connRepo *repositories.ConnectionRepo,
	cache common.CacheInterface,
) *JobsContainer {
	reconcileJob := NewReconcileJob(syncSvc, connRepo)

	// Reconcile every active connection every 6 hours
	go reconcileJob.RunScheduled(ctx, 6*time.Hour)

	return &JobsContainer{
		Reconcile: reconcileJob,
		Trigger:   NewOpportunisticTrigger(syncSvc, cache),
	}
}
