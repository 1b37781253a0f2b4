package jobs

import (
	"context"
	"log"
	"time"

	"seafarer/bosun/internal/db/repositories"
	"seafarer/bosun/internal/services"
)

// ReconcileJob periodically runs a full sync for every user with an
// active connection, so mirrors converge even for users who never hit
// the manual trigger.
type ReconcileJob struct {
	syncSvc  *services.SyncService
	connRepo *repositories.ConnectionRepo
}

// NewReconcileJob creates a new reconcile job instance
func NewReconcileJob(syncSvc *services.SyncService, connRepo *repositories.ConnectionRepo) *ReconcileJob {
	return &ReconcileJob{
		syncSvc:  syncSvc,
		connRepo: connRepo,
	}
}

// Run executes one reconcile pass over all active connections
func (j *ReconcileJob) Run(ctx context.Context) error {
	start := time.Now()
	log.Printf("[ReconcileJob] Starting reconcile pass at %s", start.Format(time.RFC3339))

	userIDs, err := j.connRepo.ListActiveUserIDs(ctx)
	if err != nil {
		log.Printf("[ReconcileJob] Error fetching active connections: %v", err)
		return err
	}

	if len(userIDs) == 0 {
		log.Printf("[ReconcileJob] No active connections found")
		return nil
	}

	log.Printf("[ReconcileJob] Found %d active connections", len(userIDs))

	failures := 0
	for _, userID := range userIDs {
		res := j.syncSvc.FullSync(ctx, userID)
		if len(res.Errors) > 0 {
			failures++
			log.Printf("[ReconcileJob] User %s finished with errors: %v", userID, res.Errors)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	log.Printf("[ReconcileJob] Completed reconcile pass in %s. Users: %d, with errors: %d",
		time.Since(start).Truncate(time.Millisecond), len(userIDs), failures)

	return nil
}

// RunScheduled runs the reconcile job on a schedule (e.g., every 6 hours)
func (j *ReconcileJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				log.Printf("[ReconcileJob] Error in scheduled run: %v", err)
			}
		case <-ctx.Done():
			log.Printf("[ReconcileJob] Shutting down scheduled reconcile")
			return
		}
	}
}
