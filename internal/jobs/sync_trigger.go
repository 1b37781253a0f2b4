package jobs

import (
	"context"
	"log"
	"time"

	"seafarer/bosun/internal/common"
	"seafarer/bosun/internal/constants"
	"seafarer/bosun/internal/services"
)

// triggerCooldown suppresses repeat opportunistic triggers for a user.
const triggerCooldown = 5 * time.Minute

// OpportunisticTrigger fires a background incremental sync when user
// activity suggests the local mirror may be stale (fresh connect, a read
// of stale data). A per-user cooldown keeps bursts of activity from
// stacking runs; the sync service's own guard handles the rest.
type OpportunisticTrigger struct {
	syncSvc *services.SyncService
	cache   common.CacheInterface
}

// NewOpportunisticTrigger creates a new opportunistic sync trigger
func NewOpportunisticTrigger(syncSvc *services.SyncService, cache common.CacheInterface) *OpportunisticTrigger {
	return &OpportunisticTrigger{
		syncSvc: syncSvc,
		cache:   cache,
	}
}

// Fire schedules an incremental sync for the user unless one ran within
// the cooldown window. Returns true when a sync was actually scheduled.
func (t *OpportunisticTrigger) Fire(userID string) bool {
	key := string(constants.CachePrefixSyncCooldown) + userID
	if _, found := t.cache.Get(key); found {
		return false
	}
	t.cache.Set(key, time.Now(), triggerCooldown)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		if _, err := t.syncSvc.IncrementalSync(ctx, userID); err != nil {
			if err == constants.ErrSyncInProgress {
				return
			}
			log.Printf("[OpportunisticTrigger] Background sync failed for user %s: %v", userID, err)
		}
	}()

	return true
}
