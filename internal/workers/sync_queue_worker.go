package workers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"seafarer/bosun/internal/common"
	"seafarer/bosun/internal/constants"
	"seafarer/bosun/internal/services"
)

const syncWorkerGroup = "sync-workers"

// SyncQueueWorker drains async sync requests off the Redis stream and
// runs them through the orchestrator. Duplicate requests are harmless:
// the orchestrator's guard turns them into skips.
type SyncQueueWorker struct {
	workerID   string
	redisQueue *common.RedisQueueService
	syncSvc    *services.SyncService
}

// NewSyncQueueWorker creates a new sync queue worker
func NewSyncQueueWorker(
	workerID string,
	redisQueue *common.RedisQueueService,
	syncSvc *services.SyncService,
) *SyncQueueWorker {
	return &SyncQueueWorker{
		workerID:   workerID,
		redisQueue: redisQueue,
		syncSvc:    syncSvc,
	}
}

// Start begins processing sync requests with numWorkers consumers.
// Blocks until ctx is cancelled.
func (w *SyncQueueWorker) Start(ctx context.Context, numWorkers int) error {
	log.Printf("[SyncQueueWorker] Starting %d workers with ID prefix: %s", numWorkers, w.workerID)

	if err := w.redisQueue.CreateConsumerGroup(ctx, common.SyncRequestStream, syncWorkerGroup); err != nil {
		log.Printf("[SyncQueueWorker] Warning - failed to create consumer group: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		workerName := fmt.Sprintf("%s-worker-%d", w.workerID, i)

		go func(workerName string) {
			defer wg.Done()
			w.processQueue(ctx, workerName)
		}(workerName)
	}

	wg.Wait()
	log.Printf("[SyncQueueWorker] All workers stopped")
	return nil
}

// processQueue continuously processes sync requests from the stream
func (w *SyncQueueWorker) processQueue(ctx context.Context, workerName string) {
	log.Printf("[%s] Started processing queue: %s", workerName, common.SyncRequestStream)

	processedCount := 0
	errorCount := 0

	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] Shutting down. Processed: %d, Errors: %d", workerName, processedCount, errorCount)
			return
		default:
			req, messageID, err := w.redisQueue.DequeueSyncRequest(ctx, common.SyncRequestStream, syncWorkerGroup, workerName, 5*time.Second)
			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("[%s] Dequeue error: %v", workerName, err)
				errorCount++
				time.Sleep(time.Second)
				continue
			}
			if req == nil {
				continue
			}

			if err := w.runSync(ctx, req); err != nil {
				log.Printf("[%s] Sync failed for user %s (%s): %v", workerName, req.UserID, req.EntityType, err)
				errorCount++
			} else {
				processedCount++
			}

			// Ack either way; a failed run is recorded in the sync log
			// and state, not retried from the stream.
			if err := w.redisQueue.AckSyncRequest(ctx, common.SyncRequestStream, syncWorkerGroup, messageID); err != nil {
				log.Printf("[%s] Failed to ack message %s: %v", workerName, messageID, err)
			}
		}
	}
}

func (w *SyncQueueWorker) runSync(ctx context.Context, req *common.SyncRequest) error {
	var err error
	switch constants.EntityType(req.EntityType) {
	case constants.EntityWorkItems:
		_, err = w.syncSvc.SyncWorkItems(ctx, req.UserID)
	case constants.EntityAssets:
		_, err = w.syncSvc.SyncAssets(ctx, req.UserID)
	case constants.EntityFlows:
		_, err = w.syncSvc.SyncFlows(ctx, req.UserID)
	default:
		return fmt.Errorf("unknown entity type: %s", req.EntityType)
	}

	if errors.Is(err, constants.ErrSyncInProgress) {
		// Another run owns the guard; nothing to do.
		return nil
	}
	return err
}
