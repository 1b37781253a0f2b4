package workers

import (
	"context"

	"seafarer/bosun/internal/common"
	"seafarer/bosun/internal/services"
)

type WorkersContainer struct {
	SyncQueue *SyncQueueWorker
}

func InitWorkers(
	redisQueue *common.RedisQueueService,
	syncSvc *services.SyncService,
) *WorkersContainer {
	qWorker := NewSyncQueueWorker("sync_queue", redisQueue, syncSvc)

	go qWorker.Start(context.Background(), 3)

	return &WorkersContainer{
		SyncQueue: qWorker,
	}
}
