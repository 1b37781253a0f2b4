package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"seafarer/bosun/internal/constants"
	"seafarer/bosun/internal/logging"
	"seafarer/bosun/internal/models/dtos"
	"seafarer/bosun/internal/providers"

	"go.uber.org/zap"
)

// ExtractHistoric bulk-extracts work items modified inside [from, to) for
// the given workflows through the GraphQL endpoint, two months at a time.
// The plain listing endpoints truncate or time out over very large date
// ranges, so this is the only safe path for backfills.
//
// It shares the work-items guard and state row with the listing syncs:
// a historic run and a regular run never overlap for one user, and both
// feed the same merge/derive/upsert path.
func (s *SyncService) ExtractHistoric(ctx context.Context, userID string, from, to time.Time, workflowIDs []string) (*dtos.SyncResult, error) {
	key := guardKey(constants.EntityWorkItems, userID)
	if !s.tryAcquire(key) {
		return skippedResult(constants.EntityWorkItems, constants.OpHistoricExtract), constants.ErrSyncInProgress
	}
	defer s.release(key)

	log := logging.WithSync(userID, string(constants.EntityWorkItems), constants.OpHistoricExtract)
	start := time.Now()

	token := s.tokenSvc.GetValidAccessToken(ctx, userID)
	if token == nil {
		return s.failRun(ctx, userID, constants.EntityWorkItems, constants.OpHistoricExtract, start,
			constants.ErrCredentialUnavailable.Error()), constants.ErrCredentialUnavailable
	}

	if err := s.stateRepo.MarkInProgress(ctx, userID, constants.EntityWorkItems); err != nil {
		return s.failRun(ctx, userID, constants.EntityWorkItems, constants.OpHistoricExtract, start, err.Error()), err
	}

	windows := providers.SplitWindows(from, to)
	log.Infow("Starting historic extraction",
		"from", from.Format(time.RFC3339),
		"to", to.Format(time.RFC3339),
		"windows", len(windows),
		"workflows", len(workflowIDs),
	)

	var accumulated []json.RawMessage
	abandoned := 0

	for _, wfID := range workflowIDs {
		for _, w := range windows {
			records, ok := s.fetchChunk(ctx, log, *token, wfID, w)
			if !ok {
				abandoned++
				continue
			}
			accumulated = append(accumulated, records...)
		}
	}

	// dedupe across the whole accumulated set: adjacent windows and
	// overlapping workflows can both return the same record
	unique, malformed := dedupeByID(accumulated)
	if malformed > 0 {
		log.Warnw("Dropped records without an upstream id", "count", malformed)
	}
	created, updated, failed := s.IngestWorkItemRecords(ctx, unique)

	res := &dtos.SyncResult{
		EntityType:   string(constants.EntityWorkItems),
		Operation:    constants.OpHistoricExtract,
		Status:       string(constants.SyncStatusCompleted),
		ItemsFetched: len(unique),
		ItemsCreated: created,
		ItemsUpdated: updated,
		ItemsFailed:  failed + malformed,
	}

	var detail *string
	if abandoned > 0 {
		d := fmt.Sprintf("%d of %d workflow/window pairs abandoned after retry", abandoned, len(workflowIDs)*len(windows))
		detail = &d
	}

	if err := s.completeRun(ctx, userID, constants.EntityWorkItems, res, start, detail); err != nil {
		return s.failRun(ctx, userID, constants.EntityWorkItems, constants.OpHistoricExtract, start, err.Error()), err
	}

	log.Infow("Historic extraction completed",
		"items_fetched", res.ItemsFetched,
		"items_created", res.ItemsCreated,
		"items_updated", res.ItemsUpdated,
		"pairs_abandoned", abandoned,
		"duration", time.Since(start).Truncate(time.Millisecond).String(),
	)
	return res, nil
}

// fetchChunk executes one (workflow, window) chunk query. On failure it
// waits and retries exactly once, then abandons the pair: one bad window
// must not sink a backfill spanning years.
func (s *SyncService) fetchChunk(ctx context.Context, log *zap.SugaredLogger, token, workflowID string, w providers.DateWindow) ([]json.RawMessage, bool) {
	query := providers.BuildChunkQuery(workflowID, w)

	records, status, err := s.provider.QueryGraphQL(ctx, token, query)
	if err == nil {
		return records, true
	}
	log.Warnw("Chunk query failed, retrying once",
		"workflow_id", workflowID,
		"window_from", w.From.Format(time.RFC3339),
		"status", status,
		"error", err.Error(),
	)

	select {
	case <-ctx.Done():
		return nil, false
	case <-time.After(s.chunkRetryWait):
	}

	records, status, err = s.provider.QueryGraphQL(ctx, token, query)
	if err != nil {
		log.Warnw("Chunk query abandoned",
			"workflow_id", workflowID,
			"window_from", w.From.Format(time.RFC3339),
			"status", status,
			"error", err.Error(),
		)
		return nil, false
	}
	return records, true
}
