package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"seafarer/bosun/internal/constants"
	"seafarer/bosun/internal/db/repositories"
	"seafarer/bosun/internal/logging"
	"seafarer/bosun/internal/metrics"
	"seafarer/bosun/internal/models/dtos"
	"seafarer/bosun/internal/models/entities"
	gormModels "seafarer/bosun/internal/models/gorm"
	"seafarer/bosun/internal/providers"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"
)

// fetchConcurrency bounds parallel listing calls within one run. Fetches
// are read-only upstream and writes are idempotent upserts, so a small
// fan-out is safe.
const fetchConcurrency = 3

// SyncLogStore appends to the append-only sync audit log.
type SyncLogStore interface {
	Append(ctx context.Context, entry *entities.SyncLog) error
}

// SyncService orchestrates sync runs: it obtains a valid credential,
// drives the upstream client through the fetch strategies, reconciles the
// results into deduplicated upserts, and records state and audit rows.
// It is the sole writer of SyncState, SyncLog, WorkItem, Asset and
// BiofoulingAssessment rows.
type SyncService struct {
	tokenSvc     *TokenService
	provider     providers.UpstreamProvider
	workItemRepo *repositories.WorkItemRepo
	assetRepo    *repositories.AssetRepo
	assessRepo   *repositories.AssessmentRepo
	stateRepo    *repositories.SyncStateRepo
	flowRepo     *repositories.FlowRepo
	connRepo     *repositories.ConnectionRepo
	logStore     SyncLogStore
	metricsReg   *metrics.MetricsRegistry

	// chunkRetryWait is how long the historic path waits before its
	// single retry of a failed (workflow, window) pair.
	chunkRetryWait time.Duration

	// concurrency guard, one flag per "entityType:userID". Owned by the
	// instance so multiple orchestrators never interfere.
	mu      sync.Mutex
	running map[string]bool
}

func NewSyncService(
	tokenSvc *TokenService,
	provider providers.UpstreamProvider,
	workItemRepo *repositories.WorkItemRepo,
	assetRepo *repositories.AssetRepo,
	assessRepo *repositories.AssessmentRepo,
	stateRepo *repositories.SyncStateRepo,
	flowRepo *repositories.FlowRepo,
	connRepo *repositories.ConnectionRepo,
	logStore SyncLogStore,
	metricsReg *metrics.MetricsRegistry,
) *SyncService {
	return &SyncService{
		tokenSvc:       tokenSvc,
		provider:       provider,
		workItemRepo:   workItemRepo,
		assetRepo:      assetRepo,
		assessRepo:     assessRepo,
		stateRepo:      stateRepo,
		flowRepo:       flowRepo,
		connRepo:       connRepo,
		logStore:       logStore,
		metricsReg:     metricsReg,
		chunkRetryWait: 2 * time.Second,
		running:        make(map[string]bool),
	}
}

func guardKey(entityType constants.EntityType, userID string) string {
	return string(entityType) + ":" + userID
}

// tryAcquire takes the run flag for a key, reporting false when a run is
// already active. Rejected callers retry later; nothing is queued.
func (s *SyncService) tryAcquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[key] {
		return false
	}
	s.running[key] = true
	return true
}

func (s *SyncService) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, key)
}

func skippedResult(entityType constants.EntityType, operation string) *dtos.SyncResult {
	return &dtos.SyncResult{
		EntityType: string(entityType),
		Operation:  operation,
		Status:     "skipped",
		Skipped:    true,
		SkipReason: "sync_in_progress",
	}
}

// SyncWorkItems syncs work items for the user through the per-workflow
// listings and the catch-all listing.
func (s *SyncService) SyncWorkItems(ctx context.Context, userID string) (*dtos.SyncResult, error) {
	return s.syncWorkItems(ctx, userID, constants.OpManualSync)
}

// IncrementalSync re-syncs the highest-churn entity, work items. The
// persisted cursor is not consumed yet: every run re-lists fully.
func (s *SyncService) IncrementalSync(ctx context.Context, userID string) (*dtos.SyncResult, error) {
	return s.syncWorkItems(ctx, userID, constants.OpIncrementalSync)
}

func (s *SyncService) syncWorkItems(ctx context.Context, userID, operation string) (*dtos.SyncResult, error) {
	key := guardKey(constants.EntityWorkItems, userID)
	if !s.tryAcquire(key) {
		return skippedResult(constants.EntityWorkItems, operation), constants.ErrSyncInProgress
	}
	defer s.release(key)

	log := logging.WithSync(userID, string(constants.EntityWorkItems), operation)
	start := time.Now()

	token := s.tokenSvc.GetValidAccessToken(ctx, userID)
	if token == nil {
		return s.failRun(ctx, userID, constants.EntityWorkItems, operation, start,
			constants.ErrCredentialUnavailable.Error()), constants.ErrCredentialUnavailable
	}

	if err := s.stateRepo.MarkInProgress(ctx, userID, constants.EntityWorkItems); err != nil {
		return s.failRun(ctx, userID, constants.EntityWorkItems, operation, start, err.Error()), err
	}

	workflowIDs, err := s.flowRepo.ListIDs(ctx)
	if err != nil {
		log.Warnw("Failed to list known workflows, relying on catch-all listing", "error", err.Error())
		workflowIDs = nil
	}

	// slot per source keeps dedupe order deterministic: workflow listings
	// in workflow order first, then the catch-all listing
	slots := make([][]json.RawMessage, len(workflowIDs)+1)
	partialFailures := 0
	var failMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)

	for i, wfID := range workflowIDs {
		i, wfID := i, wfID
		g.Go(func() error {
			records, status, err := s.provider.ListWorkflowItems(gctx, *token, wfID)
			if err != nil {
				log.Warnw("Workflow listing failed", "workflow_id", wfID, "status", status, "error", err.Error())
				failMu.Lock()
				partialFailures++
				failMu.Unlock()
				return nil
			}
			slots[i] = records
			return nil
		})
	}
	g.Go(func() error {
		records, status, err := s.provider.ListAllItems(gctx, *token)
		if err != nil {
			log.Warnw("Catch-all listing failed", "status", status, "error", err.Error())
			failMu.Lock()
			partialFailures++
			failMu.Unlock()
			return nil
		}
		slots[len(workflowIDs)] = records
		return nil
	})
	g.Wait()

	var merged []json.RawMessage
	for _, slot := range slots {
		merged = append(merged, slot...)
	}

	unique, malformed := dedupeByID(merged)
	if malformed > 0 {
		log.Warnw("Dropped records without an upstream id", "count", malformed)
	}
	created, updated, failed := s.IngestWorkItemRecords(ctx, unique)

	res := &dtos.SyncResult{
		EntityType:   string(constants.EntityWorkItems),
		Operation:    operation,
		Status:       string(constants.SyncStatusCompleted),
		ItemsFetched: len(unique),
		ItemsCreated: created,
		ItemsUpdated: updated,
		ItemsFailed:  failed + malformed,
	}
	var detail *string
	if partialFailures > 0 {
		d := fmt.Sprintf("%d of %d listings failed", partialFailures, len(workflowIDs)+1)
		detail = &d
	}

	if err := s.completeRun(ctx, userID, constants.EntityWorkItems, res, start, detail); err != nil {
		return s.failRun(ctx, userID, constants.EntityWorkItems, operation, start, err.Error()), err
	}

	log.Infow("Work item sync completed",
		"items_fetched", res.ItemsFetched,
		"items_created", res.ItemsCreated,
		"items_updated", res.ItemsUpdated,
		"items_failed", res.ItemsFailed,
		"partial_failures", partialFailures,
		"duration", time.Since(start).Truncate(time.Millisecond).String(),
	)
	return res, nil
}

// IngestWorkItemRecords runs deduplicated upstream records through the
// shared filter/derive/upsert path. Records must already be deduplicated;
// soft-deleted records are dropped here. Shared by the listing syncs and
// the historic chunked extraction.
func (s *SyncService) IngestWorkItemRecords(ctx context.Context, records []json.RawMessage) (created, updated, failed int) {
	now := time.Now().UTC()

	for _, rec := range records {
		if isSoftDeleted(rec) {
			continue
		}

		item, components := buildWorkItem(rec, now)
		if item.PelagicID == "" {
			failed++
			continue
		}

		wasCreated, err := s.workItemRepo.Upsert(ctx, item)
		if err != nil {
			logging.Error("Failed to upsert work item", "pelagic_id", item.PelagicID, "error", err.Error())
			failed++
			continue
		}
		if wasCreated {
			created++
		} else {
			updated++
		}

		s.upsertAssessments(ctx, item, components)
	}

	s.countItems(constants.EntityWorkItems, created, updated, failed)
	return created, updated, failed
}

func (s *SyncService) upsertAssessments(ctx context.Context, item *gormModels.WorkItem, components []inspectionComponent) {
	for _, comp := range components {
		for idx, entry := range comp.Entries {
			a := &gormModels.BiofoulingAssessment{
				WorkItemPelagicID: item.PelagicID,
				ComponentName:     comp.Name,
				EntryIndex:        idx,
				VesselID:          item.VesselID,
				ComponentCategory: comp.Category,
				FoulingRating:     entry.Rating,
				FoulingLevel:      entry.Level,
				CoveragePct:       entry.Coverage,
				Comments:          entry.Comments,
				RatingPayload:     entry.Raw,
			}
			if err := s.assessRepo.Upsert(ctx, a); err != nil {
				logging.Error("Failed to upsert assessment",
					"pelagic_id", item.PelagicID,
					"component", comp.Name,
					"error", err.Error())
			}
		}
	}
}

// SyncAssets syncs registry things for the user. A single registry's
// failure is logged and skipped, not fatal to the run.
func (s *SyncService) SyncAssets(ctx context.Context, userID string) (*dtos.SyncResult, error) {
	return s.syncAssets(ctx, userID, constants.OpManualSync)
}

func (s *SyncService) syncAssets(ctx context.Context, userID, operation string) (*dtos.SyncResult, error) {
	key := guardKey(constants.EntityAssets, userID)
	if !s.tryAcquire(key) {
		return skippedResult(constants.EntityAssets, operation), constants.ErrSyncInProgress
	}
	defer s.release(key)

	log := logging.WithSync(userID, string(constants.EntityAssets), operation)
	start := time.Now()

	token := s.tokenSvc.GetValidAccessToken(ctx, userID)
	if token == nil {
		return s.failRun(ctx, userID, constants.EntityAssets, operation, start,
			constants.ErrCredentialUnavailable.Error()), constants.ErrCredentialUnavailable
	}

	if err := s.stateRepo.MarkInProgress(ctx, userID, constants.EntityAssets); err != nil {
		return s.failRun(ctx, userID, constants.EntityAssets, operation, start, err.Error()), err
	}

	registries, status, err := s.provider.ListRegistries(ctx, *token)
	if err != nil {
		log.Errorw("Registry listing failed", "status", status, "error", err.Error())
		return s.failRun(ctx, userID, constants.EntityAssets, operation, start, err.Error()), err
	}

	now := time.Now().UTC()
	res := &dtos.SyncResult{
		EntityType: string(constants.EntityAssets),
		Operation:  operation,
		Status:     string(constants.SyncStatusCompleted),
	}
	partialFailures := 0

	for _, reg := range registries {
		registryID := gjson.GetBytes(reg, "id").String()
		if registryID == "" {
			continue
		}

		things, status, err := s.provider.ListRegistryThings(ctx, *token, registryID)
		if err != nil {
			log.Warnw("Registry things listing failed", "registry_id", registryID, "status", status, "error", err.Error())
			partialFailures++
			continue
		}

		unique, malformed := dedupeByID(things)
		if malformed > 0 {
			log.Warnw("Dropped registry things without an upstream id", "registry_id", registryID, "count", malformed)
			res.ItemsFailed += malformed
		}
		for _, rec := range unique {
			res.ItemsFetched++
			asset := buildAsset(rec, registryID, now)

			wasCreated, err := s.assetRepo.Upsert(ctx, asset)
			if err != nil {
				logging.Error("Failed to upsert asset", "pelagic_id", asset.PelagicID, "error", err.Error())
				res.ItemsFailed++
				continue
			}
			if wasCreated {
				res.ItemsCreated++
			} else {
				res.ItemsUpdated++
			}
		}
	}

	s.countItems(constants.EntityAssets, res.ItemsCreated, res.ItemsUpdated, res.ItemsFailed)

	var detail *string
	if partialFailures > 0 {
		d := fmt.Sprintf("%d of %d registries failed", partialFailures, len(registries))
		detail = &d
	}

	if err := s.completeRun(ctx, userID, constants.EntityAssets, res, start, detail); err != nil {
		return s.failRun(ctx, userID, constants.EntityAssets, operation, start, err.Error()), err
	}

	log.Infow("Asset sync completed",
		"items_fetched", res.ItemsFetched,
		"registries", len(registries),
		"partial_failures", partialFailures,
	)
	return res, nil
}

// SyncFlows syncs workflow-definition metadata as full replaces per id.
func (s *SyncService) SyncFlows(ctx context.Context, userID string) (*dtos.SyncResult, error) {
	return s.syncFlows(ctx, userID, constants.OpManualSync)
}

func (s *SyncService) syncFlows(ctx context.Context, userID, operation string) (*dtos.SyncResult, error) {
	key := guardKey(constants.EntityFlows, userID)
	if !s.tryAcquire(key) {
		return skippedResult(constants.EntityFlows, operation), constants.ErrSyncInProgress
	}
	defer s.release(key)

	log := logging.WithSync(userID, string(constants.EntityFlows), operation)
	start := time.Now()

	token := s.tokenSvc.GetValidAccessToken(ctx, userID)
	if token == nil {
		return s.failRun(ctx, userID, constants.EntityFlows, operation, start,
			constants.ErrCredentialUnavailable.Error()), constants.ErrCredentialUnavailable
	}

	if err := s.stateRepo.MarkInProgress(ctx, userID, constants.EntityFlows); err != nil {
		return s.failRun(ctx, userID, constants.EntityFlows, operation, start, err.Error()), err
	}

	records, status, err := s.provider.ListWorkflows(ctx, *token)
	if err != nil {
		log.Errorw("Workflow listing failed", "status", status, "error", err.Error())
		return s.failRun(ctx, userID, constants.EntityFlows, operation, start, err.Error()), err
	}

	now := time.Now().UTC()
	res := &dtos.SyncResult{
		EntityType: string(constants.EntityFlows),
		Operation:  operation,
		Status:     string(constants.SyncStatusCompleted),
	}

	unique, malformed := dedupeByID(records)
	if malformed > 0 {
		log.Warnw("Dropped workflows without an upstream id", "count", malformed)
		res.ItemsFailed += malformed
	}
	for _, rec := range unique {
		res.ItemsFetched++
		flow := &gormModels.Flow{
			PelagicID:    gjson.GetBytes(rec, "id").String(),
			Name:         firstString(rec, "name", "title"),
			Description:  firstString(rec, "description"),
			Payload:      []byte(rec),
			LastSyncedAt: now,
		}

		wasCreated, err := s.flowRepo.Upsert(ctx, flow)
		if err != nil {
			logging.Error("Failed to upsert flow", "pelagic_id", flow.PelagicID, "error", err.Error())
			res.ItemsFailed++
			continue
		}
		if wasCreated {
			res.ItemsCreated++
		} else {
			res.ItemsUpdated++
		}
	}

	s.countItems(constants.EntityFlows, res.ItemsCreated, res.ItemsUpdated, res.ItemsFailed)

	if err := s.completeRun(ctx, userID, constants.EntityFlows, res, start, nil); err != nil {
		return s.failRun(ctx, userID, constants.EntityFlows, operation, start, err.Error()), err
	}

	log.Infow("Flow sync completed", "items_fetched", res.ItemsFetched)
	return res, nil
}

// FullSync runs work items, assets and flows sequentially. Each step's
// failure is captured independently; the remaining steps still run.
func (s *SyncService) FullSync(ctx context.Context, userID string) *dtos.FullSyncResult {
	out := &dtos.FullSyncResult{}

	steps := []func(context.Context, string, string) (*dtos.SyncResult, error){
		s.syncWorkItems,
		s.syncAssets,
		s.syncFlows,
	}

	for _, step := range steps {
		res, err := step(ctx, userID, constants.OpFullSync)
		if res != nil {
			out.Results = append(out.Results, *res)
		}
		if err != nil {
			out.Errors = append(out.Errors, err.Error())
		}
	}

	return out
}

// ============================================================================
// Run bookkeeping
// ============================================================================

func (s *SyncService) completeRun(ctx context.Context, userID string, entityType constants.EntityType, res *dtos.SyncResult, start time.Time, detail *string) error {
	total := res.ItemsCreated + res.ItemsUpdated
	if err := s.stateRepo.MarkCompleted(ctx, userID, entityType, total); err != nil {
		return fmt.Errorf("failed to write sync state: %w", err)
	}

	if err := s.connRepo.TouchLastSync(ctx, userID, time.Now().UTC()); err != nil {
		logging.Warn("Failed to stamp connection last sync", "user_id", userID, "error", err.Error())
	}

	res.DurationMs = time.Since(start).Milliseconds()
	s.appendLog(ctx, userID, entityType, res, start, string(constants.SyncStatusCompleted), detail)
	s.countRun(entityType, string(constants.SyncStatusCompleted), start)
	return nil
}

func (s *SyncService) failRun(ctx context.Context, userID string, entityType constants.EntityType, operation string, start time.Time, message string) *dtos.SyncResult {
	if err := s.stateRepo.MarkFailed(ctx, userID, entityType, message); err != nil {
		logging.Error("Failed to write failed sync state", "user_id", userID, "error", err.Error())
	}

	res := &dtos.SyncResult{
		EntityType: string(entityType),
		Operation:  operation,
		Status:     string(constants.SyncStatusFailed),
		Error:      message,
		DurationMs: time.Since(start).Milliseconds(),
	}
	s.appendLog(ctx, userID, entityType, res, start, string(constants.SyncStatusFailed), &message)
	s.countRun(entityType, string(constants.SyncStatusFailed), start)
	return res
}

func (s *SyncService) appendLog(ctx context.Context, userID string, entityType constants.EntityType, res *dtos.SyncResult, start time.Time, status string, detail *string) {
	now := time.Now().UTC()
	entry := &entities.SyncLog{
		UserID:       userID,
		EntityType:   string(entityType),
		Operation:    res.Operation,
		Status:       status,
		ItemsFetched: res.ItemsFetched,
		ItemsCreated: res.ItemsCreated,
		ItemsUpdated: res.ItemsUpdated,
		ItemsFailed:  res.ItemsFailed,
		StartedAt:    start.UTC(),
		CompletedAt:  &now,
		DurationMs:   time.Since(start).Milliseconds(),
		ErrorDetail:  detail,
	}
	if err := s.logStore.Append(ctx, entry); err != nil {
		logging.Error("Failed to append sync log", "user_id", userID, "error", err.Error())
	}
}

func (s *SyncService) countRun(entityType constants.EntityType, status string, start time.Time) {
	if s.metricsReg == nil {
		return
	}
	s.metricsReg.SyncRunsTotal.WithLabelValues(string(entityType), status).Inc()
	s.metricsReg.SyncRunDuration.WithLabelValues(string(entityType)).Observe(time.Since(start).Seconds())
}

func (s *SyncService) countItems(entityType constants.EntityType, created, updated, failed int) {
	if s.metricsReg == nil {
		return
	}
	s.metricsReg.SyncItemsTotal.WithLabelValues(string(entityType), "created").Add(float64(created))
	s.metricsReg.SyncItemsTotal.WithLabelValues(string(entityType), "updated").Add(float64(updated))
	s.metricsReg.SyncItemsTotal.WithLabelValues(string(entityType), "failed").Add(float64(failed))
}
