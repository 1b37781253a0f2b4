package dtos

import "time"

// SyncResult is the outcome of one sync run for one entity type.
type SyncResult struct {
	EntityType   string `json:"entity_type"`
	Operation    string `json:"operation"`
	Status       string `json:"status"`
	Skipped      bool   `json:"skipped,omitempty"`
	SkipReason   string `json:"skip_reason,omitempty"`
	ItemsFetched int    `json:"items_fetched"`
	ItemsCreated int    `json:"items_created"`
	ItemsUpdated int    `json:"items_updated"`
	ItemsFailed  int    `json:"items_failed"`
	DurationMs   int64  `json:"duration_ms"`
	Error        string `json:"error,omitempty"`
}

// FullSyncResult aggregates the per-entity outcomes of a full sync. A
// failed step never aborts the remaining steps, so callers get one result
// per entity plus the collected error strings.
type FullSyncResult struct {
	Results []SyncResult `json:"results"`
	Errors  []string     `json:"errors,omitempty"`
}

// SyncStatusEntry is the read-side view of one sync state row.
type SyncStatusEntry struct {
	EntityType  string     `json:"entity_type"`
	SyncStatus  string     `json:"sync_status"`
	LastSyncAt  *time.Time `json:"last_sync_at,omitempty"`
	TotalSynced int        `json:"total_synced"`
	LastError   *string    `json:"last_error,omitempty"`
	ErrorCount  int        `json:"error_count"`
}

// HistoricExtractRequest is the validated body of POST /sync/historic.
type HistoricExtractRequest struct {
	From        time.Time `json:"from" validate:"required"`
	To          time.Time `json:"to" validate:"required,gtfield=From"`
	WorkflowIDs []string  `json:"workflow_ids" validate:"required,min=1,dive,required"`
}
