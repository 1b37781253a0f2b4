package entities

import "time"

// SyncLog is an append-only audit record, one row per sync run.
type SyncLog struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	EntityType   string     `db:"entity_type" json:"entity_type"`
	Operation    string     `db:"operation" json:"operation"`
	Status       string     `db:"status" json:"status"`
	ItemsFetched int        `db:"items_fetched" json:"items_fetched"`
	ItemsCreated int        `db:"items_created" json:"items_created"`
	ItemsUpdated int        `db:"items_updated" json:"items_updated"`
	ItemsFailed  int        `db:"items_failed" json:"items_failed"`
	StartedAt    time.Time  `db:"started_at" json:"started_at"`
	CompletedAt  *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	DurationMs   int64      `db:"duration_ms" json:"duration_ms"`
	ErrorDetail  *string    `db:"error_detail" json:"error_detail,omitempty"`
}
