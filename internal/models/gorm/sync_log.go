package gorm

import "time"

// SyncLog is an append-only audit record, one row per sync run.
type SyncLog struct {
	ID           string     `gorm:"column:id;primaryKey;type:uuid"`
	UserID       string     `gorm:"column:user_id;index;not null"`
	EntityType   string     `gorm:"column:entity_type;not null"`
	Operation    string     `gorm:"column:operation;not null"`
	Status       string     `gorm:"column:status;type:varchar(20)"`
	ItemsFetched int        `gorm:"column:items_fetched"`
	ItemsCreated int        `gorm:"column:items_created"`
	ItemsUpdated int        `gorm:"column:items_updated"`
	ItemsFailed  int        `gorm:"column:items_failed"`
	StartedAt    time.Time  `gorm:"column:started_at"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
	DurationMs   int64      `gorm:"column:duration_ms"`
	ErrorDetail  *string    `gorm:"column:error_detail;type:text"`
}

// TableName specifies the table name for GORM
func (SyncLog) TableName() string {
	return "sync_logs"
}
