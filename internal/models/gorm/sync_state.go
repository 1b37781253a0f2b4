package gorm

import "time"

// SyncState tracks the latest sync run per user and entity type.
// Status moves idle/completed/failed -> in_progress -> completed|failed.
type SyncState struct {
	ID             string     `gorm:"column:id;primaryKey;type:uuid"`
	UserID         string     `gorm:"column:user_id;uniqueIndex:idx_sync_state_user_entity,priority:1;not null"`
	EntityType     string     `gorm:"column:entity_type;uniqueIndex:idx_sync_state_user_entity,priority:2;not null"`
	LastSyncAt     *time.Time `gorm:"column:last_sync_at"`
	LastSyncCursor string     `gorm:"column:last_sync_cursor"` // reserved for delta sync
	TotalSynced    int        `gorm:"column:total_synced"`
	SyncStatus     string     `gorm:"column:sync_status;type:varchar(20);default:idle"`
	LastError      *string    `gorm:"column:last_error;type:text"`
	ErrorCount     int        `gorm:"column:error_count"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (SyncState) TableName() string {
	return "sync_states"
}
