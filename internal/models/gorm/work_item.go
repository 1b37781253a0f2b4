package gorm

import "time"

// WorkItem is a cached job/inspection record from the Pelagic workflow
// engine, keyed by its upstream id. Known fields are denormalized for
// querying; Payload preserves the full upstream record for forward
// compatibility. Nullable columns follow the non-null-preserving merge
// rule: an incoming null never clobbers a stored value.
type WorkItem struct {
	ID                   string    `gorm:"column:id;primaryKey;type:uuid"`
	PelagicID            string    `gorm:"column:pelagic_id;uniqueIndex;not null"`
	WorkflowID           string    `gorm:"column:workflow_id;index"`
	Title                string    `gorm:"column:title"`
	Status               string    `gorm:"column:status"`
	VesselID             string    `gorm:"column:vessel_id;index"`
	VesselName           string    `gorm:"column:vessel_name"`
	VesselMMSI           *string   `gorm:"column:vessel_mmsi"`
	VesselIMO            *string   `gorm:"column:vessel_imo"`
	NavigabilityScore    *int      `gorm:"column:navigability_score"`
	HullPerformanceScore *int      `gorm:"column:hull_performance_score"`
	Payload              []byte    `gorm:"column:payload"`
	LastSyncedAt         time.Time `gorm:"column:last_synced_at"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (WorkItem) TableName() string {
	return "work_items"
}
