package gorm

import "time"

// Asset is a cached vessel/equipment record from a Pelagic registry,
// keyed by its upstream id. Same non-null-preserving merge rule as
// WorkItem for the nullable identity columns.
type Asset struct {
	ID           string    `gorm:"column:id;primaryKey;type:uuid"`
	PelagicID    string    `gorm:"column:pelagic_id;uniqueIndex;not null"`
	RegistryID   string    `gorm:"column:registry_id;index"`
	Name         string    `gorm:"column:name"`
	DisplayName  string    `gorm:"column:display_name"`
	MMSI         *string   `gorm:"column:mmsi"`
	IMO          *string   `gorm:"column:imo"`
	Pennant      *string   `gorm:"column:pennant"`
	VesselClass  string    `gorm:"column:vessel_class"`
	VesselType   string    `gorm:"column:vessel_type"`
	Payload      []byte    `gorm:"column:payload"`
	LastSyncedAt time.Time `gorm:"column:last_synced_at"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Asset) TableName() string {
	return "assets"
}
