package gorm

import "time"

// Flow is cached workflow-definition metadata from the Pelagic workflow
// engine. Unlike work items and assets it carries no independently-sourced
// fields, so syncs replace the whole row per upstream id.
type Flow struct {
	ID           string    `gorm:"column:id;primaryKey;type:uuid"`
	PelagicID    string    `gorm:"column:pelagic_id;uniqueIndex;not null"`
	Name         string    `gorm:"column:name"`
	Description  string    `gorm:"column:description;type:text"`
	Payload      []byte    `gorm:"column:payload"`
	LastSyncedAt time.Time `gorm:"column:last_synced_at"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Flow) TableName() string {
	return "flows"
}
