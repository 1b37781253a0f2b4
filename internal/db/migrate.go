package db

import (
	gormModels "seafarer/bosun/internal/models/gorm"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the schema for every mirrored table.
// sync_logs is included even though the hot path writes it via sqlx, so
// one migration source owns the whole schema.
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&gormModels.Connection{},
		&gormModels.WorkItem{},
		&gormModels.Asset{},
		&gormModels.BiofoulingAssessment{},
		&gormModels.Flow{},
		&gormModels.SyncState{},
		&gormModels.SyncLog{},
	)
}
