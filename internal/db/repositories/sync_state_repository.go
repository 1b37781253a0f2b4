package repositories

import (
	"context"
	"errors"
	"time"

	"seafarer/bosun/internal/constants"
	gormModels "seafarer/bosun/internal/models/gorm"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// SyncStateRepo tracks the latest sync run per user and entity type.
type SyncStateRepo struct {
	db *gormlib.DB
}

func NewSyncStateRepo(db *gormlib.DB) *SyncStateRepo {
	return &SyncStateRepo{db: db}
}

// Get returns the state row or nil when no sync has run yet.
func (r *SyncStateRepo) Get(ctx context.Context, userID string, entityType constants.EntityType) (*gormModels.SyncState, error) {
	var state gormModels.SyncState
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND entity_type = ?", userID, string(entityType)).
		First(&state).Error

	if errors.Is(err, gormlib.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// MarkInProgress moves the state machine into in_progress, creating the
// row on first sync.
func (r *SyncStateRepo) MarkInProgress(ctx context.Context, userID string, entityType constants.EntityType) error {
	state := gormModels.SyncState{
		ID:         uuid.New().String(),
		UserID:     userID,
		EntityType: string(entityType),
		SyncStatus: string(constants.SyncStatusInProgress),
	}

	return r.db.WithContext(ctx).
		Where("user_id = ? AND entity_type = ?", userID, string(entityType)).
		Assign(map[string]interface{}{
			"sync_status": string(constants.SyncStatusInProgress),
		}).
		FirstOrCreate(&state).Error
}

// MarkCompleted records a successful run with its running total.
func (r *SyncStateRepo) MarkCompleted(ctx context.Context, userID string, entityType constants.EntityType, total int) error {
	now := time.Now().UTC()

	return r.db.WithContext(ctx).
		Model(&gormModels.SyncState{}).
		Where("user_id = ? AND entity_type = ?", userID, string(entityType)).
		Updates(map[string]interface{}{
			"sync_status":  string(constants.SyncStatusCompleted),
			"last_sync_at": now,
			"total_synced": total,
			"last_error":   nil,
		}).Error
}

// MarkFailed records a failed run with its error message and bumps the
// consecutive error count.
func (r *SyncStateRepo) MarkFailed(ctx context.Context, userID string, entityType constants.EntityType, message string) error {
	state := gormModels.SyncState{
		ID:         uuid.New().String(),
		UserID:     userID,
		EntityType: string(entityType),
	}

	// the row may not exist yet when the failure happens before the
	// in_progress transition (e.g. credential unavailable)
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND entity_type = ?", userID, string(entityType)).
		FirstOrCreate(&state).Error; err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&gormModels.SyncState{}).
		Where("user_id = ? AND entity_type = ?", userID, string(entityType)).
		Updates(map[string]interface{}{
			"sync_status": string(constants.SyncStatusFailed),
			"last_error":  message,
			"error_count": gormlib.Expr("error_count + 1"),
		}).Error
}

// ListByUser returns all state rows for a user, for the status endpoint.
func (r *SyncStateRepo) ListByUser(ctx context.Context, userID string) ([]gormModels.SyncState, error) {
	var states []gormModels.SyncState
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("entity_type").
		Find(&states).Error
	return states, err
}
