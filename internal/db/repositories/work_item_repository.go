package repositories

import (
	"context"
	"errors"

	gormModels "seafarer/bosun/internal/models/gorm"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// WorkItemRepo handles cached work item rows keyed by upstream id.
type WorkItemRepo struct {
	db *gormlib.DB
}

func NewWorkItemRepo(db *gormlib.DB) *WorkItemRepo {
	return &WorkItemRepo{db: db}
}

// WorkItemFilters narrows List queries for the presentation layer.
type WorkItemFilters struct {
	VesselID   string
	WorkflowID string
	Status     string
	Limit      int
}

// Upsert writes the incoming work item by its upstream id, reporting
// whether a row was created. Merge rule: a non-null incoming value
// overwrites, a null incoming value never clobbers a stored non-null
// value. Upserting the same payload twice yields no drift.
func (r *WorkItemRepo) Upsert(ctx context.Context, item *gormModels.WorkItem) (bool, error) {
	var existing gormModels.WorkItem
	err := r.db.WithContext(ctx).
		Where("pelagic_id = ?", item.PelagicID).
		First(&existing).Error

	if errors.Is(err, gormlib.ErrRecordNotFound) {
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		return true, r.db.WithContext(ctx).Create(item).Error
	}
	if err != nil {
		return false, err
	}

	merged := mergeWorkItem(&existing, item)
	return false, r.db.WithContext(ctx).Save(merged).Error
}

// mergeWorkItem folds the incoming record into the stored one. Empty
// strings and nil pointers count as null and preserve the stored value.
func mergeWorkItem(existing, incoming *gormModels.WorkItem) *gormModels.WorkItem {
	if incoming.WorkflowID != "" {
		existing.WorkflowID = incoming.WorkflowID
	}
	if incoming.Title != "" {
		existing.Title = incoming.Title
	}
	if incoming.Status != "" {
		existing.Status = incoming.Status
	}
	if incoming.VesselID != "" {
		existing.VesselID = incoming.VesselID
	}
	if incoming.VesselName != "" {
		existing.VesselName = incoming.VesselName
	}
	if incoming.VesselMMSI != nil {
		existing.VesselMMSI = incoming.VesselMMSI
	}
	if incoming.VesselIMO != nil {
		existing.VesselIMO = incoming.VesselIMO
	}
	if incoming.NavigabilityScore != nil {
		existing.NavigabilityScore = incoming.NavigabilityScore
	}
	if incoming.HullPerformanceScore != nil {
		existing.HullPerformanceScore = incoming.HullPerformanceScore
	}
	if len(incoming.Payload) > 0 {
		existing.Payload = incoming.Payload
	}
	existing.LastSyncedAt = incoming.LastSyncedAt
	return existing
}

// GetByPelagicID returns the stored work item or nil when none exists.
func (r *WorkItemRepo) GetByPelagicID(ctx context.Context, pelagicID string) (*gormModels.WorkItem, error) {
	var item gormModels.WorkItem
	err := r.db.WithContext(ctx).
		Where("pelagic_id = ?", pelagicID).
		First(&item).Error

	if errors.Is(err, gormlib.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns cached work items for the presentation layer.
func (r *WorkItemRepo) List(ctx context.Context, filters WorkItemFilters) ([]gormModels.WorkItem, error) {
	q := r.db.WithContext(ctx).Model(&gormModels.WorkItem{})

	if filters.VesselID != "" {
		q = q.Where("vessel_id = ?", filters.VesselID)
	}
	if filters.WorkflowID != "" {
		q = q.Where("workflow_id = ?", filters.WorkflowID)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}

	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var items []gormModels.WorkItem
	err := q.Order("last_synced_at DESC").Limit(limit).Find(&items).Error
	return items, err
}

// Count reports the number of cached work items.
func (r *WorkItemRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&gormModels.WorkItem{}).Count(&n).Error
	return n, err
}
