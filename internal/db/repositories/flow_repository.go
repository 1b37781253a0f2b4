package repositories

import (
	"context"
	"errors"

	gormModels "seafarer/bosun/internal/models/gorm"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// FlowRepo handles cached workflow-definition metadata.
type FlowRepo struct {
	db *gormlib.DB
}

func NewFlowRepo(db *gormlib.DB) *FlowRepo {
	return &FlowRepo{db: db}
}

// Upsert replaces the whole row per upstream id. Flows carry no
// independently-sourced fields, so no merge rule applies.
func (r *FlowRepo) Upsert(ctx context.Context, flow *gormModels.Flow) (bool, error) {
	var existing gormModels.Flow
	err := r.db.WithContext(ctx).
		Where("pelagic_id = ?", flow.PelagicID).
		First(&existing).Error

	if errors.Is(err, gormlib.ErrRecordNotFound) {
		if flow.ID == "" {
			flow.ID = uuid.New().String()
		}
		return true, r.db.WithContext(ctx).Create(flow).Error
	}
	if err != nil {
		return false, err
	}

	flow.ID = existing.ID
	flow.CreatedAt = existing.CreatedAt
	return false, r.db.WithContext(ctx).Save(flow).Error
}

// ListIDs returns the known workflow ids used to drive work item fetches.
func (r *FlowRepo) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&gormModels.Flow{}).
		Order("created_at").
		Pluck("pelagic_id", &ids).Error
	return ids, err
}

// List returns all cached flows.
func (r *FlowRepo) List(ctx context.Context) ([]gormModels.Flow, error) {
	var flows []gormModels.Flow
	err := r.db.WithContext(ctx).Order("name").Find(&flows).Error
	return flows, err
}
