package repositories

import (
	"context"
	"errors"

	gormModels "seafarer/bosun/internal/models/gorm"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// AssetRepo handles cached registry asset rows keyed by upstream id.
type AssetRepo struct {
	db *gormlib.DB
}

func NewAssetRepo(db *gormlib.DB) *AssetRepo {
	return &AssetRepo{db: db}
}

// AssetFilters narrows List queries for the presentation layer.
type AssetFilters struct {
	RegistryID  string
	VesselClass string
	Limit       int
}

// Upsert writes the incoming asset by its upstream id with the same
// non-null-preserving merge rule as work items.
func (r *AssetRepo) Upsert(ctx context.Context, asset *gormModels.Asset) (bool, error) {
	var existing gormModels.Asset
	err := r.db.WithContext(ctx).
		Where("pelagic_id = ?", asset.PelagicID).
		First(&existing).Error

	if errors.Is(err, gormlib.ErrRecordNotFound) {
		if asset.ID == "" {
			asset.ID = uuid.New().String()
		}
		return true, r.db.WithContext(ctx).Create(asset).Error
	}
	if err != nil {
		return false, err
	}

	merged := mergeAsset(&existing, asset)
	return false, r.db.WithContext(ctx).Save(merged).Error
}

func mergeAsset(existing, incoming *gormModels.Asset) *gormModels.Asset {
	if incoming.RegistryID != "" {
		existing.RegistryID = incoming.RegistryID
	}
	if incoming.Name != "" {
		existing.Name = incoming.Name
	}
	if incoming.DisplayName != "" {
		existing.DisplayName = incoming.DisplayName
	}
	if incoming.MMSI != nil {
		existing.MMSI = incoming.MMSI
	}
	if incoming.IMO != nil {
		existing.IMO = incoming.IMO
	}
	if incoming.Pennant != nil {
		existing.Pennant = incoming.Pennant
	}
	if incoming.VesselClass != "" {
		existing.VesselClass = incoming.VesselClass
	}
	if incoming.VesselType != "" {
		existing.VesselType = incoming.VesselType
	}
	if len(incoming.Payload) > 0 {
		existing.Payload = incoming.Payload
	}
	existing.LastSyncedAt = incoming.LastSyncedAt
	return existing
}

// List returns cached assets for the presentation layer.
func (r *AssetRepo) List(ctx context.Context, filters AssetFilters) ([]gormModels.Asset, error) {
	q := r.db.WithContext(ctx).Model(&gormModels.Asset{})

	if filters.RegistryID != "" {
		q = q.Where("registry_id = ?", filters.RegistryID)
	}
	if filters.VesselClass != "" {
		q = q.Where("vessel_class = ?", filters.VesselClass)
	}

	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var assets []gormModels.Asset
	err := q.Order("last_synced_at DESC").Limit(limit).Find(&assets).Error
	return assets, err
}
