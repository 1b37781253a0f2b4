package repositories

import (
	"context"

	gormModels "seafarer/bosun/internal/models/gorm"

	"github.com/google/uuid"
	gormlib "gorm.io/gorm"
)

// AssessmentRepo handles biofouling assessment rows, one per inspection
// component and rating entry of a work item.
type AssessmentRepo struct {
	db *gormlib.DB
}

func NewAssessmentRepo(db *gormlib.DB) *AssessmentRepo {
	return &AssessmentRepo{db: db}
}

// Upsert writes the assessment keyed by (work item, component, entry).
func (r *AssessmentRepo) Upsert(ctx context.Context, a *gormModels.BiofoulingAssessment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}

	return r.db.WithContext(ctx).
		Where("work_item_pelagic_id = ? AND component_name = ? AND entry_index = ?",
			a.WorkItemPelagicID, a.ComponentName, a.EntryIndex).
		Assign(gormModels.BiofoulingAssessment{
			VesselID:          a.VesselID,
			ComponentCategory: a.ComponentCategory,
			FoulingRating:     a.FoulingRating,
			FoulingLevel:      a.FoulingLevel,
			CoveragePct:       a.CoveragePct,
			Comments:          a.Comments,
			RatingPayload:     a.RatingPayload,
		}).
		FirstOrCreate(a).Error
}

// ListByVessel returns all assessments recorded against a vessel.
func (r *AssessmentRepo) ListByVessel(ctx context.Context, vesselID string) ([]gormModels.BiofoulingAssessment, error) {
	var rows []gormModels.BiofoulingAssessment
	err := r.db.WithContext(ctx).
		Where("vessel_id = ?", vesselID).
		Order("work_item_pelagic_id, component_name, entry_index").
		Find(&rows).Error
	return rows, err
}

// ListByWorkItem returns all assessments derived from one work item.
func (r *AssessmentRepo) ListByWorkItem(ctx context.Context, workItemPelagicID string) ([]gormModels.BiofoulingAssessment, error) {
	var rows []gormModels.BiofoulingAssessment
	err := r.db.WithContext(ctx).
		Where("work_item_pelagic_id = ?", workItemPelagicID).
		Order("component_name, entry_index").
		Find(&rows).Error
	return rows, err
}
