package gorm

import "time"

// BiofoulingAssessment is one fouling observation for one inspection
// component of a work item. Rows are created only while ingesting a work
// item whose payload carries component data and are never independently
// mutated afterwards.
type BiofoulingAssessment struct {
	ID                string    `gorm:"column:id;primaryKey;type:uuid"`
	WorkItemPelagicID string    `gorm:"column:work_item_pelagic_id;uniqueIndex:idx_assessment_entry,priority:1;not null"`
	ComponentName     string    `gorm:"column:component_name;uniqueIndex:idx_assessment_entry,priority:2;not null"`
	EntryIndex        int       `gorm:"column:entry_index;uniqueIndex:idx_assessment_entry,priority:3"`
	VesselID          string    `gorm:"column:vessel_id;index"`
	ComponentCategory string    `gorm:"column:component_category"`
	FoulingRating     string    `gorm:"column:fouling_rating"`
	FoulingLevel      int       `gorm:"column:fouling_level"`
	CoveragePct       float64   `gorm:"column:coverage_pct"`
	Comments          string    `gorm:"column:comments;type:text"`
	RatingPayload     []byte    `gorm:"column:rating_payload"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (BiofoulingAssessment) TableName() string {
	return "biofouling_assessments"
}
