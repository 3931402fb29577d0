package niches

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// NicheStyleProfileRecord persists the analyzed style profile of a niche.
// ProfileJSON holds the full profile; the scalar columns are for querying.
type NicheStyleProfileRecord struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	NicheKey   string  `gorm:"column:niche_key;type:text;not null;uniqueIndex" json:"niche_key"`
	Niche      string  `gorm:"column:niche;type:text;not null" json:"niche"`
	Provenance string  `gorm:"column:provenance;type:text;not null" json:"provenance"`
	Confidence float64 `gorm:"column:confidence;not null;default:0" json:"confidence"`
	SampleSize int     `gorm:"column:sample_size;not null;default:0" json:"sample_size"`

	ProfileJSON datatypes.JSON `gorm:"column:profile_json;not null" json:"profile_json"`

	LastAnalyzedAt time.Time `gorm:"column:last_analyzed_at;not null;index" json:"last_analyzed_at"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (NicheStyleProfileRecord) TableName() string { return "niche_style_profile" }
