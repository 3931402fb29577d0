package niches

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DiscoveredNicheRecord keeps AI-discovered niches for reuse when discovery is unavailable.
type DiscoveredNicheRecord struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// NameKey is the normalized niche name; one row per niche.
	NameKey     string `gorm:"column:name_key;type:text;not null;uniqueIndex" json:"name_key"`
	Name        string `gorm:"column:name;type:text;not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`
	Audience    string `gorm:"column:audience;type:text" json:"audience"`
	Trend       string `gorm:"column:trend;type:text" json:"trend"`
	Competition string `gorm:"column:competition;type:text" json:"competition"`
	FocusArea   string `gorm:"column:focus_area;type:text;index" json:"focus_area"`
	Source      string `gorm:"column:source;type:text" json:"source"`

	PhrasesJSON datatypes.JSON `gorm:"column:phrases_json" json:"phrases_json,omitempty"`
	RelatedJSON datatypes.JSON `gorm:"column:related_json" json:"related_json,omitempty"`

	TimesSeen    int       `gorm:"column:times_seen;not null;default:1" json:"times_seen"`
	DiscoveredAt time.Time `gorm:"column:discovered_at;not null;index" json:"discovered_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (DiscoveredNicheRecord) TableName() string { return "discovered_niche" }
