package generation

import (
	"time"

	"github.com/google/uuid"
)

// GenerationHistoryEntry is one completed generation. Rows are append-only.
type GenerationHistoryEntry struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// Empty UserScope is the global (anonymous) scope.
	UserScope string `gorm:"column:user_scope;type:text;not null;default:'';index:idx_history_scope_time,priority:1" json:"user_scope"`

	Phrase    string `gorm:"column:phrase;type:text;not null" json:"phrase"`
	Niche     string `gorm:"column:niche;type:text;not null;index" json:"niche"`
	Topic     string `gorm:"column:topic;type:text;not null" json:"topic"`
	RiskLevel int    `gorm:"column:risk_level;not null;default:0" json:"risk_level"`

	GeneratedAt time.Time `gorm:"column:generated_at;not null;index:idx_history_scope_time,priority:2;index" json:"generated_at"`
	Approved    *bool     `gorm:"column:approved" json:"approved,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (GenerationHistoryEntry) TableName() string { return "generation_history" }
