package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
)

// SeedHistory inserts a history row directly, bypassing repo normalization.
func SeedHistory(tb testing.TB, ctx context.Context, tx *gorm.DB, userScope, niche, phrase string, at time.Time) *types.GenerationHistoryEntry {
	tb.Helper()
	e := &types.GenerationHistoryEntry{
		ID:          uuid.New(),
		UserScope:   userScope,
		Phrase:      phrase,
		Niche:       niche,
		Topic:       niche,
		GeneratedAt: at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed history: %v", err)
	}
	return e
}

func SeedDiscoveredNiche(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, at time.Time) *types.DiscoveredNicheRecord {
	tb.Helper()
	r := &types.DiscoveredNicheRecord{
		ID:           uuid.New(),
		Name:         name,
		NameKey:      name,
		Audience:     "medium",
		Trend:        "stable",
		Competition:  "medium",
		Source:       "ai_discovery",
		PhrasesJSON:  datatypes.JSON([]byte(`[]`)),
		RelatedJSON:  datatypes.JSON([]byte(`[]`)),
		TimesSeen:    1,
		DiscoveredAt: at.UTC(),
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed discovered niche: %v", err)
	}
	return r
}
