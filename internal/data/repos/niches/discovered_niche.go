package niches

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/normalization"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/dbctx"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

type DiscoveredNicheRepo interface {
	// SaveDiscovered upserts by normalized name and bumps times_seen on repeats.
	SaveDiscovered(dbc dbctx.Context, rows []*types.DiscoveredNicheRecord) error
	// ListRecent returns niches discovered since the cutoff, newest first,
	// skipping any whose normalized name is in exclude.
	ListRecent(dbc dbctx.Context, since time.Time, limit int, exclude []string) ([]*types.DiscoveredNicheRecord, error)
}

type discoveredNicheRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDiscoveredNicheRepo(db *gorm.DB, baseLog *logger.Logger) DiscoveredNicheRepo {
	return &discoveredNicheRepo{
		db:  db,
		log: baseLog.With("repo", "DiscoveredNicheRepo"),
	}
}

func (r *discoveredNicheRepo) SaveDiscovered(dbc dbctx.Context, rows []*types.DiscoveredNicheRecord) error {
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	clean := make([]*types.DiscoveredNicheRecord, 0, len(rows))
	seen := map[string]bool{}
	for _, row := range rows {
		if row == nil {
			continue
		}
		key := normalization.NormalizeKey(row.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		cp := *row
		cp.ID = uuid.New()
		cp.NameKey = key
		cp.Name = strings.TrimSpace(cp.Name)
		cp.TimesSeen = 1
		if cp.DiscoveredAt.IsZero() {
			cp.DiscoveredAt = now
		}
		cp.DiscoveredAt = cp.DiscoveredAt.UTC()
		clean = append(clean, &cp)
	}
	if len(clean) == 0 {
		return nil
	}

	updates := clause.AssignmentColumns([]string{
		"name", "description", "audience", "trend", "competition", "focus_area", "source",
		"phrases_json", "related_json", "discovered_at", "updated_at",
	})
	updates = append(updates, clause.Assignment{
		Column: clause.Column{Name: "times_seen"},
		Value:  gorm.Expr("discovered_niche.times_seen + 1"),
	})
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name_key"}},
			DoUpdates: updates,
		}).
		Create(&clean).Error
}

func (r *discoveredNicheRepo) ListRecent(dbc dbctx.Context, since time.Time, limit int, exclude []string) ([]*types.DiscoveredNicheRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	out := []*types.DiscoveredNicheRecord{}
	q := dbc.DB(r.db).Where("discovered_at >= ?", since.UTC())
	keys := make([]string, 0, len(exclude))
	for _, e := range exclude {
		if k := normalization.NormalizeKey(e); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) > 0 {
		q = q.Where("name_key NOT IN ?", keys)
	}
	if err := q.Order("discovered_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
