package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/normalization"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/dbctx"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

const (
	DefaultQueryLimit = 100
	maxQueryLimit     = 500
)

// GenerationHistoryRepo is the append-only generation log. An empty userScope
// reads across all users.
type GenerationHistoryRepo interface {
	Append(dbc dbctx.Context, entry *types.GenerationHistoryEntry) error
	// QueryRecent returns entries generated at or after since, newest first.
	QueryRecent(dbc dbctx.Context, userScope string, since time.Time, limit int) ([]*types.GenerationHistoryEntry, error)
	NichesUsedSince(dbc dbctx.Context, userScope string, since time.Time) ([]string, error)
	RecentApprovedNiches(dbc dbctx.Context, userScope string, since time.Time, limit int) ([]string, error)
}

type generationHistoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
	now func() time.Time
}

func NewGenerationHistoryRepo(db *gorm.DB, baseLog *logger.Logger) GenerationHistoryRepo {
	return &generationHistoryRepo{
		db:  db,
		log: baseLog.With("repo", "GenerationHistoryRepo"),
		now: time.Now,
	}
}

func clampRisk(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	if limit > maxQueryLimit {
		return maxQueryLimit
	}
	return limit
}

func scoped(q *gorm.DB, userScope string) *gorm.DB {
	if s := strings.TrimSpace(userScope); s != "" {
		return q.Where("user_scope = ?", s)
	}
	return q
}

func (r *generationHistoryRepo) Append(dbc dbctx.Context, entry *types.GenerationHistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("history: nil entry")
	}
	row := *entry
	row.ID = uuid.New()
	row.UserScope = strings.TrimSpace(row.UserScope)
	row.Phrase = normalization.NormalizeKey(row.Phrase)
	row.Niche = normalization.NormalizeKey(row.Niche)
	row.Topic = normalization.NormalizeKey(row.Topic)
	row.RiskLevel = clampRisk(row.RiskLevel)
	if row.Phrase == "" && row.Niche == "" {
		return fmt.Errorf("history: entry has neither phrase nor niche")
	}
	if row.GeneratedAt.IsZero() {
		row.GeneratedAt = r.now()
	}
	row.GeneratedAt = row.GeneratedAt.UTC()

	if err := dbc.DB(r.db).Create(&row).Error; err != nil {
		return err
	}
	entry.ID = row.ID
	return nil
}

func (r *generationHistoryRepo) QueryRecent(dbc dbctx.Context, userScope string, since time.Time, limit int) ([]*types.GenerationHistoryEntry, error) {
	out := []*types.GenerationHistoryEntry{}
	q := scoped(dbc.DB(r.db).Model(&types.GenerationHistoryEntry{}), userScope)
	if err := q.
		Where("generated_at >= ?", since.UTC()).
		Order("generated_at DESC").
		Limit(clampLimit(limit)).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *generationHistoryRepo) NichesUsedSince(dbc dbctx.Context, userScope string, since time.Time) ([]string, error) {
	out := []string{}
	q := scoped(dbc.DB(r.db).Model(&types.GenerationHistoryEntry{}), userScope)
	if err := q.
		Where("generated_at >= ? AND niche <> ''", since.UTC()).
		Distinct().
		Order("niche ASC").
		Pluck("niche", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *generationHistoryRepo) RecentApprovedNiches(dbc dbctx.Context, userScope string, since time.Time, limit int) ([]string, error) {
	rows := []*types.GenerationHistoryEntry{}
	q := scoped(dbc.DB(r.db).Model(&types.GenerationHistoryEntry{}), userScope)
	if err := q.
		Select("niche", "generated_at").
		Where("approved = ? AND generated_at >= ? AND niche <> ''", true, since.UTC()).
		Order("generated_at DESC").
		Limit(clampLimit(limit) * 4).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	out := []string{}
	for _, row := range rows {
		if seen[row.Niche] {
			continue
		}
		seen[row.Niche] = true
		out = append(out, row.Niche)
		if len(out) >= clampLimit(limit) {
			break
		}
	}
	return out, nil
}
