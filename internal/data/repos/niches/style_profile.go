package niches

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/normalization"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/dbctx"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

type NicheStyleProfileRepo interface {
	Upsert(dbc dbctx.Context, row *types.NicheStyleProfileRecord) error
	// GetByNiche returns (nil, nil) when no profile exists.
	GetByNiche(dbc dbctx.Context, niche string) (*types.NicheStyleProfileRecord, error)
}

type nicheStyleProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNicheStyleProfileRepo(db *gorm.DB, baseLog *logger.Logger) NicheStyleProfileRepo {
	return &nicheStyleProfileRepo{
		db:  db,
		log: baseLog.With("repo", "NicheStyleProfileRepo"),
	}
}

func (r *nicheStyleProfileRepo) Upsert(dbc dbctx.Context, row *types.NicheStyleProfileRecord) error {
	if row == nil {
		return errors.New("niches: nil style profile")
	}
	key := normalization.NormalizeKey(row.Niche)
	if key == "" {
		return errors.New("niches: style profile niche is required")
	}
	if len(row.ProfileJSON) == 0 {
		return errors.New("niches: style profile payload is required")
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.NicheKey = key
	if row.LastAnalyzedAt.IsZero() {
		row.LastAnalyzedAt = time.Now().UTC()
	}

	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "niche_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"niche", "provenance", "confidence", "sample_size", "profile_json", "last_analyzed_at", "updated_at",
			}),
		}).
		Create(row).Error
}

func (r *nicheStyleProfileRepo) GetByNiche(dbc dbctx.Context, niche string) (*types.NicheStyleProfileRecord, error) {
	key := normalization.NormalizeKey(niche)
	if key == "" {
		return nil, nil
	}
	var row types.NicheStyleProfileRecord
	err := dbc.DB(r.db).Where("niche_key = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}
