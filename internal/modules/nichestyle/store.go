package nichestyle

import (
	"context"
	"encoding/json"
	"fmt"

	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/dbctx"
)

type ProfileRepo interface {
	Upsert(dbc dbctx.Context, row *types.NicheStyleProfileRecord) error
	GetByNiche(dbc dbctx.Context, niche string) (*types.NicheStyleProfileRecord, error)
}

// Store reads and writes analyzed profiles through the profile repo.
type Store struct {
	repo ProfileRepo
}

func NewStore(repo ProfileRepo) *Store {
	return &Store{repo: repo}
}

func (s *Store) Save(ctx context.Context, p *Profile) error {
	if s == nil || s.repo == nil || p == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.repo.Upsert(dbctx.Context{Ctx: ctx}, &types.NicheStyleProfileRecord{
		Niche:          p.Niche,
		Provenance:     string(p.Kind),
		Confidence:     p.Confidence,
		SampleSize:     p.SampleSize,
		ProfileJSON:    raw,
		LastAnalyzedAt: p.LastAnalyzedAt,
	})
}

// Analyzed returns the stored profile for the niche, or nil when none exists.
func (s *Store) Analyzed(ctx context.Context, niche string) (*Profile, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	row, err := s.repo.GetByNiche(dbctx.Context{Ctx: ctx}, niche)
	if err != nil || row == nil {
		return nil, err
	}
	var p Profile
	if err := json.Unmarshal(row.ProfileJSON, &p); err != nil {
		return nil, fmt.Errorf("nichestyle: decode profile %q: %w", row.NicheKey, err)
	}
	if p.Kind == "" {
		p.Kind = Kind(row.Provenance)
	}
	return &p, nil
}
