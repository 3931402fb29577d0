package history

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/data/repos/testutil"
	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/dbctx"
)

func boolPtr(v bool) *bool { return &v }

func TestGenerationHistoryRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewGenerationHistoryRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	now := time.Now().UTC()
	entries := []*types.GenerationHistoryEntry{
		{UserScope: "u1", Phrase: "But First, Coffee", Niche: "Coffee Addict", Topic: "coffee", RiskLevel: 140, GeneratedAt: now.Add(-1 * time.Hour), Approved: boolPtr(true)},
		{UserScope: "u1", Phrase: "Gone Fishing Again", Niche: "fishing", Topic: "fishing", GeneratedAt: now.Add(-3 * time.Hour)},
		{UserScope: "u1", Phrase: "Old Idea", Niche: "golf", Topic: "golf", GeneratedAt: now.Add(-100 * time.Hour), Approved: boolPtr(true)},
		{UserScope: "u2", Phrase: "Dog Mom Life", Niche: "dog mom", Topic: "dogs", GeneratedAt: now.Add(-30 * time.Minute), Approved: boolPtr(true)},
	}
	for _, e := range entries {
		if err := repo.Append(dbc, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := repo.QueryRecent(dbc, "u1", now.Add(-72*time.Hour), 0)
	if err != nil {
		t.Fatalf("QueryRecent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries in window, got %d", len(got))
	}
	if got[0].Phrase != "but first, coffee" || got[0].Niche != "coffee addict" {
		t.Fatalf("expected normalized newest entry first, got %+v", got[0])
	}
	if got[0].RiskLevel != 100 {
		t.Fatalf("expected risk clamped to 100, got %d", got[0].RiskLevel)
	}

	global, err := repo.QueryRecent(dbc, "", now.Add(-72*time.Hour), 2)
	if err != nil {
		t.Fatalf("QueryRecent global: %v", err)
	}
	if len(global) != 2 || global[0].UserScope != "u2" {
		t.Fatalf("expected capped global results newest first, got %d", len(global))
	}

	niches, err := repo.NichesUsedSince(dbc, "u1", now.Add(-4*time.Hour))
	if err != nil {
		t.Fatalf("NichesUsedSince: %v", err)
	}
	if !reflect.DeepEqual(niches, []string{"coffee addict", "fishing"}) {
		t.Fatalf("unexpected niches %v", niches)
	}

	approved, err := repo.RecentApprovedNiches(dbc, "", now.Add(-72*time.Hour), 10)
	if err != nil {
		t.Fatalf("RecentApprovedNiches: %v", err)
	}
	if !reflect.DeepEqual(approved, []string{"dog mom", "coffee addict"}) {
		t.Fatalf("unexpected approved niches %v", approved)
	}
}

func TestAppendRejectsEmptyEntry(t *testing.T) {
	db := testutil.DB(t)
	repo := NewGenerationHistoryRepo(db, testutil.Logger(t))
	if err := repo.Append(dbctx.Context{Ctx: context.Background()}, &types.GenerationHistoryEntry{UserScope: "u1"}); err == nil {
		t.Fatalf("expected error for empty entry")
	}
	if err := repo.Append(dbctx.Context{Ctx: context.Background()}, nil); err == nil {
		t.Fatalf("expected error for nil entry")
	}
}

func TestQueryRecentCapsAndOrdersSeededRows(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewGenerationHistoryRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	for i := 0; i < 120; i++ {
		testutil.SeedHistory(t, ctx, db, "u1", "coffee", "coffee then adulting", now.Add(-time.Duration(i)*time.Minute))
	}
	got, err := repo.QueryRecent(dbctx.Context{Ctx: ctx}, "u1", now.Add(-72*time.Hour), 0)
	if err != nil {
		t.Fatalf("QueryRecent: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("expected default cap of 100, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].GeneratedAt.After(got[i-1].GeneratedAt) {
			t.Fatalf("expected newest first at %d", i)
		}
	}
}
