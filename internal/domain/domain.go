package domain

import (
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain/generation"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain/niches"
)

type GenerationHistoryEntry = generation.GenerationHistoryEntry
type DiscoveredNicheRecord = niches.DiscoveredNicheRecord
type NicheStyleProfileRecord = niches.NicheStyleProfileRecord

// Models lists every table for AutoMigrate.
func Models() []any {
	return []any{
		&GenerationHistoryEntry{},
		&DiscoveredNicheRecord{},
		&NicheStyleProfileRecord{},
	}
}
