package repos

import (
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/data/repos/history"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/data/repos/niches"
)

type GenerationHistoryRepo = history.GenerationHistoryRepo
type DiscoveredNicheRepo = niches.DiscoveredNicheRepo
type NicheStyleProfileRepo = niches.NicheStyleProfileRepo
