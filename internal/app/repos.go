package app

import (
	"gorm.io/gorm"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/data/graph"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/data/repos/history"
	nicherepos "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/data/repos/niches"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/neo4jdb"
)

type Repos struct {
	History         history.GenerationHistoryRepo
	DiscoveredNiche nicherepos.DiscoveredNicheRepo
	StyleProfile    nicherepos.NicheStyleProfileRepo
	NicheGraph      *graph.NicheGraph
}

func wireRepos(db *gorm.DB, log *logger.Logger, n4j *neo4jdb.Client) Repos {
	log.Info("Wiring repos...")
	return Repos{
		History:         history.NewGenerationHistoryRepo(db, log),
		DiscoveredNiche: nicherepos.NewDiscoveredNicheRepo(db, log),
		StyleProfile:    nicherepos.NewNicheStyleProfileRepo(db, log),
		NicheGraph:      graph.NewNicheGraph(n4j, log),
	}
}
