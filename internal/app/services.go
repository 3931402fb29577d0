package app

import (
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/catalog"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/brief"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/diversity"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/executor"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/exploration"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/generation"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/niches"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/nichestyle"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

type Services struct {
	// Novelty
	Scorer   *diversity.Scorer
	Recorder *diversity.Recorder

	// Candidate selection
	Explorer     *niches.Explorer
	Orchestrator *exploration.Orchestrator

	// Style
	StyleStore *nichestyle.Store
	Researcher *nichestyle.Researcher
	Analyzer   *nichestyle.Analyzer

	// Brief + prompt
	Brief    *brief.Builder
	Executor *executor.Executor

	Generation *generation.Service
}

func wireServices(log *logger.Logger, cfg Config, cat *catalog.Catalog, repos Repos, clients Clients) Services {
	log.Info("Wiring services...")

	scorer := diversity.NewScorer(log, repos.History, cfg.Diversity)
	recorder := diversity.NewRecorder(log, repos.History, diversity.RecorderConfig{
		MaxInFlight:  cfg.HistoryMaxInFlight,
		WriteTimeout: cfg.HistoryWriteTimeout,
	})

	var ai niches.AI
	var styleAI nichestyle.JSONGenerator
	var imageAI nichestyle.ImageJSONGenerator
	var execAI executor.JSONGenerator
	if clients.OpenAI != nil {
		ai, styleAI, imageAI, execAI = clients.OpenAI, clients.OpenAI, clients.OpenAI, clients.OpenAI
	}
	var colors nichestyle.ColorExtractor
	if clients.Palette != nil {
		colors = clients.Palette
	}

	explorer := niches.NewExplorer(log, niches.Deps{
		AI:      ai,
		Store:   repos.DiscoveredNiche,
		History: repos.History,
		Graph:   repos.NicheGraph,
		Catalog: cat,
	})
	orchestrator := exploration.NewOrchestrator(log, explorer, scorer, repos.History, cfg.Exploration)

	styleStore := nichestyle.NewStore(repos.StyleProfile)
	researcher := nichestyle.NewResearcher(log, styleAI, clients.Cache, cfg.CacheTTL)
	analyzer := nichestyle.NewAnalyzer(log, imageAI, colors, styleStore)

	builder := brief.NewBuilder(log, cat, researcher, styleStore, cfg.Brief)
	exec := executor.NewExecutor(log, execAI, cat)

	gen := generation.NewService(log, generation.Deps{
		Orchestrator: orchestrator,
		Phrases:      explorer,
		Approved:     repos.History,
		Brief:        builder,
		Executor:     exec,
		Recorder:     recorder,
	}, generation.Config{Budget: cfg.GenerationBudget})

	return Services{
		Scorer:       scorer,
		Recorder:     recorder,
		Explorer:     explorer,
		Orchestrator: orchestrator,
		StyleStore:   styleStore,
		Researcher:   researcher,
		Analyzer:     analyzer,
		Brief:        builder,
		Executor:     exec,
		Generation:   gen,
	}
}
