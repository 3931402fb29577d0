package diversity

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/normalization"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/observability"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/dbctx"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

const similarPhraseThreshold = 0.5

type HistoryReader interface {
	QueryRecent(dbc dbctx.Context, userScope string, since time.Time, limit int) ([]*types.GenerationHistoryEntry, error)
}

type Config struct {
	Lookback      time.Duration
	NicheCooldown time.Duration
	MinAcceptable float64
	HistoryLimit  int
}

func DefaultConfig() Config {
	return Config{
		Lookback:      72 * time.Hour,
		NicheCooldown: 24 * time.Hour,
		MinAcceptable: 0.4,
		HistoryLimit:  100,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Lookback <= 0 {
		c.Lookback = d.Lookback
	}
	if c.NicheCooldown <= 0 {
		c.NicheCooldown = d.NicheCooldown
	}
	if c.MinAcceptable <= 0 || c.MinAcceptable > 1 {
		c.MinAcceptable = d.MinAcceptable
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	return c
}

type Candidate struct {
	Phrase string
	Niche  string
	Topic  string
}

type Scorer struct {
	log     *logger.Logger
	history HistoryReader
	cfg     Config
	now     func() time.Time
}

func NewScorer(log *logger.Logger, history HistoryReader, cfg Config) *Scorer {
	return &Scorer{
		log:     log.With("service", "DiversityScorer"),
		history: history,
		cfg:     cfg.withDefaults(),
		now:     time.Now,
	}
}

// WithClock returns a copy of the scorer that reads time from now.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	cp := *s
	cp.now = now
	return &cp
}

func (s *Scorer) MinAcceptable() float64 { return s.cfg.MinAcceptable }

// Score rates the candidate against the lookback window of userScope's history
// (all users when userScope is empty). A failed history read scores as empty history.
func (s *Scorer) Score(ctx context.Context, userScope string, c Candidate) Score {
	ctx, span := observability.StartSpan(ctx, "diversity.score",
		attribute.String("niche", c.Niche),
	)
	defer span.End()

	now := s.now()
	var entries []*types.GenerationHistoryEntry
	if s.history != nil {
		rows, err := s.history.QueryRecent(dbctx.Context{Ctx: ctx}, userScope, now.Add(-s.cfg.Lookback), s.cfg.HistoryLimit)
		if err != nil {
			s.log.Warn("history fetch failed; scoring as novel",
				"user_scope", userScope,
				"niche", c.Niche,
				"error", err,
			)
			observability.Current().IncFallback("diversity", "history_error")
		} else {
			entries = rows
		}
	}

	out := ScoreAgainst(c, entries, now, s.cfg)
	span.SetAttributes(
		attribute.Float64("overall", out.Overall),
		attribute.String("recommendation", string(out.Recommendation)),
		attribute.Int("history", len(entries)),
	)
	observability.Current().ObserveDiversity(string(out.Recommendation), out.Overall)
	return out
}

// ScoreAgainst computes the score from an already fetched history window.
func ScoreAgainst(c Candidate, entries []*types.GenerationHistoryEntry, now time.Time, cfg Config) Score {
	cfg = cfg.withDefaults()
	if len(entries) == 0 {
		return MaxNovelty()
	}

	niche := normalization.NormalizeKey(c.Niche)
	lastNiche := math.Inf(1)
	lastSimilar := math.Inf(1)
	maxPhrase, maxTopic := 0.0, 0.0

	for _, e := range entries {
		if e == nil {
			continue
		}
		age := now.Sub(e.GeneratedAt).Hours()
		if age < 0 {
			age = 0
		}
		sameNiche := niche != "" && normalization.NormalizeKey(e.Niche) == niche
		if sameNiche && age < lastNiche {
			lastNiche = age
		}
		ps := Similarity(c.Phrase, e.Phrase)
		if ps > maxPhrase {
			maxPhrase = ps
		}
		if ts := Similarity(c.Topic, e.Topic); ts > maxTopic {
			maxTopic = ts
		}
		if (ps > similarPhraseThreshold || sameNiche) && age < lastSimilar {
			lastSimilar = age
		}
	}

	nicheNovelty := 1.0
	if !math.IsInf(lastNiche, 1) {
		nicheNovelty = clamp01(lastNiche / cfg.NicheCooldown.Hours())
	}
	phraseNovelty := clamp01(1 - maxPhrase)
	topicNovelty := clamp01(1 - maxTopic)
	overall := ComputeOverall(nicheNovelty, phraseNovelty, topicNovelty)

	return Score{
		Overall:               overall,
		NicheNovelty:          nicheNovelty,
		PhraseNovelty:         phraseNovelty,
		TopicNovelty:          topicNovelty,
		HoursSinceLastSimilar: lastSimilar,
		Recommendation:        RecommendationFor(overall, cfg.MinAcceptable),
	}
}
