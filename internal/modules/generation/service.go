package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/brief"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/executor"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/exploration"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/niches"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/modules/nichestyle"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/observability"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/ctxutil"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/dbctx"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

// ErrBudgetExceeded marks a run cut short by the wall-clock budget.
var ErrBudgetExceeded = errors.New("generation: budget exceeded")

type Explorer interface {
	Explore(ctx context.Context, req exploration.Request) *exploration.Result
}

type Phrases interface {
	PhraseFor(ctx context.Context, n niches.DiscoveredNiche, riskLevel int) (string, niches.PhraseSource)
}

type ApprovedNiches interface {
	RecentApprovedNiches(dbc dbctx.Context, userScope string, since time.Time, limit int) ([]string, error)
}

type BriefBuilder interface {
	BuildBrief(ctx context.Context, trend brief.TrendSignal, profile *nichestyle.Profile, overrides *brief.UserOverrides) (*brief.Brief, error)
}

type BriefExecutor interface {
	Execute(ctx context.Context, b *brief.Brief) executor.Result
}

type HistoryRecorder interface {
	Record(entry types.GenerationHistoryEntry) bool
}

type Mode string

const (
	ModeExplore  Mode = "explore"
	ModeExploit  Mode = "exploit"
	ModeDirected Mode = "directed"
)

type Status string

const (
	StatusComplete Status = "complete"
	StatusPartial  Status = "partial"
	StatusFailed   Status = "failed"
)

type Config struct {
	Budget         time.Duration
	ApprovedWindow time.Duration
}

func DefaultConfig() Config {
	return Config{Budget: 240 * time.Second, ApprovedWindow: 30 * 24 * time.Hour}
}

// Deps may leave Orchestrator, Phrases, Approved or Recorder nil.
type Deps struct {
	Orchestrator Explorer
	Phrases      Phrases
	Approved     ApprovedNiches
	Brief        BriefBuilder
	Executor     BriefExecutor
	Recorder     HistoryRecorder
}

type Request struct {
	UserScope        string
	RiskLevel        int
	ForceExploration bool
	// Niche skips selection; Trend skips selection and phrase generation.
	Niche     string
	Trend     *brief.TrendSignal
	Overrides *brief.UserOverrides
	// Approved is stored on the history entry; approved niches feed the exploit path.
	Approved *bool
}

type Response struct {
	RunID       string              `json:"run_id"`
	Status      Status              `json:"status"`
	Mode        Mode                `json:"mode,omitempty"`
	Exploration *exploration.Result `json:"exploration,omitempty"`
	Brief       *brief.Brief        `json:"brief,omitempty"`
	Execution   *executor.Result    `json:"execution,omitempty"`
	Recorded    bool                `json:"recorded"`
	Error       string              `json:"error,omitempty"`
	DurationMS  int64               `json:"duration_ms"`
}

type Service struct {
	log  *logger.Logger
	deps Deps
	cfg  Config
	now  func() time.Time
}

func NewService(log *logger.Logger, deps Deps, cfg Config) *Service {
	d := DefaultConfig()
	if cfg.Budget <= 0 {
		cfg.Budget = d.Budget
	}
	if cfg.ApprovedWindow <= 0 {
		cfg.ApprovedWindow = d.ApprovedWindow
	}
	return &Service{
		log:  log.With("service", "GenerationService"),
		deps: deps,
		cfg:  cfg,
		now:  time.Now,
	}
}

// Run executes explore, brief, execute and record under the configured budget.
// When the budget runs out it returns whatever stages finished with StatusPartial.
func (s *Service) Run(ctx context.Context, req Request) *Response {
	start := s.now()
	ctx, td := ctxutil.EnsureRun(ctx)
	log := s.log.With(append(td.LogFields(), "user_scope", req.UserScope)...)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Budget)
	defer cancel()
	ctx, span := observability.StartSpan(ctx, "generation.run",
		attribute.String("run_id", td.RunID),
		attribute.Int("risk_level", req.RiskLevel),
	)
	defer span.End()

	resp := &Response{RunID: td.RunID}
	finish := func(status Status, err error) *Response {
		resp.Status = status
		if err != nil {
			resp.Error = err.Error()
		}
		dur := s.now().Sub(start)
		resp.DurationMS = dur.Milliseconds()
		span.SetAttributes(attribute.String("status", string(status)))
		observability.Current().ObserveGeneration(string(status), dur)
		switch status {
		case StatusComplete:
			log.Info("generation complete", "mode", resp.Mode, "niche", nicheOf(resp), "duration_ms", resp.DurationMS)
		case StatusPartial:
			log.Warn("generation budget exceeded; returning partial result", "mode", resp.Mode, "duration_ms", resp.DurationMS)
		default:
			log.Error("generation failed", "error", err, "duration_ms", resp.DurationMS)
		}
		return resp
	}

	sel, err := runStage(ctx, func() (selection, error) { return s.selectTrend(ctx, req) })
	if err != nil {
		return finish(statusFor(err), err)
	}
	resp.Mode, resp.Exploration = sel.mode, sel.exploration
	trend := sel.trend

	b, err := runStage(ctx, func() (*brief.Brief, error) {
		return s.deps.Brief.BuildBrief(ctx, trend, nil, req.Overrides)
	})
	if err != nil {
		return finish(statusFor(err), err)
	}
	resp.Brief = b

	exec, err := runStage(ctx, func() (executor.Result, error) { return s.deps.Executor.Execute(ctx, b), nil })
	if err != nil {
		return finish(statusFor(err), err)
	}
	resp.Execution = &exec
	if !exec.Success {
		return finish(StatusFailed, fmt.Errorf("generation: execution failed: %s", exec.Error))
	}

	if s.deps.Recorder != nil {
		resp.Recorded = s.deps.Recorder.Record(types.GenerationHistoryEntry{
			ID:          uuid.New(),
			UserScope:   req.UserScope,
			Phrase:      b.Text.Exact,
			Niche:       b.Context.Niche,
			Topic:       firstNonEmpty(trend.Topic, b.Context.Niche),
			RiskLevel:   req.RiskLevel,
			GeneratedAt: s.now().UTC(),
			Approved:    req.Approved,
		})
	}
	return finish(StatusComplete, nil)
}

type selection struct {
	trend       brief.TrendSignal
	mode        Mode
	exploration *exploration.Result
}

func explored(res *exploration.Result) selection {
	return selection{
		trend:       brief.TrendSignal{Phrase: res.Phrase, Topic: res.Topic, Niche: res.Niche},
		mode:        ModeExplore,
		exploration: res,
	}
}

// selectTrend picks the niche and phrase for this run.
func (s *Service) selectTrend(ctx context.Context, req Request) (selection, error) {
	if req.Trend != nil {
		return selection{trend: *req.Trend, mode: ModeDirected}, nil
	}
	if n := strings.TrimSpace(req.Niche); n != "" {
		return selection{trend: s.trendForNiche(ctx, req, n), mode: ModeDirected}, nil
	}

	orch := s.deps.Orchestrator
	if orch != nil {
		res := orch.Explore(ctx, exploration.Request{
			UserScope:        req.UserScope,
			RiskLevel:        req.RiskLevel,
			ForceExploration: req.ForceExploration,
		})
		if res != nil {
			return explored(res), nil
		}
	}

	if n := s.approvedNiche(ctx, req.UserScope); n != "" {
		return selection{trend: s.trendForNiche(ctx, req, n), mode: ModeExploit}, nil
	}

	// Nothing proven to exploit yet; explore instead.
	if orch != nil && !req.ForceExploration {
		res := orch.Explore(ctx, exploration.Request{UserScope: req.UserScope, RiskLevel: req.RiskLevel, ForceExploration: true})
		if res != nil {
			return explored(res), nil
		}
	}
	return selection{}, niches.ErrNoCandidates
}

func (s *Service) approvedNiche(ctx context.Context, userScope string) string {
	if s.deps.Approved == nil {
		return ""
	}
	names, err := s.deps.Approved.RecentApprovedNiches(dbctx.Context{Ctx: ctx}, userScope, s.now().Add(-s.cfg.ApprovedWindow), 1)
	if err != nil {
		s.log.Warn("approved niches unavailable", "error", err)
		observability.Current().IncFallback("generation", "approved_error")
		return ""
	}
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func (s *Service) trendForNiche(ctx context.Context, req Request, niche string) brief.TrendSignal {
	t := brief.TrendSignal{Niche: niche, Topic: niche}
	if req.Overrides != nil && strings.TrimSpace(req.Overrides.Text) != "" {
		return t
	}
	if s.deps.Phrases != nil {
		t.Phrase, _ = s.deps.Phrases.PhraseFor(ctx, niches.DiscoveredNiche{Name: niche, Source: niches.SourceStored}, req.RiskLevel)
	}
	return t
}

type stageResult[T any] struct {
	v   T
	err error
}

// runStage runs fn and waits for it or for ctx, whichever ends first. A stage
// abandoned at the deadline finishes in the background and its result is dropped.
func runStage[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	ch := make(chan stageResult[T], 1)
	go func() {
		v, err := fn()
		ch <- stageResult[T]{v: v, err: err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrBudgetExceeded
		}
		return zero, ctx.Err()
	}
}

func statusFor(err error) Status {
	if errors.Is(err, ErrBudgetExceeded) {
		return StatusPartial
	}
	return StatusFailed
}

func nicheOf(r *Response) string {
	if r.Brief != nil {
		return r.Brief.Context.Niche
	}
	return ""
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
