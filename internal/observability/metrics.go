package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

type Metrics struct {
	llmRequests        *CounterVec
	llmLatency         *HistogramVec
	llmTokens          *CounterVec
	fallbacks          *CounterVec
	diversityTier      *CounterVec
	diversityScore     *HistogramVec
	explorationOutcome *CounterVec
	explorationTries   *HistogramVec
	complianceScore    *HistogramVec
	executions         *CounterVec
	briefStyleSource   *CounterVec
	generationRuns     *CounterVec
	generationLatency  *HistogramVec
	historyDropped     *Counter
	historyWrites      *CounterVec
	cacheLookups       *CounterVec
	redisUp            *Gauge
	redisPing          *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

// Current returns the process metrics or nil when metrics are disabled.
// Every method tolerates a nil receiver.
func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	if v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 15 * time.Second
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		llmRequests: NewCounterVec("merch_llm_requests_total", "LLM requests by model/endpoint/status.", []string{"model", "endpoint", "status"}),
		llmLatency: NewHistogramVec(
			"merch_llm_request_duration_seconds",
			"LLM request latency in seconds by model/endpoint/status.",
			[]string{"model", "endpoint", "status"},
			[]float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120},
		),
		llmTokens:      NewCounterVec("merch_llm_tokens_total", "LLM tokens by model/kind.", []string{"model", "kind"}),
		fallbacks:      NewCounterVec("merch_fallbacks_total", "Fallback paths taken by component/reason.", []string{"component", "reason"}),
		diversityTier:  NewCounterVec("merch_diversity_recommendations_total", "Diversity recommendations by tier.", []string{"tier"}),
		diversityScore: NewHistogramVec("merch_diversity_overall_score", "Overall diversity score distribution.", nil, []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}),
		explorationOutcome: NewCounterVec(
			"merch_exploration_outcomes_total",
			"Exploration outcomes (exploit, accepted, degraded, empty).",
			[]string{"outcome"},
		),
		explorationTries: NewHistogramVec("merch_exploration_attempts", "Attempts used per exploration.", nil, []float64{1, 2, 3, 4, 5, 8}),
		complianceScore:  NewHistogramVec("merch_brief_compliance_score", "Brief compliance score distribution.", []string{"fallback"}, []float64{0.2, 0.4, 0.6, 0.8, 1}),
		executions:       NewCounterVec("merch_brief_executions_total", "Brief executions by outcome.", []string{"outcome"}),
		briefStyleSource: NewCounterVec("merch_brief_style_source_total", "Design briefs by overall style source.", []string{"source"}),
		generationRuns:   NewCounterVec("merch_generation_runs_total", "Generation runs by status.", []string{"status"}),
		generationLatency: NewHistogramVec(
			"merch_generation_duration_seconds",
			"End to end generation latency by status.",
			[]string{"status"},
			[]float64{1, 5, 10, 30, 60, 120, 240, 300},
		),
		historyDropped: NewCounter("merch_history_records_dropped_total", "History records dropped because the writer was saturated."),
		historyWrites:  NewCounterVec("merch_history_writes_total", "History writes by status.", []string{"status"}),
		cacheLookups:   NewCounterVec("merch_cache_lookups_total", "Cache lookups by namespace/result.", []string{"namespace", "result"}),
		redisUp:        NewGauge("merch_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:      NewGauge("merch_redis_ping_seconds", "Last Redis ping latency in seconds."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.fallbacks,
		m.diversityTier, m.diversityScore,
		m.explorationOutcome, m.explorationTries,
		m.complianceScore, m.executions, m.briefStyleSource,
		m.generationRuns, m.generationLatency,
		m.historyDropped, m.historyWrites,
		m.cacheLookups, m.redisUp, m.redisPing,
	}
	for _, pw := range all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveLLMRequest(model, endpoint, status string, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	model = orUnknown(model)
	endpoint = orUnknown(endpoint)
	status = strings.TrimSpace(status)
	if status == "" {
		status = "0"
	}
	m.llmRequests.Inc(model, endpoint, status)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, endpoint, status)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// IncFallback counts a degraded path, e.g. ("niches", "ai_error").
func (m *Metrics) IncFallback(component, reason string) {
	if m == nil {
		return
	}
	m.fallbacks.Inc(orUnknown(component), orUnknown(reason))
}

func (m *Metrics) ObserveDiversity(tier string, overall float64) {
	if m == nil {
		return
	}
	m.diversityTier.Inc(orUnknown(tier))
	m.diversityScore.Observe(overall)
}

func (m *Metrics) ObserveExploration(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.explorationOutcome.Inc(orUnknown(outcome))
	if attempts > 0 {
		m.explorationTries.Observe(float64(attempts))
	}
}

func (m *Metrics) ObserveCompliance(score float64, usedFallback bool) {
	if m == nil {
		return
	}
	fb := "false"
	outcome := "ai"
	if usedFallback {
		fb = "true"
		outcome = "fallback"
	}
	m.complianceScore.Observe(score, fb)
	m.executions.Inc(outcome)
}

func (m *Metrics) IncBriefStyleSource(source string) {
	if m == nil {
		return
	}
	m.briefStyleSource.Inc(orUnknown(source))
}

func (m *Metrics) ObserveGeneration(status string, dur time.Duration) {
	if m == nil {
		return
	}
	status = orUnknown(status)
	m.generationRuns.Inc(status)
	if dur > 0 {
		m.generationLatency.Observe(dur.Seconds(), status)
	}
}

func (m *Metrics) IncHistoryDropped() {
	if m == nil {
		return
	}
	m.historyDropped.Inc()
}

func (m *Metrics) IncHistoryWrite(status string) {
	if m == nil {
		return
	}
	m.historyWrites.Inc(orUnknown(status))
}

func (m *Metrics) IncCacheLookup(namespace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.Inc(orUnknown(namespace), result)
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

func orUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
