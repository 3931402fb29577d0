package diversity

import (
	"context"
	"sync"
	"time"

	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/data/repos"
	types "github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/domain"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/observability"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/dbctx"
	"github.com/kingymon1/Turbo-Merch-Clone-V2-sub001/internal/platform/logger"
)

type HistoryWriter interface {
	Append(dbc dbctx.Context, entry *types.GenerationHistoryEntry) error
}

type RecorderConfig struct {
	MaxInFlight  int
	WriteTimeout time.Duration
}

// Recorder persists history entries off the caller's path. Write failures are
// logged and counted, never returned.
type Recorder struct {
	log     *logger.Logger
	writer  HistoryWriter
	timeout time.Duration
	sem     chan struct{}
	wg      sync.WaitGroup
}

func NewRecorder(log *logger.Logger, writer HistoryWriter, cfg RecorderConfig) *Recorder {
	if cfg.MaxInFlight <= 0 {
		cfg.MaxInFlight = 32
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &Recorder{
		log:     log.With("service", "HistoryRecorder"),
		writer:  writer,
		timeout: cfg.WriteTimeout,
		sem:     make(chan struct{}, cfg.MaxInFlight),
	}
}

// Record schedules the write and returns immediately. It reports false when the
// entry was dropped because too many writes are already in flight.
func (r *Recorder) Record(entry types.GenerationHistoryEntry) bool {
	if r == nil || r.writer == nil {
		return false
	}
	select {
	case r.sem <- struct{}{}:
	default:
		r.log.Warn("history write dropped; recorder saturated",
			"niche", entry.Niche,
			"user_scope", entry.UserScope,
		)
		observability.Current().IncHistoryDropped()
		return false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.sem }()
		defer func() {
			if p := recover(); p != nil {
				r.log.Error("history write panicked", "panic", p)
				observability.Current().IncHistoryWrite("panic")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		e := entry
		err := r.writer.Append(dbctx.Context{Ctx: ctx}, &e)
		status := repos.Classify(err)
		observability.Current().IncHistoryWrite(status)
		if err != nil {
			r.log.Warn("history write failed",
				"niche", entry.Niche,
				"user_scope", entry.UserScope,
				"class", status,
				"error", err,
			)
		}
	}()
	return true
}

// Flush waits for outstanding writes or for ctx to end.
func (r *Recorder) Flush(ctx context.Context) error {
	if r == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
