package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type traceDataKey struct{}

// TraceData identifies one generation run across log lines.
type TraceData struct {
	TraceID   string
	RequestID string
	RunID     string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(Default(ctx), traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// EnsureRun attaches TraceData to ctx when missing and assigns a RunID when
// the caller did not supply one.
func EnsureRun(ctx context.Context) (context.Context, *TraceData) {
	ctx = Default(ctx)
	td := GetTraceData(ctx)
	if td == nil {
		td = &TraceData{}
		ctx = WithTraceData(ctx, td)
	}
	if td.RunID == "" {
		td.RunID = uuid.NewString()
	}
	return ctx, td
}

// LogFields returns the non-empty ids as logger key/value pairs.
func (td *TraceData) LogFields() []any {
	if td == nil {
		return nil
	}
	var kv []any
	if td.RunID != "" {
		kv = append(kv, "run_id", td.RunID)
	}
	if td.RequestID != "" {
		kv = append(kv, "request_id", td.RequestID)
	}
	if td.TraceID != "" {
		kv = append(kv, "trace_id", td.TraceID)
	}
	return kv
}
