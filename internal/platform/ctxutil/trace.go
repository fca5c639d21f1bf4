package ctxutil

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type traceDataKey struct{}

type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// Detached keeps trace data, request data and the active span context but
// drops cancellation, for work that must outlive the request that triggered
// it (gate lifetimes, background transcription).
func Detached(ctx context.Context) context.Context {
	out := context.Background()
	if sc := trace.SpanContextFromContext(Default(ctx)); sc.IsValid() {
		out = trace.ContextWithRemoteSpanContext(out, sc)
	}
	if td := GetTraceData(Default(ctx)); td != nil {
		cp := *td
		out = WithTraceData(out, &cp)
	}
	if rd := GetRequestData(Default(ctx)); rd != nil {
		cp := *rd
		out = WithRequestData(out, &cp)
	}
	return out
}
