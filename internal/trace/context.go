package trace

import "context"

type (
	tracerKey struct{}
	spanKey   struct{}
	runKey    struct{}
)

// FromContext returns the tracer carried by ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx; nil attaches Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

// WithRun tags events emitted under ctx with a run identifier.
func WithRun(ctx context.Context, run string) context.Context {
	return context.WithValue(ctx, runKey{}, run)
}

// RunFromContext returns the run identifier carried by ctx.
func RunFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	run, _ := ctx.Value(runKey{}).(string)
	return run
}

func parentSpan(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(spanKey{}).(uint64)
	return id
}
