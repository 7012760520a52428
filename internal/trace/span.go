package trace

import (
	"context"
	"sync/atomic"
	"time"

	"vbscope/internal/source"
)

var (
	seq     atomic.Uint64
	spanIDs atomic.Uint64
)

func emit(t Tracer, ev *Event) {
	ev.Seq = seq.Add(1)
	t.Emit(ev)
}

// Span is an open begin/end pair. A nil or disabled span is safe to use.
type Span struct {
	t       Tracer
	begin   Event
	started time.Time
	attrs   map[string]string
}

// Start opens a span under the one carried by ctx and returns a context
// carrying the new span.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	sp := open(ctx, scope, name, "")
	if sp == nil {
		return ctx, nil
	}
	return context.WithValue(ctx, spanKey{}, sp.begin.Span), sp
}

// StartModule opens a module-scope span for one unit of stage work.
func StartModule(ctx context.Context, stage string, id source.ModuleID) *Span {
	return open(ctx, ScopeModule, stage, id)
}

func open(ctx context.Context, scope Scope, name string, module source.ModuleID) *Span {
	t := FromContext(ctx)
	if !t.Level().Allows(scope) {
		return nil
	}
	now := time.Now()
	sp := &Span{
		t: t,
		begin: Event{
			Time:   now,
			Kind:   KindBegin,
			Scope:  scope,
			Span:   spanIDs.Add(1),
			Parent: parentSpan(ctx),
			Run:    RunFromContext(ctx),
			Name:   name,
			Module: module,
		},
		started: now,
	}
	ev := sp.begin
	emit(t, &ev)
	return sp
}

// Set attaches an attribute to the end event.
func (s *Span) Set(key, value string) *Span {
	if s == nil {
		return nil
	}
	if s.attrs == nil {
		s.attrs = make(map[string]string)
	}
	s.attrs[key] = value
	return s
}

// End closes the span and returns its duration.
func (s *Span) End(detail string) time.Duration {
	if s == nil {
		return 0
	}
	dur := time.Since(s.started)
	ev := s.begin
	ev.Time = time.Now()
	ev.Kind = KindEnd
	ev.Detail = detail
	ev.Attrs = s.attrs
	emit(s.t, &ev)
	return dur
}

// ID returns the span identifier, zero for a disabled span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.begin.Span
}

// Point records an instant event under the span carried by ctx.
func Point(ctx context.Context, scope Scope, name, detail string) {
	t := FromContext(ctx)
	if !t.Level().Allows(scope) {
		return
	}
	emit(t, &Event{
		Time:   time.Now(),
		Kind:   KindPoint,
		Scope:  scope,
		Parent: parentSpan(ctx),
		Run:    RunFromContext(ctx),
		Name:   name,
		Detail: detail,
	})
}

// ModulePoint records an instant event about one module at the given scope.
func ModulePoint(ctx context.Context, scope Scope, name string, id source.ModuleID, detail string) {
	t := FromContext(ctx)
	if !t.Level().Allows(scope) {
		return
	}
	emit(t, &Event{
		Time:   time.Now(),
		Kind:   KindPoint,
		Scope:  scope,
		Parent: parentSpan(ctx),
		Run:    RunFromContext(ctx),
		Name:   name,
		Module: id,
		Detail: detail,
	})
}

// Fail records that a module ended a stage in a failure state.
func Fail(ctx context.Context, stage string, id source.ModuleID, err error) {
	t := FromContext(ctx)
	if t.Level() < LevelError {
		return
	}
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	emit(t, &Event{
		Time:   time.Now(),
		Kind:   KindError,
		Scope:  ScopeModule,
		Parent: parentSpan(ctx),
		Run:    RunFromContext(ctx),
		Name:   stage,
		Module: id,
		Detail: detail,
	})
}
