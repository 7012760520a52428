package driver

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"fortio.org/safecast"
	"github.com/google/uuid"

	"vbscope/internal/ast"
	"vbscope/internal/diag"
	"vbscope/internal/library"
	"vbscope/internal/metrics"
	"vbscope/internal/observ"
	"vbscope/internal/parser"
	"vbscope/internal/source"
	"vbscope/internal/state"
	"vbscope/internal/symbols"
	"vbscope/internal/trace"
)

// runner carries one run from its change set to a published generation.
// Nothing it builds is visible before publish.
type runner struct {
	p     *Pipeline
	timer *observ.Timer

	prev map[source.ModuleID]*moduleState
	next map[source.ModuleID]*moduleState

	changed []*source.Snapshot
	removed []source.ModuleID
	// names collects the folded module-level names whose surface changed.
	names map[string]struct{}
	// touched are modules moved out of their committed stage by this run.
	touched map[source.ModuleID]bool
	// settled are modules whose stage is final for this run already.
	settled map[source.ModuleID]bool

	libs        *library.Set
	libsChanged bool
	libDiags    []diag.Diagnostic
	refsVersion uint64

	ix      *symbols.Index
	rebound []source.ModuleID
	stale   map[source.ModuleID]struct{}
}

func (p *Pipeline) run(ctx context.Context, cs ChangeSet) (*symbols.Graph, error) {
	runID := uuid.NewString()
	p.state.BeginRun(runID)
	ctx = trace.WithRun(trace.WithTracer(ctx, p.tracer), runID)
	ctx, span := trace.Start(ctx, trace.ScopeRun, "resolve")
	defer span.End("")

	p.mu.Lock()
	r := &runner{
		p:           p,
		timer:       observ.NewTimer(),
		prev:        maps.Clone(p.modules),
		next:        maps.Clone(p.modules),
		names:       make(map[string]struct{}),
		touched:     make(map[source.ModuleID]bool),
		settled:     make(map[source.ModuleID]bool),
		libs:        p.libs,
		libDiags:    p.libDiags,
		refsVersion: p.refsVersion,
		stale:       maps.Clone(p.stale),
	}
	refs, reload := slices.Clone(p.refs), p.refsDirty || p.libs == nil
	p.mu.Unlock()

	r.plan(cs)
	span.Set("changed", strconv.Itoa(len(r.changed))).Set("removed", strconv.Itoa(len(r.removed)))

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"references", func(ctx context.Context) error {
			if !reload {
				return nil
			}
			return r.loadLibraries(ctx, refs)
		}},
		{"parse", r.parse},
		{"collect", r.collect},
		{"bind", r.bind},
	}
	for _, step := range steps {
		if err := r.stage(ctx, step.name, step.fn); err != nil {
			r.revert()
			metrics.RunsTotal.WithLabelValues(metrics.OutcomeCancelled).Inc()
			span.Set("outcome", metrics.OutcomeCancelled)
			return nil, err
		}
	}
	g := r.publish(ctx, runID)
	metrics.RunsTotal.WithLabelValues(metrics.OutcomeOK).Inc()
	return g, nil
}

// stage runs one pipeline stage under a pass span and the timer. A stage
// only fails when the run is cancelled.
func (r *runner) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return cancelled(ctx)
	}
	ctx, span := trace.Start(ctx, trace.ScopeStage, name)
	idx := r.timer.Begin(name)
	err := fn(ctx)
	if err == nil && ctx.Err() != nil {
		err = cancelled(ctx)
	}
	note := ""
	if err != nil {
		note = "cancelled"
	}
	dur := r.timer.End(idx, note)
	span.End(note)
	metrics.ObserveStage(name, dur, r.stageSize(name))
	return err
}

func (r *runner) stageSize(name string) int {
	switch name {
	case "parse", "collect":
		return len(r.changed)
	case "bind":
		return len(r.rebound)
	}
	return 0
}

func cancelled(ctx context.Context) error {
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, ErrCancelled) {
		return fmt.Errorf("%w: %w", ErrCancelled, cause)
	}
	return ErrCancelled
}

// plan sorts the change set into modules to parse and modules to drop.
// Upserts with unchanged text are skipped unless a reparse was requested.
// Modules left Pending by a cancelled run are parsed again from their last
// committed text; those that were never committed and are gone are forgotten.
func (r *runner) plan(cs ChangeSet) {
	for _, id := range cs.Removed {
		old, ok := r.prev[id]
		if !ok {
			continue
		}
		r.removed = append(r.removed, id)
		delete(r.next, id)
		for name := range old.decls.Surface() {
			r.names[name] = struct{}{}
		}
	}
	for _, snap := range cs.Upserts {
		if !cs.Reparse && r.prev[snap.Module].sameText(snap) {
			continue
		}
		r.changed = append(r.changed, snap)
	}
	for id := range r.stale {
		if slices.ContainsFunc(r.changed, func(s *source.Snapshot) bool { return s.Module == id }) {
			continue
		}
		if ms, ok := r.next[id]; ok {
			r.changed = append(r.changed, ms.snap)
		} else {
			r.p.state.Forget(id)
		}
	}
	slices.SortFunc(r.changed, func(a, b *source.Snapshot) int {
		return source.CompareModules(a.Module, b.Module)
	})
	for _, snap := range r.changed {
		r.p.state.Track(snap.Module)
		r.touched[snap.Module] = true
	}
}

// loadLibraries loads every reference in declared order. A reference that
// fails to load is reported and left out.
func (r *runner) loadLibraries(ctx context.Context, refs []library.Reference) error {
	st := r.p.state
	defer st.EndLoading()
	var (
		libs  []*library.Library
		diags []diag.Diagnostic
	)
	for _, ref := range refs {
		if ctx.Err() != nil {
			return cancelled(ctx)
		}
		st.BeginLoading(ref.Name)
		lib, err := r.p.loader.Load(ctx, ref)
		switch {
		case err == nil:
			libs = append(libs, lib)
		case ctx.Err() != nil:
			return cancelled(ctx)
		case errors.Is(err, library.ErrNotFound):
			diags = append(diags, diag.NewError(diag.ProjReferenceNotFound, source.Span{},
				fmt.Sprintf("reference %s: %v", ref, err)))
		default:
			diags = append(diags, diag.NewError(diag.ProjReferenceLoadFailed, source.Span{},
				fmt.Sprintf("reference %s: %v", ref, err)))
		}
	}
	set := library.NewSet(libs...)
	r.libsChanged = r.libs == nil || r.libs.Fingerprint() != set.Fingerprint() || !sameDecls(r.libs, set)
	r.libs = set
	r.libDiags = diags
	return nil
}

func sameDecls(a, b *library.Set) bool {
	x, y := a.Decls(), b.Decls()
	return slices.Equal(x, y)
}

// parse runs the parser over every changed module in parallel.
func (r *runner) parse(ctx context.Context) error {
	out := make([]*moduleState, len(r.changed))
	err := r.p.each(ctx, len(r.changed), func(ctx context.Context, i int) {
		snap := r.changed[i]
		r.p.transition(snap.Module, state.Parsing, nil)
		span := trace.StartModule(ctx, "parse", snap.Module)
		ms := r.p.parseModule(snap)
		span.End("")
		out[i] = ms
		if ms.failed {
			err := moduleError(snap, state.ParsingFailed, ms.parse)
			trace.Fail(ctx, "parse", snap.Module, err)
			r.p.transition(snap.Module, state.ParsingFailed, err)
			return
		}
		r.p.transition(snap.Module, state.Parsed, nil)
	})
	if err != nil {
		return err
	}
	for i, snap := range r.changed {
		r.next[snap.Module] = out[i]
		if out[i].failed {
			r.settled[snap.Module] = true
		}
	}
	return nil
}

func (p *Pipeline) parseModule(snap *source.Snapshot) (ms *moduleState) {
	limit, err := safecast.Conv[int](p.maxDiag)
	if err != nil {
		limit = 0
	}
	bag := diag.NewBag(limit)
	ms = &moduleState{snap: snap}
	func() {
		defer func() {
			if rec := recover(); rec != nil {
				bag.Add(diag.Internal(diag.SynInternal, snap.Module, "parser", rec))
				ms.file = nil
			}
		}()
		res := parser.ParseFile(snap, parser.Options{MaxErrors: p.maxDiag, Reporter: diag.BagReporter{Bag: bag}})
		ms.file = res.File
	}()
	if ms.file == nil {
		ms.file = &ast.File{Module: snap.Module, Kind: snap.Kind, Base: ast.Base{Span: source.Span{Module: snap.Module}}}
	}
	ms.parse = bag.Items()
	ms.failed = bag.HasErrors()
	return ms
}

// collect builds the declarations of every changed module in parallel. A
// module that failed to parse keeps its last good declarations, or gets
// those of its partial tree when it never parsed.
func (r *runner) collect(ctx context.Context) error {
	project := r.p.project
	bad := make([]bool, len(r.changed))
	err := r.p.each(ctx, len(r.changed), func(ctx context.Context, i int) {
		id := r.changed[i].Module
		ms := r.next[id]
		if ms.failed {
			if old := r.prev[id]; old != nil && old.decls != nil {
				ms.decls = old.decls
				return
			}
			ms.decls, _ = safeCollect(project, ms.snap, ms.file)
			return
		}
		r.p.transition(id, state.ResolvingDeclarations, nil)
		span := trace.StartModule(ctx, "collect", id)
		decls, panicked := safeCollect(project, ms.snap, ms.file)
		span.End("")
		ms.decls = decls
		if panicked || hasErrors(decls.Diags) {
			err := moduleError(ms.snap, state.ResolverError, decls.Diags)
			trace.Fail(ctx, "collect", id, err)
			r.p.transition(id, state.ResolverError, err)
			bad[i] = true
			return
		}
		r.p.transition(id, state.ResolvedDeclarations, nil)
	})
	if err != nil {
		return err
	}
	for i, snap := range r.changed {
		if bad[i] {
			r.settled[snap.Module] = true
		}
		var before map[string]string
		if old := r.prev[snap.Module]; old != nil {
			before = old.decls.Surface()
		}
		for _, name := range symbols.SurfaceDiff(before, r.next[snap.Module].decls.Surface()) {
			r.names[name] = struct{}{}
		}
	}
	return nil
}

func safeCollect(project string, snap *source.Snapshot, file *ast.File) (decls *symbols.ModuleDecls, panicked bool) {
	defer func() {
		if rec := recover(); rec != nil {
			empty := &ast.File{Module: snap.Module, Kind: snap.Kind, Base: ast.Base{Span: source.Span{Module: snap.Module}}}
			decls = symbols.Collect(project, snap, empty)
			decls.Diags = append(decls.Diags, diag.Internal(diag.ResInternal, snap.Module, "declaration build", rec))
			panicked = true
		}
	}()
	return symbols.Collect(project, snap, file), false
}

// affected lists the modules to bind again: the changed ones, those that
// use a name whose surface changed, and all of them when the libraries changed.
func (r *runner) affected() []source.ModuleID {
	names := make([]string, 0, len(r.names))
	for name := range r.names {
		names = append(names, name)
	}
	slices.Sort(names)
	changed := make(map[source.ModuleID]bool, len(r.changed))
	for _, snap := range r.changed {
		changed[snap.Module] = true
	}
	var out []source.ModuleID
	for id, ms := range r.next {
		if changed[id] || r.libsChanged || ms.binding == nil || ms.binding.UsesAny(names) {
			out = append(out, id)
		}
	}
	source.SortModules(out)
	return out
}

// bind resolves the references of every affected module in parallel against
// one index of the whole project.
func (r *runner) bind(ctx context.Context) error {
	decls := make([]*symbols.ModuleDecls, 0, len(r.next))
	for _, ms := range r.next {
		decls = append(decls, ms.decls)
	}
	var libDecls []*symbols.LibraryDecls
	if r.libs != nil {
		libDecls = r.libs.Decls()
	}
	r.ix = symbols.NewIndex(r.p.project, decls, libDecls)
	r.rebound = r.affected()

	out := make([]*moduleState, len(r.rebound))
	err := r.p.each(ctx, len(r.rebound), func(ctx context.Context, i int) {
		id := r.rebound[i]
		cur := r.next[id]
		ms := *cur
		quiet := r.settled[id] || cur.failed
		if !quiet {
			if !r.touched[id] {
				r.p.transition(id, state.Pending, nil)
				r.touched[id] = true
			}
			r.p.transition(id, state.ResolvingReferences, nil)
		}
		span := trace.StartModule(ctx, "bind", id)
		ms.binding = safeBind(r.ix, ms.decls)
		span.Set("refs", strconv.Itoa(len(ms.binding.Refs))).End("")
		for _, ref := range ms.binding.Refs {
			if !ref.IsBound() {
				trace.ModulePoint(ctx, trace.ScopeNode, "unbound", id, ref.Name)
			}
		}
		out[i] = &ms
		if quiet {
			return
		}
		if hasErrors(ms.decls.Diags) || hasErrors(ms.binding.Diags) {
			all := append(slices.Clone(ms.decls.Diags), ms.binding.Diags...)
			err := moduleError(ms.decls.Snap, state.ResolverError, all)
			trace.Fail(ctx, "bind", id, err)
			r.p.transition(id, state.ResolverError, err)
			return
		}
		r.p.transition(id, state.Ready, nil)
	})
	if err != nil {
		return err
	}
	for i, id := range r.rebound {
		r.next[id] = out[i]
	}
	return nil
}

func safeBind(ix *symbols.Index, m *symbols.ModuleDecls) (b *symbols.ModuleBinding) {
	defer func() {
		if rec := recover(); rec != nil {
			b = &symbols.ModuleBinding{
				Module: m.Module,
				AsType: make(map[symbols.DeclID]symbols.DeclID),
				Diags:  []diag.Diagnostic{diag.Internal(diag.ResInternal, m.Module, "reference resolution", rec)},
			}
		}
	}()
	return ix.Bind(m)
}

// revert puts every module this run moved back to Pending and remembers
// them for the next run.
func (r *runner) revert() {
	ids := slices.Collect(maps.Keys(r.touched))
	source.SortModules(ids)
	r.p.mu.Lock()
	if r.p.stale == nil {
		r.p.stale = make(map[source.ModuleID]struct{})
	}
	for id := range r.stale {
		r.p.stale[id] = struct{}{}
	}
	for _, id := range ids {
		r.p.stale[id] = struct{}{}
	}
	r.p.mu.Unlock()
	for _, id := range ids {
		_ = r.p.state.Transition(id, state.Pending, nil)
	}
}

// publish swaps in the new generation.
func (r *runner) publish(ctx context.Context, runID string) *symbols.Graph {
	_, span := trace.Start(ctx, trace.ScopeStage, "publish")
	defer span.End("")
	p := r.p

	entries := make([]*symbols.ModuleEntry, 0, len(r.next))
	for _, ms := range r.next {
		entries = append(entries, ms.entry())
	}
	var diags []diag.Diagnostic
	diags = append(diags, r.libDiags...)
	if dp, ok := p.source.(interface{ Diagnostics() []diag.Diagnostic }); ok {
		diags = append(diags, dp.Diagnostics()...)
	}

	p.mu.Lock()
	p.gen++
	gen := p.gen
	g := symbols.NewGraph(gen, r.ix, entries)
	p.modules = r.next
	p.stale = nil
	p.libs = r.libs
	p.libDiags = r.libDiags
	if p.refsVersion == r.refsVersion {
		p.refsDirty = false
	}
	info := RunInfo{
		ID:          runID,
		Generation:  gen,
		Rebound:     r.rebound,
		Removed:     r.removed,
		Diagnostics: diags,
		Timings:     r.timer.Report(),
	}
	for _, snap := range r.changed {
		info.Parsed = append(info.Parsed, snap.Module)
	}
	p.last = info
	p.graph.Store(g)
	p.mu.Unlock()

	for _, id := range r.removed {
		p.state.Forget(id)
	}
	p.state.MarkCompleted(gen)

	st := g.Stats()
	metrics.Published(gen, st.Modules, st.Declarations, st.References, st.Unbound)
	span.Set("generation", strconv.FormatUint(gen, 10))
	trace.Point(ctx, trace.ScopeStage, "published", time.Now().Format(time.RFC3339Nano))
	return g
}

func hasErrors(diags []diag.Diagnostic) bool {
	return slices.ContainsFunc(diags, func(d diag.Diagnostic) bool { return d.Severity >= diag.SevError })
}

// moduleError wraps the first error of diags with its position.
func moduleError(snap *source.Snapshot, stage state.Stage, diags []diag.Diagnostic) error {
	for _, d := range diags {
		if d.Severity < diag.SevError {
			continue
		}
		return &state.ModuleError{
			Module: snap.Module,
			Stage:  stage,
			Pos:    snap.Position(d.Primary.Start),
			Err:    fmt.Errorf("%s %s", d.Code.ID(), d.Message),
		}
	}
	return &state.ModuleError{Module: snap.Module, Stage: stage, Err: errors.New(stage.Label())}
}
