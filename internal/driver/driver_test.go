package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vbscope/internal/library"
	"vbscope/internal/project"
	"vbscope/internal/source"
	"vbscope/internal/state"
	"vbscope/internal/symbols"
)

const testProject = "VBAProject"

func snap(name, text string) *source.Snapshot {
	return source.NewSnapshot(testProject, source.ModuleID(name), source.KindStandard, []byte(text))
}

func upsert(snaps ...*source.Snapshot) ChangeSet {
	return ChangeSet{Upserts: snaps}
}

func newPipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	if opts.Project == "" {
		opts.Project = testProject
	}
	if opts.Jobs == 0 {
		opts.Jobs = 2
	}
	return New(opts)
}

func stageOf(t *testing.T, p *Pipeline, id source.ModuleID) state.Stage {
	t.Helper()
	rec, ok := p.State().Module(id)
	require.True(t, ok, "no record for %s", id)
	return rec.Stage
}

// gateLoader blocks every Load until released or cancelled.
type gateLoader struct {
	next    library.Loader
	mu      sync.Mutex
	release chan struct{}
	calls   int
}

func newGateLoader() *gateLoader {
	return &gateLoader{next: library.NewProvider(""), release: make(chan struct{})}
}

func (l *gateLoader) Load(ctx context.Context, ref library.Reference) (*library.Library, error) {
	l.mu.Lock()
	l.calls++
	gate := l.release
	l.mu.Unlock()
	select {
	case <-gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return l.next.Load(ctx, ref)
}

func (l *gateLoader) open() {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.release:
	default:
		close(l.release)
	}
}

// shut makes later loads block again.
func (l *gateLoader) shut() {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.release:
		l.release = make(chan struct{})
	default:
	}
}

func TestGraphNotReadyBeforeFirstRun(t *testing.T) {
	p := newPipeline(t, Options{})
	_, err := p.Graph()
	assert.ErrorIs(t, err, ErrGraphNotReady)
	assert.Equal(t, state.Pending, p.State().Aggregate())
}

func TestResolveBindsAcrossModules(t *testing.T) {
	p := newPipeline(t, Options{})
	g, err := p.Resolve(context.Background(), upsert(
		snap("Module1", "Public Sub Foo()\nEnd Sub\n"),
		snap("Module2", "Sub Bar()\n    Foo\nEnd Sub\n"),
	))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), g.Generation())

	foo, ok := g.Lookup("Module1.Foo")
	require.True(t, ok)
	refs := g.ReferencesTo(foo.ID)
	require.Len(t, refs, 1)
	assert.Equal(t, source.ModuleID("Module2"), refs[0].Module)
	assert.Empty(t, g.Unbound())

	assert.Equal(t, state.Ready, stageOf(t, p, "Module1"))
	assert.Equal(t, state.Ready, stageOf(t, p, "Module2"))
	assert.Equal(t, state.Ready, p.State().Aggregate())

	published, err := p.Graph()
	require.NoError(t, err)
	assert.Same(t, g, published)

	info := p.LastRun()
	assert.Equal(t, uint64(1), info.Generation)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, []source.ModuleID{"Module1", "Module2"}, info.Parsed)
}

func TestUnboundReferenceIsRetained(t *testing.T) {
	p := newPipeline(t, Options{})
	g, err := p.Resolve(context.Background(), upsert(snap("Module1", "Sub Bar()\n    Baz\nEnd Sub\n")))
	require.NoError(t, err)

	unbound := g.Unbound()
	require.Len(t, unbound, 1)
	assert.Equal(t, "Baz", unbound[0].Name)
	assert.False(t, unbound[0].IsBound())
	assert.Equal(t, state.Ready, stageOf(t, p, "Module1"))
}

func TestLibraryMembersBind(t *testing.T) {
	p := newPipeline(t, Options{References: library.DefaultReferences()})
	g, err := p.Resolve(context.Background(), upsert(snap("Module1", "Sub A()\n    MsgBox \"hi\"\nEnd Sub\n")))
	require.NoError(t, err)

	assert.Empty(t, g.Unbound())
	assert.Equal(t, []string{"VBA", "stdole"}, g.Libraries())
	refs := g.References("Module1")
	require.Len(t, refs, 1)
	target, ok := g.Decl(refs[0].Target)
	require.True(t, ok)
	assert.Equal(t, "VBA", target.Library)
}

func TestMissingReferenceIsReported(t *testing.T) {
	p := newPipeline(t, Options{References: []library.Reference{
		{Name: "VBA", BuiltIn: true},
		{Name: "Nowhere", BuiltIn: true},
	}})
	g, err := p.Resolve(context.Background(), upsert(snap("Module1", "Sub A()\nEnd Sub\n")))
	require.NoError(t, err)
	assert.Equal(t, []string{"VBA"}, g.Libraries())
	require.Len(t, p.LastRun().Diagnostics, 1)
}

func TestUnchangedTextIsNotReparsed(t *testing.T) {
	p := newPipeline(t, Options{})
	ctx := context.Background()
	m1 := snap("Module1", "Public Sub Foo()\nEnd Sub\n")
	g1, err := p.Resolve(ctx, upsert(m1))
	require.NoError(t, err)
	e1, _ := g1.Module("Module1")

	g2, err := p.Resolve(ctx, upsert(snap("Module1", "Public Sub Foo()\nEnd Sub\n")))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), g2.Generation())
	assert.Empty(t, p.LastRun().Parsed)
	e2, _ := g2.Module("Module1")
	assert.Same(t, e1.Decls, e2.Decls)
	assert.Same(t, e1.Binding, e2.Binding)

	_, err = p.Resolve(ctx, ChangeSet{Upserts: []*source.Snapshot{m1}, Reparse: true})
	require.NoError(t, err)
	assert.Equal(t, []source.ModuleID{"Module1"}, p.LastRun().Parsed)
}

func TestEditKeepsUntouchedModules(t *testing.T) {
	p := newPipeline(t, Options{})
	ctx := context.Background()
	g1, err := p.Resolve(ctx, upsert(
		snap("Module1", "Public Sub Foo()\nEnd Sub\n"),
		snap("Module2", "Sub Bar()\n    Foo\nEnd Sub\n"),
		snap("Module3", "Sub Qux()\n    Dim x As Long\nEnd Sub\n"),
	))
	require.NoError(t, err)
	m3before, _ := g1.Module("Module3")

	// a body-only edit keeps Module1's surface; nobody else is bound again
	g2, err := p.Resolve(ctx, upsert(snap("Module1", "Public Sub Foo()\n    Dim y\nEnd Sub\n")))
	require.NoError(t, err)
	assert.Equal(t, []source.ModuleID{"Module1"}, p.LastRun().Rebound)
	m3after, _ := g2.Module("Module3")
	assert.Same(t, m3before.Decls, m3after.Decls)
	assert.Same(t, m3before.Binding, m3after.Binding)

	foo, ok := g2.Lookup("Module1.Foo")
	require.True(t, ok)
	assert.Len(t, g2.ReferencesTo(foo.ID), 1)

	// renaming Foo changes the surface and rebinds its user
	g3, err := p.Resolve(ctx, upsert(snap("Module1", "Public Sub Foo2()\nEnd Sub\n")))
	require.NoError(t, err)
	assert.Equal(t, []source.ModuleID{"Module1", "Module2"}, p.LastRun().Rebound)
	unbound := g3.Unbound()
	require.Len(t, unbound, 1)
	assert.Equal(t, "Foo", unbound[0].Name)
}

func TestRemovedModuleUnbindsUsers(t *testing.T) {
	p := newPipeline(t, Options{})
	ctx := context.Background()
	_, err := p.Resolve(ctx, upsert(
		snap("Module1", "Public Sub Foo()\nEnd Sub\n"),
		snap("Module2", "Sub Bar()\n    Foo\nEnd Sub\n"),
	))
	require.NoError(t, err)

	g, err := p.Resolve(ctx, ChangeSet{Removed: []source.ModuleID{"Module1"}})
	require.NoError(t, err)
	assert.Equal(t, []source.ModuleID{"Module2"}, g.Modules())
	require.Len(t, g.Unbound(), 1)
	_, ok := p.State().Module("Module1")
	assert.False(t, ok)
	assert.Equal(t, []source.ModuleID{"Module1"}, p.LastRun().Removed)
}

func TestParseFailureKeepsLastGoodDeclarations(t *testing.T) {
	p := newPipeline(t, Options{})
	ctx := context.Background()
	g1, err := p.Resolve(ctx, upsert(
		snap("Module1", "Public Sub Foo()\nEnd Sub\n"),
		snap("Module2", "Sub Bar()\n    Foo\nEnd Sub\n"),
	))
	require.NoError(t, err)
	before, _ := g1.Module("Module1")

	g2, err := p.Resolve(ctx, upsert(snap("Module1", "Public Sub Foo()\nEnd Function\n")))
	require.NoError(t, err)

	assert.Equal(t, state.ParsingFailed, stageOf(t, p, "Module1"))
	assert.Equal(t, state.Ready, stageOf(t, p, "Module2"))
	assert.Equal(t, state.Error, p.State().Aggregate())

	after, _ := g2.Module("Module1")
	assert.Same(t, before.Decls, after.Decls)
	assert.NotEqual(t, before.Snapshot.Hash, after.Snapshot.Hash)
	assert.NotEmpty(t, g2.Diagnostics("Module1"))

	foo, ok := g2.Lookup("Module1.Foo")
	require.True(t, ok)
	assert.Len(t, g2.ReferencesTo(foo.ID), 1)

	errs := p.State().Errors()
	require.Len(t, errs, 1)
	assert.Equal(t, source.ModuleID("Module1"), errs[0].Module)
	assert.Equal(t, uint32(2), errs[0].Pos.Line)
}

func TestDuplicateDeclarationIsResolverError(t *testing.T) {
	p := newPipeline(t, Options{})
	_, err := p.Resolve(context.Background(), upsert(
		snap("Module1", "Sub Foo()\nEnd Sub\nSub Foo()\nEnd Sub\n"),
	))
	require.NoError(t, err)
	assert.Equal(t, state.ResolverError, stageOf(t, p, "Module1"))
}

func TestResolveIsIdempotent(t *testing.T) {
	p := newPipeline(t, Options{})
	ctx := context.Background()
	cs := upsert(
		snap("Module1", "Public Sub Foo()\nEnd Sub\nPublic Function Twice(n As Long) As Long\n    Twice = n * 2\nEnd Function\n"),
		snap("Module2", "Sub Bar()\n    Dim x As Long\n    x = Twice(3)\n    Foo\n    Baz\nEnd Sub\n"),
	)
	g1, err := p.Resolve(ctx, cs)
	require.NoError(t, err)
	cs.Reparse = true
	g2, err := p.Resolve(ctx, cs)
	require.NoError(t, err)
	require.Equal(t, g1.Generation()+1, g2.Generation())
	assert.ElementsMatch(t, []source.ModuleID{"Module1", "Module2"}, p.LastRun().Parsed)

	type binding struct {
		Module source.ModuleID
		Name   string
		Target symbols.DeclID
	}
	shape := func(g *symbols.Graph) (ids []symbols.DeclID, refs []binding, unbound []string) {
		for _, m := range g.Modules() {
			for _, d := range g.InModule(m) {
				ids = append(ids, d.ID)
			}
			for _, ref := range g.References(m) {
				refs = append(refs, binding{ref.Module, ref.Name, ref.Target})
			}
		}
		for _, ref := range g.Unbound() {
			unbound = append(unbound, string(ref.Module)+"."+ref.Name)
		}
		return ids, refs, unbound
	}
	ids1, refs1, unbound1 := shape(g1)
	ids2, refs2, unbound2 := shape(g2)
	require.NotEmpty(t, refs1)
	assert.Equal(t, ids1, ids2)
	assert.Equal(t, refs1, refs2)
	assert.Equal(t, unbound1, unbound2)
	assert.Equal(t, []string{"Module2.Baz"}, unbound2)
}

func TestConcurrentResolvesCoalesce(t *testing.T) {
	loader := newGateLoader()
	p := newPipeline(t, Options{Loader: loader, References: []library.Reference{{Name: "VBA", BuiltIn: true}}})
	ctx := context.Background()

	first := make(chan *symbols.Graph, 1)
	go func() {
		g, err := p.Resolve(ctx, upsert(snap("Module1", "Public Sub Foo()\nEnd Sub\n")))
		assert.NoError(t, err)
		first <- g
	}()
	_, err := p.State().Wait(ctx, func(s state.Stage) bool { return s == state.LoadingReference })
	require.NoError(t, err)

	var wg sync.WaitGroup
	graphs := make([]*symbols.Graph, 2)
	for i, name := range []string{"Module2", "Module3"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g, err := p.Resolve(ctx, upsert(snap(name, "Sub S()\n    Foo\nEnd Sub\n")))
			assert.NoError(t, err)
			graphs[i] = g
		}()
	}
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.waiters) == 2
	}, time.Second, time.Millisecond)

	loader.open()
	wg.Wait()
	g1 := <-first

	assert.Equal(t, uint64(1), g1.Generation())
	require.NotNil(t, graphs[0])
	assert.Same(t, graphs[0], graphs[1])
	assert.Equal(t, uint64(2), graphs[0].Generation())
	assert.Len(t, graphs[0].Modules(), 3)
	assert.Empty(t, graphs[0].Unbound())
}

func TestCancelledRunRevertsAndRequeues(t *testing.T) {
	loader := newGateLoader()
	p := newPipeline(t, Options{Loader: loader, References: []library.Reference{{Name: "VBA", BuiltIn: true}}})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := p.Resolve(ctx, upsert(snap("Module1", "Public Sub Foo()\nEnd Sub\n")))
		done <- err
	}()
	_, err := p.State().Wait(context.Background(), func(s state.Stage) bool { return s == state.LoadingReference })
	require.NoError(t, err)
	cancel()

	err = <-done
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCancelled))

	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return !p.running
	}, time.Second, time.Millisecond)
	_, err = p.Graph()
	assert.ErrorIs(t, err, ErrGraphNotReady)
	assert.Equal(t, state.Pending, stageOf(t, p, "Module1"))

	// the cancelled edits ride along with the next run
	loader.open()
	g, err := p.Resolve(context.Background(), ChangeSet{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), g.Generation())
	assert.Equal(t, []source.ModuleID{"Module1"}, g.Modules())
	assert.Equal(t, state.Ready, stageOf(t, p, "Module1"))
}

func TestCancelledRunModulesSettleOnRetry(t *testing.T) {
	loader := newGateLoader()
	loader.open()
	p := newPipeline(t, Options{Loader: loader, References: []library.Reference{{Name: "VBA", BuiltIn: true}}})
	ctx := context.Background()
	original := snap("Module1", "Public Sub Foo()\nEnd Sub\n")
	_, err := p.Resolve(ctx, upsert(original, snap("Module2", "Sub Bar()\n    Foo\nEnd Sub\n")))
	require.NoError(t, err)

	// force the next run through reference loading so it can be held there
	loader.shut()
	p.mu.Lock()
	p.refsDirty = true
	p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		_, err := p.Resolve(runCtx, upsert(snap("Module1", "Public Sub Foo2()\nEnd Sub\n"), snap("Module3", "Sub C()\nEnd Sub\n")))
		done <- err
	}()
	_, err = p.State().Wait(ctx, func(s state.Stage) bool { return s == state.LoadingReference })
	require.NoError(t, err)
	cancel()
	require.ErrorIs(t, <-done, ErrCancelled)
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return !p.running
	}, time.Second, time.Millisecond)
	assert.Equal(t, state.Pending, stageOf(t, p, "Module1"))
	assert.Equal(t, state.Pending, stageOf(t, p, "Module3"))

	// the edit is undone and the new module dropped before the retry
	loader.open()
	g, err := p.Resolve(ctx, ChangeSet{Upserts: []*source.Snapshot{original}, Removed: []source.ModuleID{"Module3"}})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), g.Generation())
	assert.Equal(t, []source.ModuleID{"Module1", "Module2"}, g.Modules())
	assert.Equal(t, state.Ready, stageOf(t, p, "Module1"))
	assert.Equal(t, state.Ready, stageOf(t, p, "Module2"))
	_, tracked := p.State().Module("Module3")
	assert.False(t, tracked)
	assert.Equal(t, state.Ready, p.State().Aggregate())

	waitCtx, stop := context.WithTimeout(ctx, time.Second)
	defer stop()
	s, err := p.State().Wait(waitCtx, state.Settled)
	require.NoError(t, err)
	assert.Equal(t, state.Ready, s)
}

func TestResolveWithDoneContext(t *testing.T) {
	p := newPipeline(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Resolve(ctx, upsert(snap("Module1", "Sub A()\nEnd Sub\n")))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetReferencesRebindsEverything(t *testing.T) {
	p := newPipeline(t, Options{})
	ctx := context.Background()
	g1, err := p.Resolve(ctx, upsert(snap("Module1", "Sub A()\n    MsgBox \"x\"\nEnd Sub\n")))
	require.NoError(t, err)
	require.Len(t, g1.Unbound(), 1)

	g2, err := p.SetReferences(ctx, library.DefaultReferences())
	require.NoError(t, err)
	assert.Empty(t, g2.Unbound())
	assert.Equal(t, []source.ModuleID{"Module1"}, p.LastRun().Rebound)
	assert.Empty(t, p.LastRun().Parsed)
}

func TestRefreshFromProvider(t *testing.T) {
	mp := project.NewMemoryProvider("Book1")
	mp.Put("Module1", source.KindStandard, "Public Sub Foo()\nEnd Sub\n")
	mp.Put("Module2", source.KindStandard, "Sub Bar()\n    Foo\nEnd Sub\n")
	p := newPipeline(t, Options{Project: "Book1", Provider: mp})
	ctx := context.Background()

	g, err := p.Refresh(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, "Book1", g.Project().Name)
	assert.Len(t, g.Modules(), 2)

	mp.Remove("Module2")
	g, err = p.Refresh(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []source.ModuleID{"Module1"}, g.Modules())
	assert.Empty(t, p.LastRun().Parsed)
}

func TestRefreshWithoutProvider(t *testing.T) {
	p := newPipeline(t, Options{})
	_, err := p.Refresh(context.Background(), false)
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestWatchResolvesProviderChanges(t *testing.T) {
	mp := project.NewMemoryProvider(testProject)
	mp.Put("Module1", source.KindStandard, "Public Sub Foo()\nEnd Sub\n")
	p := newPipeline(t, Options{Provider: mp})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	graphs := make(chan *symbols.Graph, 16)
	done := make(chan error, 1)
	go func() {
		done <- p.Watch(ctx, time.Millisecond, func(g *symbols.Graph, err error) {
			if err == nil {
				graphs <- g
			}
		})
	}()

	g := <-graphs
	assert.Len(t, g.Modules(), 1)

	mp.Put("Module2", source.KindStandard, "Sub Bar()\n    Foo\nEnd Sub\n")
	require.Eventually(t, func() bool {
		g, err := p.Graph()
		return err == nil && len(g.Modules()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestPendingSetLastEditWins(t *testing.T) {
	ps := newPendingSet()
	a1 := snap("A", "Sub X()\nEnd Sub\n")
	a2 := snap("A", "Sub Y()\nEnd Sub\n")
	ps.add(upsert(a1))
	ps.add(ChangeSet{Removed: []source.ModuleID{"A"}})
	ps.add(upsert(a2))
	ps.add(ChangeSet{Removed: []source.ModuleID{"B"}})

	cs := ps.changeSet()
	require.Len(t, cs.Upserts, 1)
	assert.Same(t, a2, cs.Upserts[0])
	assert.Equal(t, []source.ModuleID{"B"}, cs.Removed)

	older := newPendingSet()
	older.add(upsert(a1))
	older.merge(ps)
	assert.Same(t, a2, older.changeSet().Upserts[0])
	assert.False(t, older.empty())
}
