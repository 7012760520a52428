// Package driver runs the parse-and-resolve pipeline: it turns module
// snapshots into published generations of the declaration graph.
package driver

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"

	"vbscope/internal/diag"
	"vbscope/internal/library"
	"vbscope/internal/metrics"
	"vbscope/internal/project"
	"vbscope/internal/source"
	"vbscope/internal/state"
	"vbscope/internal/symbols"
	"vbscope/internal/trace"
)

var (
	// ErrCancelled is returned to every caller waiting on a cancelled run.
	ErrCancelled = errors.New("resolution cancelled")
	// ErrGraphNotReady is returned by Graph before the first run completes.
	ErrGraphNotReady = errors.New("declaration graph not ready")
	// ErrNoProvider is returned by Refresh when no module provider is set.
	ErrNoProvider = errors.New("no module provider")
)

// Options configures a Pipeline.
type Options struct {
	// Project names the project root declaration.
	Project string
	// Jobs bounds the worker pool; zero means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps parser diagnostics per module; zero means no cap.
	MaxDiagnostics uint
	// References are the libraries to load, in declared order.
	References []library.Reference
	// Loader loads references; nil uses a provider for built-in libraries.
	Loader library.Loader
	// Provider is the source Refresh and Watch read from.
	Provider project.Provider
	// State receives the module stages; nil creates one.
	State *state.Machine
	// Tracer receives run spans; nil disables tracing.
	Tracer trace.Tracer
}

// Pipeline owns the module state of one project and publishes generations.
// All methods are safe for concurrent use.
type Pipeline struct {
	project string
	jobs    int
	maxDiag uint
	loader  library.Loader
	source  project.Provider
	state   *state.Machine
	tracer  trace.Tracer

	graph atomic.Pointer[symbols.Graph]

	// mu guards everything below.
	mu        sync.Mutex
	modules   map[source.ModuleID]*moduleState
	refs      []library.Reference
	libs      *library.Set
	libDiags  []diag.Diagnostic
	refsDirty bool
	// refsVersion counts SetReferences calls; a run clears refsDirty only
	// when no call came in while it ran.
	refsVersion uint64
	pending     *pendingSet
	// stale are modules a cancelled run put back to Pending; the next run
	// brings them to a final stage even when their text did not change.
	stale     map[source.ModuleID]struct{}
	waiters   []*waiter
	current   []*waiter
	running   bool
	cancelRun context.CancelFunc
	gen       uint64
	last      RunInfo
}

type result struct {
	graph *symbols.Graph
	err   error
}

type waiter struct {
	done chan result
}

// New returns a pipeline with no modules. Nothing runs until Resolve.
func New(opts Options) *Pipeline {
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	loader := opts.Loader
	if loader == nil {
		loader = library.NewProvider("")
	}
	st := opts.State
	if st == nil {
		st = state.New(state.WithDropHook(metrics.NotificationsDropped.Inc))
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.Nop
	}
	name := opts.Project
	if name == "" && opts.Provider != nil {
		name = opts.Provider.Project()
	}
	if name == "" {
		name = "VBAProject"
	}
	return &Pipeline{
		project:   name,
		jobs:      jobs,
		maxDiag:   opts.MaxDiagnostics,
		loader:    loader,
		source:    opts.Provider,
		state:     st,
		tracer:    tracer,
		modules:   make(map[source.ModuleID]*moduleState),
		refs:      slices.Clone(opts.References),
		refsDirty: true,
		pending:   newPendingSet(),
	}
}

// Project returns the project name.
func (p *Pipeline) Project() string { return p.project }

// State returns the stage machine the pipeline reports to.
func (p *Pipeline) State() *state.Machine { return p.state }

// Graph returns the last published generation.
func (p *Pipeline) Graph() (*symbols.Graph, error) {
	g := p.graph.Load()
	if g == nil {
		return nil, ErrGraphNotReady
	}
	return g, nil
}

// LastRun describes the last completed run.
func (p *Pipeline) LastRun() RunInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Resolve applies the change set and returns the generation that includes
// it. While a run is in flight, calls merge their changes into the next run
// and all of them receive its result.
func (p *Pipeline) Resolve(ctx context.Context, cs ChangeSet) (*symbols.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	w := &waiter{done: make(chan result, 1)}
	p.mu.Lock()
	p.pending.add(cs)
	p.waiters = append(p.waiters, w)
	if !p.running {
		p.running = true
		go p.loop()
	}
	p.mu.Unlock()

	select {
	case r := <-w.done:
		return r.graph, r.err
	case <-ctx.Done():
		p.abandon(w)
		return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
	}
}

// abandon drops a waiter whose caller went away. The run in flight is
// cancelled once nobody waits for it.
func (p *Pipeline) abandon(w *waiter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i := slices.Index(p.waiters, w); i >= 0 {
		p.waiters = slices.Delete(p.waiters, i, i+1)
		return
	}
	if i := slices.Index(p.current, w); i >= 0 {
		p.current = slices.Delete(p.current, i, i+1)
		if len(p.current) == 0 && p.cancelRun != nil {
			p.cancelRun()
		}
	}
}

// Cancel stops the run in flight, if any. Its waiters receive ErrCancelled
// and its changes are kept for the next run.
func (p *Pipeline) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancelRun != nil {
		p.cancelRun()
	}
}

// SetReferences replaces the referenced libraries and re-resolves every module.
func (p *Pipeline) SetReferences(ctx context.Context, refs []library.Reference) (*symbols.Graph, error) {
	p.mu.Lock()
	p.refs = slices.Clone(refs)
	p.refsDirty = true
	p.refsVersion++
	p.mu.Unlock()
	return p.Resolve(ctx, ChangeSet{})
}

// loop runs batches until no caller waits.
func (p *Pipeline) loop() {
	for {
		p.mu.Lock()
		if len(p.waiters) == 0 {
			p.running = false
			p.mu.Unlock()
			return
		}
		batch := p.pending
		p.pending = newPendingSet()
		p.current, p.waiters = p.waiters, nil
		ctx, cancel := context.WithCancel(context.Background())
		p.cancelRun = cancel
		p.mu.Unlock()

		g, err := p.run(ctx, batch.changeSet())
		cancel()

		p.mu.Lock()
		p.cancelRun = nil
		served := p.current
		p.current = nil
		if err != nil {
			// the batch goes back in front of whatever arrived meanwhile
			batch.merge(p.pending)
			p.pending = batch
		}
		p.mu.Unlock()

		for _, w := range served {
			w.done <- result{graph: g, err: err}
		}
	}
}
