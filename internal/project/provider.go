// Package project finds the modules of a project and tells the pipeline
// when they change.
package project

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"vbscope/internal/source"
)

// ErrUnknownModule reports a module the provider does not hold.
var ErrUnknownModule = errors.New("unknown module")

// Op says what happened to a module.
type Op uint8

const (
	OpAdded Op = iota + 1
	OpEdited
	OpRemoved
)

func (op Op) String() string {
	switch op {
	case OpAdded:
		return "added"
	case OpEdited:
		return "edited"
	case OpRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Change is one module event.
type Change struct {
	Module source.ModuleID
	Op     Op
	Path   string
}

// Provider is the source of module text.
type Provider interface {
	// Project names the project the modules belong to.
	Project() string
	ListModules(ctx context.Context) ([]source.ModuleID, error)
	Snapshot(ctx context.Context, id source.ModuleID) (*source.Snapshot, error)
	// Changes delivers module events; nil when the provider never changes.
	Changes() <-chan Change
}

// MemoryProvider keeps module text in memory. Every Put and Remove emits a
// Change; events that do not fit the buffer are dropped and counted.
type MemoryProvider struct {
	project string

	mu      sync.RWMutex
	modules map[source.ModuleID]*source.Snapshot
	changes chan Change
	dropped atomic.Uint64
}

// NewMemoryProvider returns an empty provider for project.
func NewMemoryProvider(project string) *MemoryProvider {
	return &MemoryProvider{
		project: project,
		modules: make(map[source.ModuleID]*source.Snapshot),
		changes: make(chan Change, 256),
	}
}

// Project returns the project name.
func (p *MemoryProvider) Project() string { return p.project }

// Put stores the module text and returns its snapshot.
func (p *MemoryProvider) Put(id source.ModuleID, kind source.ModuleKind, text string) *source.Snapshot {
	snap := source.NewSnapshot(p.project, id, kind, []byte(text))
	p.mu.Lock()
	_, existed := p.modules[id]
	p.modules[id] = snap
	p.mu.Unlock()
	op := OpAdded
	if existed {
		op = OpEdited
	}
	p.emit(Change{Module: id, Op: op})
	return snap
}

// Remove deletes the module. It reports whether the module existed.
func (p *MemoryProvider) Remove(id source.ModuleID) bool {
	p.mu.Lock()
	_, ok := p.modules[id]
	delete(p.modules, id)
	p.mu.Unlock()
	if ok {
		p.emit(Change{Module: id, Op: OpRemoved})
	}
	return ok
}

func (p *MemoryProvider) emit(c Change) {
	select {
	case p.changes <- c:
	default:
		p.dropped.Add(1)
	}
}

// Dropped returns how many events did not fit the buffer.
func (p *MemoryProvider) Dropped() uint64 { return p.dropped.Load() }

// ListModules returns the module IDs in folded order.
func (p *MemoryProvider) ListModules(ctx context.Context) ([]source.ModuleID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	ids := make([]source.ModuleID, 0, len(p.modules))
	for id := range p.modules {
		ids = append(ids, id)
	}
	p.mu.RUnlock()
	source.SortModules(ids)
	return ids, nil
}

// Snapshot returns the current text of a module.
func (p *MemoryProvider) Snapshot(ctx context.Context, id source.ModuleID) (*source.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	snap, ok := p.modules[id]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	return snap, nil
}

// Changes delivers Put and Remove events.
func (p *MemoryProvider) Changes() <-chan Change { return p.changes }

// Snapshots loads every module the provider lists.
func Snapshots(ctx context.Context, p Provider) ([]*source.Snapshot, error) {
	ids, err := p.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*source.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := p.Snapshot(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}
