package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"vbscope/internal/metrics"
	"vbscope/internal/project"
	"vbscope/internal/source"
	"vbscope/internal/symbols"
	"vbscope/internal/trace"
)

// Refresh reads every module from the provider and resolves the project.
// Modules the provider no longer lists are removed. With reparse set, every
// module is parsed again even when its text did not change.
func (p *Pipeline) Refresh(ctx context.Context, reparse bool) (*symbols.Graph, error) {
	if p.source == nil {
		return nil, ErrNoProvider
	}
	snaps, err := project.Snapshots(ctx, p.source)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", p.project, err)
	}
	cs := ChangeSet{Upserts: snaps, Reparse: reparse}
	listed := make(map[source.ModuleID]bool, len(snaps))
	for _, snap := range snaps {
		listed[snap.Module] = true
	}
	p.mu.Lock()
	for id := range p.modules {
		if !listed[id] {
			cs.Removed = append(cs.Removed, id)
		}
	}
	p.mu.Unlock()
	source.SortModules(cs.Removed)
	return p.Resolve(ctx, cs)
}

// Watch resolves the project once and then again after every batch of
// provider changes, at most once per interval. publish receives every
// generation; errors of single runs are reported there too. Watch returns
// when ctx is done.
func (p *Pipeline) Watch(ctx context.Context, interval time.Duration, publish func(*symbols.Graph, error)) error {
	if p.source == nil {
		return ErrNoProvider
	}
	if publish == nil {
		publish = func(*symbols.Graph, error) {}
	}
	publish(p.Refresh(ctx, false))

	changes := p.source.Changes()
	if changes == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	if interval <= 0 {
		interval = time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	for {
		var batch []project.Change
		select {
		case <-ctx.Done():
			return ctx.Err()
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			batch = append(batch, c)
		}
		if err := limiter.Wait(ctx); err != nil {
			return ctx.Err()
		}
		batch = drain(changes, batch)
		cs, err := p.changeSet(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			publish(nil, err)
			continue
		}
		trace.Point(trace.WithTracer(ctx, p.tracer), trace.ScopeRun, "watch", fmt.Sprintf("%d changes", len(batch)))
		g, err := p.Resolve(ctx, cs)
		if errors.Is(err, ErrCancelled) && ctx.Err() != nil {
			return ctx.Err()
		}
		publish(g, err)
	}
}

// drain takes whatever changes are already queued without blocking.
func drain(changes <-chan project.Change, batch []project.Change) []project.Change {
	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return batch
			}
			batch = append(batch, c)
		default:
			return batch
		}
	}
}

// changeSet turns provider events into a change set, reading the current
// text of every module that still exists.
func (p *Pipeline) changeSet(ctx context.Context, batch []project.Change) (ChangeSet, error) {
	last := make(map[source.ModuleID]project.Op, len(batch))
	for _, c := range batch {
		metrics.WatchEvents.WithLabelValues(c.Op.String()).Inc()
		last[c.Module] = c.Op
	}
	var cs ChangeSet
	for id, op := range last {
		if op == project.OpRemoved {
			cs.Removed = append(cs.Removed, id)
			continue
		}
		snap, err := p.source.Snapshot(ctx, id)
		switch {
		case err == nil:
			cs.Upserts = append(cs.Upserts, snap)
		case project.IsNotExist(err):
			cs.Removed = append(cs.Removed, id)
		default:
			return ChangeSet{}, fmt.Errorf("read %s: %w", id, err)
		}
	}
	source.SortModules(cs.Removed)
	return cs, nil
}
