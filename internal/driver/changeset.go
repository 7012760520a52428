package driver

import (
	"slices"

	"vbscope/internal/source"
)

// ChangeSet is a batch of module edits for one resolution run.
type ChangeSet struct {
	Upserts []*source.Snapshot
	Removed []source.ModuleID
	// Reparse forces upserts through the parser even when their text is
	// unchanged.
	Reparse bool
}

// Empty reports whether the set carries no edits.
func (c ChangeSet) Empty() bool {
	return len(c.Upserts) == 0 && len(c.Removed) == 0 && !c.Reparse
}

// pendingSet accumulates change sets between runs. The last edit of a module wins.
type pendingSet struct {
	upserts map[source.ModuleID]*source.Snapshot
	removed map[source.ModuleID]struct{}
	reparse bool
}

func newPendingSet() *pendingSet {
	return &pendingSet{
		upserts: make(map[source.ModuleID]*source.Snapshot),
		removed: make(map[source.ModuleID]struct{}),
	}
}

func (p *pendingSet) add(c ChangeSet) {
	for _, id := range c.Removed {
		delete(p.upserts, id)
		p.removed[id] = struct{}{}
	}
	for _, snap := range c.Upserts {
		if snap == nil {
			continue
		}
		delete(p.removed, snap.Module)
		p.upserts[snap.Module] = snap
	}
	p.reparse = p.reparse || c.Reparse
}

// merge folds newer into p; newer edits win.
func (p *pendingSet) merge(newer *pendingSet) {
	p.add(newer.changeSet())
}

func (p *pendingSet) empty() bool {
	return len(p.upserts) == 0 && len(p.removed) == 0 && !p.reparse
}

// changeSet returns the accumulated edits in module order.
func (p *pendingSet) changeSet() ChangeSet {
	c := ChangeSet{Reparse: p.reparse}
	for _, snap := range p.upserts {
		c.Upserts = append(c.Upserts, snap)
	}
	slices.SortFunc(c.Upserts, func(a, b *source.Snapshot) int {
		return source.CompareModules(a.Module, b.Module)
	})
	for id := range p.removed {
		c.Removed = append(c.Removed, id)
	}
	source.SortModules(c.Removed)
	return c
}
