package source

import (
	"maps"
	"slices"
)

// Set is an immutable collection of snapshots keyed by module.
// With and Without return new sets; the receiver is never modified.
type Set struct {
	byModule map[ModuleID]*Snapshot
}

// NewSet builds a set from snapshots; later entries replace earlier ones.
func NewSet(snaps ...*Snapshot) Set {
	m := make(map[ModuleID]*Snapshot, len(snaps))
	for _, s := range snaps {
		if s != nil {
			m[s.Module] = s
		}
	}
	return Set{byModule: m}
}

// Get returns the snapshot for module.
func (s Set) Get(id ModuleID) (*Snapshot, bool) {
	snap, ok := s.byModule[id]
	return snap, ok
}

// Len returns the number of modules.
func (s Set) Len() int { return len(s.byModule) }

// With returns a copy of the set containing snap.
func (s Set) With(snap *Snapshot) Set {
	m := maps.Clone(s.byModule)
	if m == nil {
		m = make(map[ModuleID]*Snapshot, 1)
	}
	m[snap.Module] = snap
	return Set{byModule: m}
}

// Without returns a copy of the set without module id.
func (s Set) Without(id ModuleID) Set {
	if _, ok := s.byModule[id]; !ok {
		return s
	}
	m := maps.Clone(s.byModule)
	delete(m, id)
	return Set{byModule: m}
}

// IDs returns module IDs ordered case-insensitively, then by exact name.
func (s Set) IDs() []ModuleID {
	ids := slices.Collect(maps.Keys(s.byModule))
	SortModules(ids)
	return ids
}

// SortModules orders module IDs the way every listing in the tool does.
func SortModules(ids []ModuleID) {
	slices.SortFunc(ids, CompareModules)
}

// CompareModules compares module IDs by folded name, then exact name.
func CompareModules(a, b ModuleID) int {
	fa, fb := Fold(string(a)), Fold(string(b))
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
