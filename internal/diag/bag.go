package diag

import (
	"cmp"
	"slices"
)

// Bag collects the diagnostics of one module up to a limit.
type Bag struct {
	items   []Diagnostic
	limit   int
	dropped int
}

// NewBag creates a bag holding at most limit diagnostics. limit <= 0 means unbounded.
func NewBag(limit int) *Bag {
	return &Bag{
		items: make([]Diagnostic, 0, min(max(limit, 0), 64)),
		limit: limit,
	}
}

// Add stores d unless the bag is full, in which case it is counted as dropped.
func (b *Bag) Add(d Diagnostic) bool {
	if b.limit > 0 && len(b.items) >= b.limit {
		b.dropped++
		return false
	}
	b.items = append(b.items, d)
	return true
}

// HasErrors reports whether an error-level diagnostic was stored.
func (b *Bag) HasErrors() bool {
	if b == nil {
		return false
	}
	return slices.ContainsFunc(b.items, func(d Diagnostic) bool { return d.Severity >= SevError })
}

func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Dropped counts the diagnostics rejected by the limit.
func (b *Bag) Dropped() int {
	if b == nil {
		return 0
	}
	return b.dropped
}

// Items returns the stored diagnostics. The slice is shared with the bag.
func (b *Bag) Items() []Diagnostic {
	if b == nil {
		return nil
	}
	return b.items
}

// Sort orders the bag with Compare.
func (b *Bag) Sort() { Sort(b.items) }

// Sort orders diagnostics by module, position, severity (errors first) and code.
func Sort(ds []Diagnostic) { slices.SortStableFunc(ds, Compare) }

// Compare is the ordering used by Sort.
func Compare(a, b Diagnostic) int {
	return cmp.Or(
		cmp.Compare(a.Primary.Module, b.Primary.Module),
		cmp.Compare(a.Primary.Start, b.Primary.Start),
		cmp.Compare(a.Primary.End, b.Primary.End),
		cmp.Compare(b.Severity, a.Severity),
		cmp.Compare(a.Code, b.Code),
	)
}
