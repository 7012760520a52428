package library

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"vbscope/internal/symbols"
)

// Set is the ordered list of a project's loaded libraries. The order is the
// tie-break when several libraries declare the same name.
type Set struct {
	libs []*Library
}

type ranked struct {
	lib   *Library
	index int
}

// NewSet orders libs by reference priority, then by the order they were declared.
func NewSet(libs ...*Library) *Set {
	rs := make([]ranked, 0, len(libs))
	for i, l := range libs {
		if l != nil {
			rs = append(rs, ranked{lib: l, index: i})
		}
	}
	slices.SortStableFunc(rs, func(a, b ranked) int {
		if a.lib.Ref.Priority != b.lib.Ref.Priority {
			return a.lib.Ref.Priority - b.lib.Ref.Priority
		}
		return a.index - b.index
	})
	s := &Set{libs: make([]*Library, 0, len(rs))}
	for _, r := range rs {
		s.libs = append(s.libs, r.lib)
	}
	return s
}

// Len returns the number of libraries.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.libs)
}

// Libraries returns the libraries in tie-break order.
func (s *Set) Libraries() []*Library {
	if s == nil {
		return nil
	}
	return slices.Clone(s.libs)
}

// Names returns the library names in order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, 0, len(s.libs))
	for _, l := range s.libs {
		out = append(out, l.Name)
	}
	return out
}

// Decls returns the declaration sets in order, ready for symbols.NewIndex.
func (s *Set) Decls() []*symbols.LibraryDecls {
	if s == nil {
		return nil
	}
	out := make([]*symbols.LibraryDecls, 0, len(s.libs))
	for _, l := range s.libs {
		out = append(out, l.Decls)
	}
	return out
}

// Fingerprint changes whenever the set or its order changes.
func (s *Set) Fingerprint() string {
	h := sha256.New()
	for _, l := range s.Libraries() {
		h.Write([]byte(strings.ToLower(l.Name)))
		h.Write([]byte{0})
		h.Write([]byte(l.Ref.Key()))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)[:8])
}
