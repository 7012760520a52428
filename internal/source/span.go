package source

import (
	"fmt"
)

type Span struct {
	Module ModuleID
	Start  uint32 // в байтах включительно
	End    uint32 // в байтах не включительно
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Len() uint32 {
	return s.End - s.Start
}

func (s Span) String() string {
	return fmt.Sprintf("%s:%d-%d", s.Module, s.Start, s.End)
}

func (s Span) Cover(other Span) Span {
	if s.Module != other.Module {
		return s
	}
	if other.Start < s.Start {
		s.Start = other.Start
	}
	if other.End > s.End {
		s.End = other.End
	}
	return s
}

// ContainsOffset reports whether off lies in [Start, End].
// The end is inclusive so a caret right after an identifier still hits it.
func (s Span) ContainsOffset(off uint32) bool {
	return off >= s.Start && off <= s.End
}
