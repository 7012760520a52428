package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	i := tm.Begin("parse")
	tm.End(i, "2 modules")
	j := tm.Begin("bind")
	tm.End(j, "")
	tm.End(99, "ignored")

	rep := tm.Report()
	if len(rep.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(rep.Phases))
	}
	if rep.Phases[0].Name != "parse" || rep.Phases[0].Note != "2 modules" {
		t.Fatalf("unexpected first phase %+v", rep.Phases[0])
	}
	if !strings.Contains(tm.Summary(), "total") {
		t.Fatal("summary lacks the total line")
	}
	if (&Timer{}).Report().Phases != nil {
		t.Fatal("empty timer reports no phases")
	}
}
