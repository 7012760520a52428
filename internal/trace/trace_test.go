package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStartPropagatesParentAndRun(t *testing.T) {
	ring := NewRing(16, LevelDetail)
	ctx := WithRun(WithTracer(context.Background(), ring), "run-42")

	ctx, outer := Start(ctx, ScopeRun, "resolve")
	inner := StartModule(ctx, "bind", "Module1")
	inner.Set("refs", "3").End("ok")
	outer.End("")

	events := ring.Events()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[1].Parent != outer.ID() {
		t.Fatalf("inner span parent = %d, want %d", events[1].Parent, outer.ID())
	}
	if events[1].Module != "Module1" || events[1].Scope != ScopeModule {
		t.Fatalf("unexpected module span %+v", events[1])
	}
	for _, ev := range events {
		if ev.Run != "run-42" {
			t.Fatalf("event %s has run %q", ev.Name, ev.Run)
		}
	}
	if events[2].Attrs["refs"] != "3" || events[2].Detail != "ok" || events[2].Kind != KindEnd {
		t.Fatalf("unexpected end event %+v", events[2])
	}
	if events[0].Seq >= events[3].Seq {
		t.Fatal("sequence numbers must increase")
	}
}

func TestLevelFiltersScopes(t *testing.T) {
	ring := NewRing(16, LevelPhase)
	ctx := WithTracer(context.Background(), ring)
	StartModule(ctx, "parse", "Hidden").End("")
	Point(ctx, ScopeModule, "skipped", "")
	Point(ctx, ScopeStage, "kept", "")
	events := ring.Events()
	if len(events) != 1 || events[0].Name != "kept" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestFailIsRecordedAtErrorLevel(t *testing.T) {
	ring := NewRing(16, LevelError)
	ctx := WithTracer(context.Background(), ring)
	_, sp := Start(ctx, ScopeStage, "parse")
	sp.End("")
	Fail(ctx, "parse", "Module1", errors.New("line 2: expected End Sub"))

	events := ring.Events()
	if len(events) != 1 {
		t.Fatalf("expected only the failure, got %+v", events)
	}
	if events[0].Kind != KindError || events[0].Module != "Module1" || !strings.Contains(events[0].Detail, "End Sub") {
		t.Fatalf("unexpected failure event %+v", events[0])
	}
}

func TestRingWrapsAndFiltersRuns(t *testing.T) {
	ring := NewRing(3, LevelDebug)
	for i, run := range []string{"a", "a", "b", "b"} {
		ring.Emit(&Event{Kind: KindPoint, Scope: ScopeStage, Run: run, Seq: uint64(i)})
	}
	events := ring.Events()
	if len(events) != 3 || events[0].Seq != 1 || events[2].Seq != 3 {
		t.Fatalf("unexpected ring contents %+v", events)
	}
	if got := ring.Run("b"); len(got) != 2 {
		t.Fatalf("Run(b) = %d events, want 2", len(got))
	}
}

func TestWriterFormats(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, LevelDebug, FormatNDJSON)
	ctx := WithTracer(context.Background(), w)
	StartModule(ctx, "parse", "Module1").End("2 errors")
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatal(err)
	}
	if ev["kind"] != "end" || ev["detail"] != "2 errors" || ev["scope"] != "module" || ev["module"] != "Module1" {
		t.Fatalf("unexpected event %v", ev)
	}

	buf.Reset()
	text := NewWriter(&buf, LevelDebug, FormatText)
	_, sp := Start(WithTracer(context.Background(), text), ScopeStage, "bind")
	sp.Set("b", "2").Set("a", "1").End("")
	_ = text.Flush()
	if !strings.Contains(buf.String(), "← bind {a=1, b=2}") {
		t.Fatalf("unexpected text output %q", buf.String())
	}
}

func TestNopTracerIsSilent(t *testing.T) {
	ctx, sp := Start(context.Background(), ScopeRun, "resolve")
	if sp.ID() != 0 || parentSpan(ctx) != 0 {
		t.Fatal("nop tracer must not allocate spans")
	}
	if sp.Set("k", "v").End("") != 0 {
		t.Fatal("nop span has no duration")
	}
}

func TestOpenRingWritesOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.ndjson")
	tr, err := Open(Config{Level: LevelPhase, Mode: ModeRing, Path: path, RingSize: 2, Heartbeat: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	ctx := WithTracer(context.Background(), tr)
	for _, name := range []string{"references", "parse", "collect"} {
		Point(ctx, ScopeStage, name, "")
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || !strings.Contains(lines[1], `"name":"collect"`) {
		t.Fatalf("unexpected dump %q", data)
	}
}

func TestParseLevelModeFormat(t *testing.T) {
	if l, err := ParseLevel("DETAIL"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel(DETAIL) = %v, %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected an error")
	}
	if m, err := ParseMode("ring"); err != nil || m != ModeRing {
		t.Fatalf("ParseMode(ring) = %v, %v", m, err)
	}
	if _, err := ParseMode("both"); err == nil {
		t.Fatal("expected an error")
	}
	if f, err := ParseFormat("ndjson"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat(ndjson) = %v, %v", f, err)
	}
}
