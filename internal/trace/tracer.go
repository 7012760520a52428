package trace

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Tracer receives events. Emit must be safe for concurrent use.
type Tracer interface {
	Emit(ev *Event)
	Flush() error
	Close() error
	Level() Level
}

type nopTracer struct{}

func (nopTracer) Emit(*Event)  {}
func (nopTracer) Flush() error { return nil }
func (nopTracer) Close() error { return nil }
func (nopTracer) Level() Level { return LevelOff }

// Nop records nothing.
var Nop Tracer = nopTracer{}

// Mode selects where events go.
type Mode uint8

const (
	// ModeStream writes every event as it happens.
	ModeStream Mode = iota + 1
	// ModeRing keeps the most recent events in memory and writes them on Close.
	ModeRing
)

func (m Mode) String() string {
	switch m {
	case ModeStream:
		return "stream"
	case ModeRing:
		return "ring"
	}
	return "unknown"
}

// ParseMode accepts stream or ring.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "stream":
		return ModeStream, nil
	case "ring":
		return ModeRing, nil
	}
	return ModeStream, fmt.Errorf("invalid trace mode: %q (expected: stream|ring)", s)
}

// Config describes a tracer built by Open.
type Config struct {
	Level  Level
	Mode   Mode
	Format Format
	// Output takes precedence over Path. Path "-" or "" means stderr.
	Output io.Writer
	Path   string
	// RingSize bounds ModeRing; zero means 4096 events.
	RingSize  int
	Heartbeat time.Duration
}

// Open builds the tracer cfg describes. Closing it stops the heartbeat,
// writes what is pending and closes a file Open created.
func Open(cfg Config) (Tracer, error) {
	if cfg.Level == LevelOff {
		return Nop, nil
	}
	format := cfg.Format
	if format == FormatAuto {
		format = formatForPath(cfg.Path)
	}
	w, closer, err := output(cfg)
	if err != nil {
		return nil, err
	}
	var t Tracer
	switch cfg.Mode {
	case ModeStream, 0:
		t = newWriter(w, closer, cfg.Level, format)
	case ModeRing:
		t = &ringDump{Ring: NewRing(cfg.RingSize, cfg.Level), w: w, closer: closer, format: format}
	default:
		return nil, fmt.Errorf("unknown trace mode: %v", cfg.Mode)
	}
	if cfg.Heartbeat > 0 {
		t = withHeartbeat(t, cfg.Heartbeat)
	}
	return t, nil
}

func output(cfg Config) (io.Writer, io.Closer, error) {
	if cfg.Output != nil {
		return cfg.Output, nil, nil
	}
	if cfg.Path == "" || cfg.Path == "-" {
		return os.Stderr, nil, nil
	}
	f, err := os.Create(cfg.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace output: %w", err)
	}
	return f, f, nil
}
