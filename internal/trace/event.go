package trace

import (
	"time"

	"vbscope/internal/source"
)

// Kind is what an event marks.
type Kind uint8

const (
	KindBegin Kind = iota + 1
	KindEnd
	KindPoint
	// KindError reports a module failure. It is recorded at every level but off.
	KindError
	KindHeartbeat
)

var kindNames = [...]string{"", "begin", "end", "point", "error", "heartbeat"}

func (k Kind) String() string {
	if int(k) < len(kindNames) && k != 0 {
		return kindNames[k]
	}
	return "unknown"
}

// Scope is the granularity of an event; coarser scopes have lower values.
type Scope uint8

const (
	// ScopeRun covers one resolution run or one watch batch.
	ScopeRun Scope = iota + 1
	// ScopeStage covers one pipeline stage: references, parse, collect, bind, publish.
	ScopeStage
	// ScopeModule covers the work for one module inside a stage.
	ScopeModule
	// ScopeNode covers single references.
	ScopeNode
)

var scopeNames = [...]string{"", "run", "stage", "module", "node"}

func (s Scope) String() string {
	if int(s) < len(scopeNames) && s != 0 {
		return scopeNames[s]
	}
	return "unknown"
}

// Event is one trace record.
type Event struct {
	Time   time.Time
	Seq    uint64
	Kind   Kind
	Scope  Scope
	Span   uint64
	Parent uint64
	Run    string
	Name   string
	Module source.ModuleID
	Detail string
	Attrs  map[string]string
}
