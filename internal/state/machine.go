package state

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"vbscope/internal/source"
)

var (
	// ErrUnknownModule reports a transition for a module that is not tracked.
	ErrUnknownModule = errors.New("module not tracked")
	// ErrInvalidTransition reports a move the stage table does not allow.
	ErrInvalidTransition = errors.New("invalid stage transition")
)

// Record is what the machine knows about one module.
type Record struct {
	Module source.ModuleID
	Stage  Stage
	Err    error
	// Generation is the last generation the module was Ready in.
	Generation uint64
	Updated    time.Time
}

// ModuleError is a module failure with the position of its first error.
type ModuleError struct {
	Module source.ModuleID
	Stage  Stage
	Pos    source.LineCol
	Err    error
}

func (e *ModuleError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %v", e.Module, e.Pos.Line, e.Pos.Col, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Module, e.Err)
}

func (e *ModuleError) Unwrap() error { return e.Err }

// Notification describes one state change. Module is empty for
// project-level changes.
type Notification struct {
	Seq       uint64
	Run       string
	Aggregate Stage
	Module    source.ModuleID
	Stage     Stage
	Message   string
	Err       error
	Time      time.Time
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithDropHook is called whenever a subscriber misses a notification.
func WithDropHook(fn func()) Option {
	return func(m *Machine) { m.onDrop = fn }
}

type subscriber struct {
	ch      chan Notification
	dropped atomic.Uint64
}

// Machine holds the per-module stages of one project.
type Machine struct {
	now    func() time.Time
	onDrop func()

	mu        sync.Mutex
	records   map[source.ModuleID]*Record
	loading   string
	completed bool
	run       string
	seq       uint64
	message   string
	changed   chan struct{}
	subs      map[uint64]*subscriber
	nextSub   uint64
	dropped   atomic.Uint64
}

// New returns a machine with no modules.
func New(opts ...Option) *Machine {
	m := &Machine{
		now:     time.Now,
		records: make(map[source.ModuleID]*Record),
		changed: make(chan struct{}),
		subs:    make(map[uint64]*subscriber),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.message = m.aggregateLocked().Label()
	return m
}

// Track starts following a module in Pending. Tracking a known module
// resets it to Pending.
func (m *Machine) Track(id source.ModuleID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		rec = &Record{Module: id}
		m.records[id] = rec
	}
	rec.Stage = Pending
	rec.Err = nil
	rec.Updated = m.now()
	m.publishLocked(id, Pending, "", nil)
}

// Forget stops following a module.
func (m *Machine) Forget(id source.ModuleID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[id]; !ok {
		return
	}
	delete(m.records, id)
	m.publishLocked(id, Pending, fmt.Sprintf("%s removed", id), nil)
}

// BeginRun stamps later notifications with a run identifier.
func (m *Machine) BeginRun(run string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.run = run
}

// Transition moves a module to stage. err is kept on failure stages.
func (m *Machine) Transition(id source.ModuleID, stage Stage, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModule, id)
	}
	if stage == LoadingReference || stage == Error {
		return fmt.Errorf("%w: %s is not a module stage", ErrInvalidTransition, stage)
	}
	if !CanTransition(rec.Stage, stage) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, id, rec.Stage, stage)
	}
	rec.Stage = stage
	rec.Err = nil
	if stage.IsFailed() {
		rec.Err = err
	}
	rec.Updated = m.now()
	m.publishLocked(id, stage, "", rec.Err)
	return nil
}

// BeginLoading switches on the LoadingReference overlay.
func (m *Machine) BeginLoading(reference string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = reference
	m.publishLocked("", LoadingReference, fmt.Sprintf("Loading reference %s...", reference), nil)
}

// EndLoading clears the overlay.
func (m *Machine) EndLoading() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loading == "" {
		return
	}
	m.loading = ""
	m.publishLocked("", m.aggregateLocked(), "", nil)
}

// MarkCompleted records a finished run: modules that are Ready remember the
// generation, and an empty project becomes Ready.
func (m *Machine) MarkCompleted(generation uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = true
	for _, rec := range m.records {
		if rec.Stage == Ready {
			rec.Generation = generation
		}
	}
	m.publishLocked("", m.aggregateLocked(), "", nil)
}

// Aggregate returns the project stage.
func (m *Machine) Aggregate() Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aggregateLocked()
}

// aggregateLocked is the least-ready module stage; any failure wins.
func (m *Machine) aggregateLocked() Stage {
	// the loading overlay wins over Pending modules
	if m.loading != "" {
		return LoadingReference
	}
	if len(m.records) == 0 {
		if m.completed {
			return Ready
		}
		return Pending
	}
	least := Ready
	for _, rec := range m.records {
		if rec.Stage.IsFailed() {
			return Error
		}
		if rec.Stage.rank() < least.rank() {
			least = rec.Stage
		}
	}
	return least
}

// Module returns the record of one module.
func (m *Machine) Module(id source.ModuleID) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Records returns every record in module order.
func (m *Machine) Records() []Record {
	m.mu.Lock()
	out := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, *rec)
	}
	m.mu.Unlock()
	slices.SortFunc(out, func(a, b Record) int { return source.CompareModules(a.Module, b.Module) })
	return out
}

// Count returns how many modules are in each stage.
func (m *Machine) Count() map[Stage]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[Stage]int)
	for _, rec := range m.records {
		out[rec.Stage]++
	}
	return out
}

// Errors lists the failed modules in module order.
func (m *Machine) Errors() []*ModuleError {
	var out []*ModuleError
	for _, rec := range m.Records() {
		if !rec.Stage.IsFailed() {
			continue
		}
		var me *ModuleError
		if errors.As(rec.Err, &me) {
			out = append(out, me)
			continue
		}
		err := rec.Err
		if err == nil {
			err = errors.New(rec.Stage.Label())
		}
		out = append(out, &ModuleError{Module: rec.Module, Stage: rec.Stage, Err: err})
	}
	return out
}

// StatusMessage returns the current human-readable status.
func (m *Machine) StatusMessage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.message
}

// Subscribe registers for notifications. Delivery never blocks the machine:
// when the buffer is full the notification is dropped and counted.
func (m *Machine) Subscribe(buffer int) (<-chan Notification, func()) {
	if buffer < 1 {
		buffer = 1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextSub
	m.nextSub++
	sub := &subscriber{ch: make(chan Notification, buffer)}
	m.subs[id] = sub
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Dropped returns how many notifications subscribers missed in total.
func (m *Machine) Dropped() uint64 { return m.dropped.Load() }

// Wait blocks until the aggregate satisfies pred or ctx is done.
func (m *Machine) Wait(ctx context.Context, pred func(Stage) bool) (Stage, error) {
	for {
		m.mu.Lock()
		agg := m.aggregateLocked()
		changed := m.changed
		m.mu.Unlock()
		if pred(agg) {
			return agg, nil
		}
		select {
		case <-ctx.Done():
			return agg, ctx.Err()
		case <-changed:
		}
	}
}

// Settled reports stages a run can end in.
func Settled(s Stage) bool { return s == Ready || s == Error }

func (m *Machine) publishLocked(id source.ModuleID, stage Stage, message string, err error) {
	agg := m.aggregateLocked()
	if message == "" {
		message = agg.Label()
		if m.loading != "" {
			message = fmt.Sprintf("Loading reference %s...", m.loading)
		}
	}
	m.message = message
	m.seq++
	n := Notification{
		Seq:       m.seq,
		Run:       m.run,
		Aggregate: agg,
		Module:    id,
		Stage:     stage,
		Message:   message,
		Err:       err,
		Time:      m.now(),
	}
	for _, sub := range m.subs {
		select {
		case sub.ch <- n:
		default:
			sub.dropped.Add(1)
			m.dropped.Add(1)
			if m.onDrop != nil {
				m.onDrop()
			}
		}
	}
	close(m.changed)
	m.changed = make(chan struct{})
}
