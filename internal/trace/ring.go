package trace

import (
	"errors"
	"io"
	"sync"
)

// Ring keeps the last events in memory.
type Ring struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
	level  Level
}

// NewRing keeps up to capacity events; capacity <= 0 means 4096.
func NewRing(capacity int, level Level) *Ring {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Ring{events: make([]Event, capacity), level: level}
}

func (r *Ring) Emit(ev *Event) {
	if !r.level.accepts(ev) {
		return
	}
	r.mu.Lock()
	r.events[r.next] = *ev
	r.next++
	if r.next == len(r.events) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

// Events returns the stored events, oldest first.
func (r *Ring) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.full {
		return append([]Event(nil), r.events[:r.next]...)
	}
	out := make([]Event, 0, len(r.events))
	out = append(out, r.events[r.next:]...)
	return append(out, r.events[:r.next]...)
}

// Run returns the stored events of one run, oldest first.
func (r *Ring) Run(id string) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Run == id {
			out = append(out, ev)
		}
	}
	return out
}

// Dump writes the stored events to w.
func (r *Ring) Dump(w io.Writer, format Format) error {
	for _, ev := range r.Events() {
		if _, err := w.Write(FormatEvent(&ev, format)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Ring) Flush() error { return nil }
func (r *Ring) Close() error { return nil }
func (r *Ring) Level() Level { return r.level }

// ringDump writes the ring out when closed.
type ringDump struct {
	*Ring
	w      io.Writer
	closer io.Closer
	format Format
	once   sync.Once
}

func (d *ringDump) Close() error {
	var err error
	d.once.Do(func() {
		err = d.Dump(d.w, d.format)
		if d.closer != nil {
			err = errors.Join(err, d.closer.Close())
		}
	})
	return err
}
