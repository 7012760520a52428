package trace

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// Writer formats events onto a buffered stream.
type Writer struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	closer io.Closer
	level  Level
	format Format
}

// NewWriter writes events accepted by level to w.
func NewWriter(w io.Writer, level Level, format Format) *Writer {
	return newWriter(w, nil, level, format)
}

func newWriter(w io.Writer, closer io.Closer, level Level, format Format) *Writer {
	return &Writer{buf: bufio.NewWriter(w), closer: closer, level: level, format: format}
}

func (t *Writer) Emit(ev *Event) {
	if !t.level.accepts(ev) {
		return
	}
	data := FormatEvent(ev, t.format)
	t.mu.Lock()
	// best effort; a failed write never fails a run
	_, _ = t.buf.Write(data)
	if ev.Kind != KindBegin && ev.Scope <= ScopeRun {
		_ = t.buf.Flush()
	}
	t.mu.Unlock()
}

func (t *Writer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buf.Flush()
}

func (t *Writer) Close() error {
	err := t.Flush()
	if t.closer != nil {
		err = errors.Join(err, t.closer.Close())
	}
	return err
}

func (t *Writer) Level() Level { return t.level }
