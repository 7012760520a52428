package trace

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// heartbeat emits a liveness event every interval until closed. Heartbeats
// with no stage ending in between point at a stuck run.
type heartbeat struct {
	Tracer
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func withHeartbeat(t Tracer, every time.Duration) *heartbeat {
	h := &heartbeat{Tracer: t, stop: make(chan struct{}), done: make(chan struct{})}
	go h.loop(every)
	return h
}

func (h *heartbeat) loop(every time.Duration) {
	defer close(h.done)
	tick := time.NewTicker(every)
	defer tick.Stop()
	for n := 1; ; n++ {
		select {
		case <-h.stop:
			return
		case now := <-tick.C:
			emit(h.Tracer, &Event{
				Time:   now,
				Kind:   KindHeartbeat,
				Scope:  ScopeRun,
				Name:   "heartbeat",
				Detail: fmt.Sprintf("#%d goroutines=%d", n, runtime.NumGoroutine()),
			})
		}
	}
}

func (h *heartbeat) Close() error {
	h.once.Do(func() { close(h.stop) })
	<-h.done
	return h.Tracer.Close()
}
