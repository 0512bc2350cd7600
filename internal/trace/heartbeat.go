package trace

import (
	"fmt"
	"runtime"
	"sync"
	"time"
)

// Heartbeat periodically emits a liveness event with the goroutine count,
// so a stuck build still shows up in the trace.
type Heartbeat struct {
	stop chan struct{}
	wg   sync.WaitGroup
}

// StartHeartbeat begins emitting every interval; nil when disabled.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if !Enabled(t) || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{})}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for n := 1; ; n++ {
			select {
			case <-h.stop:
				return
			case now := <-tick.C:
				t.Emit(&Event{
					Time:   now,
					Seq:    seq.Add(1),
					Kind:   KindHeartbeat,
					Scope:  ScopeDriver,
					Worker: NoWorker,
					Name:   "heartbeat",
					Detail: fmt.Sprintf("#%d goroutines=%d", n, runtime.NumGoroutine()),
				})
			}
		}
	}()
	return h
}

// Stop ends the heartbeat and waits for the emitter to exit.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	close(h.stop)
	h.wg.Wait()
}
