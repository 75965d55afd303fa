package mqtt

import (
	"sync"
	"time"
)

// TimerService schedules named one-shot callbacks. Scheduling a name that is
// already armed replaces the earlier timer; firing is best-effort and
// single-fire. The keep-alive scheduler is its only consumer inside this
// package, but the service is exported so a host process can share one
// timer wheel across clients.
type TimerService interface {
	// Schedule arms (or re-arms) the named timer to invoke fn after d.
	// The callback receives the timer's name.
	Schedule(name string, d time.Duration, fn func(name string))

	// Cancel disarms the named timer if it is armed. Cancelling an unknown
	// name is a no-op.
	Cancel(name string)
}

// WheelTimers is the default TimerService, one time.AfterFunc per armed name.
type WheelTimers struct {
	mu     sync.Mutex
	armed  map[string]*time.Timer
	closed bool
}

// NewWheelTimers creates an empty timer service.
func NewWheelTimers() *WheelTimers {
	return &WheelTimers{armed: make(map[string]*time.Timer)}
}

// Schedule arms the named timer, replacing any timer already armed under the
// same name.
func (w *WheelTimers) Schedule(name string, d time.Duration, fn func(name string)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if prev, ok := w.armed[name]; ok {
		prev.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		w.mu.Lock()
		// A replaced timer can still fire if it was already running;
		// only the currently armed one may call back.
		live := w.armed[name] == t && !w.closed
		if live {
			delete(w.armed, name)
		}
		w.mu.Unlock()

		if live {
			fn(name)
		}
	})
	w.armed[name] = t
}

// Cancel disarms the named timer.
func (w *WheelTimers) Cancel(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.armed[name]; ok {
		t.Stop()
		delete(w.armed, name)
	}
}

// Close disarms every timer and rejects further scheduling.
func (w *WheelTimers) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	for name, t := range w.armed {
		t.Stop()
		delete(w.armed, name)
	}
}
