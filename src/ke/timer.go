package ke

import (
	"sync"
	"time"
)

/// Timer is the dispatcher timer object: a dispatch header that signals
/// itself once after a due time elapses, optionally running a DPC at
/// expiry before waking any waiters.
// Grounded on boron/include/ke/timer.h's KTIMER_tag; real Boron queues
// timers onto a software clock-tick list and walks it from
// KiDispatchTimerObjects on each clock interrupt, whereas this tree has
// a real OS clock available, so a timer is backed directly by
// time.AfterFunc rather than a polled queue.
type Timer struct {
	Header

	mu       sync.Mutex
	enqueued bool
	timer    *time.Timer
	dpc      *Dpc
}

/// InitTimer initializes an unsignaled, unqueued timer.
func (t *Timer) InitTimer() {
	t.Header.Init()
	t.mu.Lock()
	t.enqueued = false
	t.timer = nil
	t.mu.Unlock()
}

/// NewTimer allocates and initializes a timer.
func NewTimer() *Timer {
	t := &Timer{}
	t.InitTimer()
	return t
}

/// ReadState reports whether the timer has expired and signaled.
func (t *Timer) ReadState() bool {
	return t.Header.IsSignaled()
}

/// Set arms the timer to expire after dueTime, optionally running dpc's
/// routine at expiry before signaling waiters. A timer already armed is
/// first implicitly cancelled. Returns whether the timer was previously
/// enqueued, mirroring KeSetTimer's bool result.
func (t *Timer) Set(dueTime time.Duration, dpc *Dpc, q *DpcQueue) bool {
	t.mu.Lock()
	wasEnqueued := t.enqueued
	if t.timer != nil {
		t.timer.Stop()
	}
	t.enqueued = true
	t.dpc = dpc
	t.Header.Reset()
	t.timer = time.AfterFunc(dueTime, func() {
		t.mu.Lock()
		t.enqueued = false
		d := t.dpc
		t.mu.Unlock()
		if d != nil && q != nil {
			q.Enqueue(d, t, nil)
		}
		t.Header.Signal()
	})
	t.mu.Unlock()
	return wasEnqueued
}

/// Cancel stops a pending expiry, reporting whether one was pending.
func (t *Timer) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enqueued {
		return false
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.enqueued = false
	return true
}
