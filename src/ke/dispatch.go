package ke

import (
	"sync"
	"time"

	"defs"
)

/// WaitType selects how a multi-object wait is satisfied.
type WaitType int

const (
	/// WaitAny completes as soon as one object is signaled.
	WaitAny WaitType = iota
	/// WaitAll completes only once every object is signaled.
	WaitAll
)

/// Header is the common dispatcher-object header: a type tag, a
/// signaled flag, and the list of threads waiting on the object.
// Grounded on boron/include/ke/dispatch.h's KDISPATCH_HEADER and
// boron/source/ke/dispatch.c's KeInitializeDispatchHeader /
// KeSignalObject / KeSatisfyWaitBlock. The teacher's hosted Go runtime
// gives threads real stacks to suspend; here a wait suspends the
// goroutine on a channel receive instead of an arch-level context
// switch, which is this tree's central rendering decision (see
// SPEC_FULL.md section 0).
type Header struct {
	mu       sync.Mutex
	signaled bool
	waiters  []*WaitBlock
}

/// WaitBlock links one waiting thread to one object, mirroring
/// KWAIT_BLOCK.
type WaitBlock struct {
	thread *Thread
	object *Header
	index  int
}

/// Init resets the header to its unsignaled, waiterless state.
func (h *Header) Init() {
	h.mu.Lock()
	h.signaled = false
	h.waiters = nil
	h.mu.Unlock()
}

/// IsSignaled reports the header's current state.
func (h *Header) IsSignaled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.signaled
}

func (h *Header) addWaiter(wb *WaitBlock) {
	h.mu.Lock()
	h.waiters = append(h.waiters, wb)
	h.mu.Unlock()
}

func (h *Header) removeWaiter(wb *WaitBlock) {
	h.mu.Lock()
	for i, w := range h.waiters {
		if w == wb {
			h.waiters = append(h.waiters[:i], h.waiters[i+1:]...)
			break
		}
	}
	h.mu.Unlock()
}

/// Signal marks the header signaled and wakes every waiting thread,
/// mirroring KeSignalObject. Each woken thread re-evaluates its own
/// wait condition (KeSatisfyWaitBlock's ANY/ALL split happens in
/// Thread.waitLoop, not here).
func (h *Header) Signal() {
	h.mu.Lock()
	h.signaled = true
	waiters := make([]*WaitBlock, len(h.waiters))
	copy(waiters, h.waiters)
	h.mu.Unlock()
	for _, wb := range waiters {
		wb.thread.satisfy(wb)
	}
}

/// Reset clears the signaled flag without waking anyone, used by
/// notification events and by a synchronization event after it wakes
/// its one waiter.
func (h *Header) Reset() {
	h.mu.Lock()
	h.signaled = false
	h.mu.Unlock()
}

// satisfy wakes t because one of its wait blocks' objects signaled.
// ANY waits record which object index woke them; ALL waits are nudged
// to re-check every object (KiPerformWaitThread's STATUS_KEEP_GOING).
func (t *Thread) satisfy(wb *WaitBlock) {
	t.waitMu.Lock()
	if t.waitType == WaitAny {
		t.waitStatus = defs.Wait(wb.index)
	} else {
		t.waitStatus = keepGoing
	}
	t.waitMu.Unlock()
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// keepGoing is an internal-only status used to signal "ALL wait:
// re-check every object", never returned from a public wait call.
const keepGoing defs.Err = -999

/// WaitForMultipleObjects blocks t until wt is satisfied across objs or
/// timeout elapses (timeout < 0 means wait forever). Grounded on
/// KeWaitForMultipleObjects / KiPerformWaitThread.
func (t *Thread) WaitForMultipleObjects(objs []*Header, wt WaitType, timeout time.Duration) defs.Err {
	if len(objs) == 0 {
		return defs.Success
	}
	var timeoutC <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	wbs := make([]*WaitBlock, len(objs))
	for i, o := range objs {
		wbs[i] = &WaitBlock{thread: t, object: o, index: i}
	}

	for {
		select {
		case <-t.wake:
		default:
		}

		t.waitMu.Lock()
		t.waitType = wt
		t.waitStatus = defs.Waiting
		t.waitMu.Unlock()

		for _, wb := range wbs {
			wb.object.addWaiter(wb)
		}

		if done, status := checkImmediate(objs, wt); done {
			unregister(wbs)
			return status
		}

		select {
		case <-t.wake:
			unregister(wbs)
			t.waitMu.Lock()
			status := t.waitStatus
			t.waitMu.Unlock()
			if status == keepGoing {
				if done, s := checkImmediate(objs, WaitAll); done {
					return s
				}
				continue
			}
			return status
		case <-timeoutC:
			unregister(wbs)
			return defs.Timeout
		}
	}
}

/// WaitForSingleObject is KeWaitForSingleObject: a WaitAny wait over a
/// single object.
func (t *Thread) WaitForSingleObject(obj *Header, timeout time.Duration) defs.Err {
	return t.WaitForMultipleObjects([]*Header{obj}, WaitAny, timeout)
}

func unregister(wbs []*WaitBlock) {
	for _, wb := range wbs {
		wb.object.removeWaiter(wb)
	}
}

func checkImmediate(objs []*Header, wt WaitType) (bool, defs.Err) {
	switch wt {
	case WaitAny:
		for i, o := range objs {
			if o.IsSignaled() {
				return true, defs.Wait(i)
			}
		}
		return false, defs.Success
	default: // WaitAll
		for _, o := range objs {
			if !o.IsSignaled() {
				return false, defs.Success
			}
		}
		return true, defs.Success
	}
}
