package ke

import (
	"time"

	"defs"
)

/// Mutex is the dispatcher mutex object: a recursively-acquirable lock
/// with an owning thread. Waiting on it can sleep (unlike SpinLock), and
/// if the owner terminates while still holding it, every blocked waiter
/// is released with an abandoned-wait status rather than hanging
/// forever.
// Grounded on spec.md section 4.1 ("Mutex & rw-lock: built on
// dispatch-header primitive") and the ABANDONED_WAIT(n) status range in
// section 7; the teacher has no equivalent (its locks are plain
// sync.Mutex, never dispatcher objects), so the waking discipline
// follows Event's single-waiter-release pattern.
type Mutex struct {
	Header
	owner     *Thread
	recursion int
}

/// InitMutex initializes an unlocked mutex, mirroring KeInitializeMutex.
func (m *Mutex) InitMutex() {
	m.Header.Init()
	m.Header.signaled = true // unlocked mutexes read as signaled
	m.owner = nil
	m.recursion = 0
}

/// NewMutex allocates and initializes an unlocked mutex.
func NewMutex() *Mutex {
	m := &Mutex{}
	m.InitMutex()
	return m
}

/// Acquire blocks t until it owns m or timeout elapses. Re-entrant: if t
/// already owns m, it simply increments the recursion count.
func (m *Mutex) Acquire(t *Thread, timeout time.Duration) defs.Err {
	for {
		m.Header.mu.Lock()
		if m.owner == nil {
			m.owner = t
			m.recursion = 1
			m.Header.signaled = false
			m.Header.mu.Unlock()
			t.mu.Lock()
			t.mutexList = append(t.mutexList, m)
			t.mu.Unlock()
			return defs.Success
		}
		if m.owner == t {
			m.recursion++
			m.Header.mu.Unlock()
			return defs.Success
		}
		m.Header.mu.Unlock()

		status := t.WaitForSingleObject(&m.Header, timeout)
		if status == defs.Timeout {
			return defs.Timeout
		}
		if defs.Failed(status) {
			return status
		}
		// Release/abandonMutexes already transferred ownership (and set
		// recursion to 1) directly to t before waking it; looping back
		// to the top would double-count that initial acquisition.
		if status == defs.Wait(0) {
			return defs.Success
		}
		return status // defs.AbandonedWait(0), surfaced so the caller can detect it
	}
}

/// Release decrements the recursion count and, once it reaches zero,
/// hands ownership to the next waiter (if any) or marks the mutex free.
func (m *Mutex) Release(t *Thread) {
	m.Header.mu.Lock()
	if m.owner != t {
		m.Header.mu.Unlock()
		panic("ke: Mutex released by non-owner")
	}
	m.recursion--
	if m.recursion > 0 {
		m.Header.mu.Unlock()
		return
	}

	t.mu.Lock()
	for i, mm := range t.mutexList {
		if mm == m {
			t.mutexList = append(t.mutexList[:i], t.mutexList[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	if len(m.Header.waiters) == 0 {
		m.owner = nil
		m.Header.signaled = true
		m.Header.mu.Unlock()
		return
	}
	wb := m.Header.waiters[0]
	m.Header.waiters = m.Header.waiters[1:]
	m.owner = wb.thread
	m.recursion = 1
	m.Header.mu.Unlock()

	wb.thread.mu.Lock()
	wb.thread.mutexList = append(wb.thread.mutexList, m)
	wb.thread.mu.Unlock()
	wb.thread.satisfy(wb)
}

// abandonMutexes hands every mutex t still owns to its next waiter (or
// frees it) with an abandoned-wait status, called from Thread.Terminate
// so a killed thread never leaves other threads hung on its lock.
func (t *Thread) abandonMutexes() {
	t.mu.Lock()
	owned := make([]*Mutex, len(t.mutexList))
	copy(owned, t.mutexList)
	t.mutexList = nil
	t.mu.Unlock()

	for _, m := range owned {
		m.Header.mu.Lock()
		if len(m.Header.waiters) == 0 {
			m.owner = nil
			m.recursion = 0
			m.Header.signaled = true
			m.Header.mu.Unlock()
			continue
		}
		wb := m.Header.waiters[0]
		m.Header.waiters = m.Header.waiters[1:]
		m.owner = wb.thread
		m.recursion = 1
		m.Header.mu.Unlock()

		wb.thread.mu.Lock()
		wb.thread.mutexList = append(wb.thread.mutexList, m)
		wb.thread.mu.Unlock()
		wb.thread.waitMu.Lock()
		wb.thread.waitStatus = defs.AbandonedWait(wb.index)
		wb.thread.waitMu.Unlock()
		select {
		case wb.thread.wake <- struct{}{}:
		default:
		}
	}
}
