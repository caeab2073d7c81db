package ke

import "sync"

/// RwLock is the dispatcher reader-writer lock spec.md section 4.1
/// describes: shared acquire, exclusive acquire, and an atomic
/// demote-from-exclusive-to-shared that never lets a writer slip in
/// between the two states.
// Grounded on spec.md section 4.1 ("RW-lock supports shared, exclusive,
// and atomic demote-to-shared") and the lock-order list in section 9,
// which stacks this under VAD/handle/object-directory locks; the
// teacher has no rw-lock of its own; this is modeled directly on
// sync.RWMutex's acquire/release discipline with the demote operation
// added on top, since a plain RWMutex cannot express it atomically.
type RwLock struct {
	mu      sync.Mutex
	readers int
	writer  bool
	// waiters parked until the lock state changes.
	cond *sync.Cond
}

/// InitRwLock initializes an unlocked rw-lock.
func (l *RwLock) InitRwLock() {
	l.cond = sync.NewCond(&l.mu)
}

/// NewRwLock allocates and initializes an unlocked rw-lock.
func NewRwLock() *RwLock {
	l := &RwLock{}
	l.InitRwLock()
	return l
}

/// AcquireShared blocks until no writer holds or is waiting to demote
/// into l, then registers one more reader.
func (l *RwLock) AcquireShared() {
	l.mu.Lock()
	for l.writer {
		l.cond.Wait()
	}
	l.readers++
	l.mu.Unlock()
}

/// ReleaseShared drops one reader registration.
func (l *RwLock) ReleaseShared() {
	l.mu.Lock()
	l.readers--
	if l.readers == 0 {
		l.cond.Broadcast()
	}
	l.mu.Unlock()
}

/// AcquireExclusive blocks until no reader or writer holds l.
func (l *RwLock) AcquireExclusive() {
	l.mu.Lock()
	for l.writer || l.readers > 0 {
		l.cond.Wait()
	}
	l.writer = true
	l.mu.Unlock()
}

/// ReleaseExclusive releases exclusive ownership.
func (l *RwLock) ReleaseExclusive() {
	l.mu.Lock()
	l.writer = false
	l.cond.Broadcast()
	l.mu.Unlock()
}

/// DemoteToShared atomically converts the caller's exclusive hold into
/// a shared one, so no other writer can ever observe the lock fully
/// free between the two states.
func (l *RwLock) DemoteToShared() {
	l.mu.Lock()
	if !l.writer {
		l.mu.Unlock()
		panic("ke: DemoteToShared without exclusive ownership")
	}
	l.writer = false
	l.readers++
	l.cond.Broadcast()
	l.mu.Unlock()
}
