// Package accnt tracks per-process CPU time accounting: nanoseconds of
// user and system time consumed, merged up from threads into the
// owning process as threads exit.
//
// Grounded on biscuit/src/accnt/accnt.go's Accnt_t. The rusage byte
// encoding (Fetch/To_rusage) is dropped: nothing in this tree's system
// service surface exposes a getrusage-style syscall yet, and packing a
// live struct into a wire-format byte slice nobody reads would be dead
// code. Snapshot takes its place, returning the two counters directly
// for whatever eventually wants to report them.
package accnt

import (
	"sync"
	"sync/atomic"
	"time"
)

// Accnt accumulates CPU time accounting for a process or thread. The
// embedded mutex only guards Add/Snapshot's consistent pairing of the
// two counters; Utadd/Systadd use atomic adds so a thread can charge
// time without taking the lock a reporter is holding.
type Accnt struct {
	// Userns is nanoseconds of user-mode time consumed.
	Userns int64
	// Sysns is nanoseconds of system-mode time consumed.
	Sysns int64

	mu sync.Mutex
}

// Utadd adds delta nanoseconds to the user-time counter.
func (a *Accnt) Utadd(delta int64) {
	atomic.AddInt64(&a.Userns, delta)
}

// Systadd adds delta nanoseconds to the system-time counter.
func (a *Accnt) Systadd(delta int64) {
	atomic.AddInt64(&a.Sysns, delta)
}

// Now returns the current time in nanoseconds since the Unix epoch.
func Now() int64 {
	return time.Now().UnixNano()
}

// IoTime charges the interval since the I/O wait began as time removed
// from system accounting (mirrors the teacher's Io_time: the thread
// was blocked on I/O, not actually running kernel code).
func (a *Accnt) IoTime(since int64) {
	a.Systadd(since - Now())
}

// SleepTime charges the interval since a voluntary sleep began as time
// removed from system accounting, for the same reason as IoTime.
func (a *Accnt) SleepTime(since int64) {
	a.Systadd(since - Now())
}

// Finish adds the time elapsed since start to system accounting,
// charging a thread's remaining kernel-mode work at exit.
func (a *Accnt) Finish(start int64) {
	a.Systadd(Now() - start)
}

// Add merges n's counters into a, taking a's lock so a concurrent
// Snapshot never observes a half-merged pair.
func (a *Accnt) Add(n *Accnt) {
	un := atomic.LoadInt64(&n.Userns)
	sn := atomic.LoadInt64(&n.Sysns)
	a.mu.Lock()
	a.Userns += un
	a.Sysns += sn
	a.mu.Unlock()
}

// Snapshot returns a consistent (Userns, Sysns) pair.
func (a *Accnt) Snapshot() (userns, sysns int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Userns, a.Sysns
}
