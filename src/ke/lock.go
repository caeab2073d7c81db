// Package ke implements the kernel executive: IPL-respecting locks,
// dispatcher objects and waits, DPCs, interrupts, and the scheduler.
package ke

import (
	"runtime"
	"sync/atomic"

	"arch"
	"diag"
)

/// SpinLock is a test-and-set lock that raises the current CPU to DPC
/// IPL while held, so the scheduler cannot interrupt the critical
/// section on this processor. Must never be held across a sleep.
//
// Grounded on boron/source/ke/lock.c's KeAcquireSpinLock /
// KeReleaseSpinLock: raise-IPL-then-spin, lower-IPL-on-release, with a
// uniprocessor self-deadlock check in debug builds.
type SpinLock struct {
	locked atomic.Bool
}

/// Acquire spins until the lock is held, raising cpu to IplDpc first.
/// Returns the IPL to restore on release.
func (l *SpinLock) Acquire(cpu *arch.CPU) arch.IPL {
	old := raiseIfNeeded(cpu, arch.IplDpc)
	if debugSelfDeadlock && l.locked.Load() {
		if ok, trace := selfDeadlockCallers.Distinct(); ok {
			panic("ke: SpinLock self-deadlock (uniprocessor, already locked)\n" + trace)
		}
		panic("ke: SpinLock self-deadlock (uniprocessor, already locked)")
	}
	for !l.locked.CompareAndSwap(false, true) {
		for l.locked.Load() {
			runtime.Gosched()
		}
	}
	return old
}

/// TryAcquire attempts to acquire without spinning, reporting success.
func (l *SpinLock) TryAcquire(cpu *arch.CPU) (arch.IPL, bool) {
	old := raiseIfNeeded(cpu, arch.IplDpc)
	if l.locked.CompareAndSwap(false, true) {
		return old, true
	}
	cpu.LowerIPL(old)
	return old, false
}

/// Release clears the lock and restores the CPU's IPL.
func (l *SpinLock) Release(cpu *arch.CPU, oldIpl arch.IPL) {
	if !l.locked.Load() {
		panic("ke: SpinLock released while not held")
	}
	l.locked.Store(false)
	cpu.LowerIPL(oldIpl)
}

func raiseIfNeeded(cpu *arch.CPU, ipl arch.IPL) arch.IPL {
	if cpu.GetIPL() >= ipl {
		return cpu.GetIPL()
	}
	return cpu.RaiseIPL(ipl)
}

// debugSelfDeadlock enables the uniprocessor self-deadlock check. Left
// on: the test harness always runs a single simulated CPU, exactly the
// configuration boron/source/ke/lock.c guards against.
var debugSelfDeadlock = true

// selfDeadlockCallers dedups which call chains have already panicked
// with a self-deadlock trace, so a loop that keeps hitting the same
// bad call site doesn't reprint the identical trace every iteration.
var selfDeadlockCallers = &diag.DistinctCaller{Enabled: true}

/// TicketLock is the fair FIFO lock spec.md section 4.1 reserves for
/// global structures (the PFN database's global free list, the global
/// thread list), grounded on KeAcquireTicketLock/KeReleaseTicketLock.
type TicketLock struct {
	nowServing atomic.Uint64
	nextNumber atomic.Uint64
}

/// Acquire takes the next ticket and spins until it is being served.
func (l *TicketLock) Acquire(cpu *arch.CPU) arch.IPL {
	my := l.nextNumber.Add(1) - 1
	old := raiseIfNeeded(cpu, arch.IplDpc)
	for l.nowServing.Load() != my {
		runtime.Gosched()
	}
	return old
}

/// Release advances to the next ticket and restores the CPU's IPL.
func (l *TicketLock) Release(cpu *arch.CPU, oldIpl arch.IPL) {
	l.nowServing.Add(1)
	cpu.LowerIPL(oldIpl)
}
