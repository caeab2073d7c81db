package ke

import (
	"sync"

	"arch"
	"stats"
)

/// Stats holds this tree's kernel-wide low-overhead counters; see
/// package stats for the Stats/Timing compile-time gates that make
/// Inc/Add no-ops in an ordinary build.
var Stats struct {
	InterruptsDelivered stats.Counter
	DpcsDrained         stats.Counter
	ThreadsReadied      stats.Counter
}

/// ServiceRoutine is an interrupt's handler.
type ServiceRoutine func(i *Interrupt, ctx any)

/// SynchronizeRoutine is run by SynchronizeExecution with the
/// interrupt's lock held.
type SynchronizeRoutine func(ctx any) any

/// Interrupt binds a vector to a service routine plus a caller-owned
/// spin lock, per spec.md section 4.1. A vector may host more than one
/// interrupt only when every interrupt connected to it allows sharing.
// Grounded on boron/include/ke/int.h's KINTERRUPT and
// KeConnectInterrupt/KeSynchronizeExecution; the per-vector dispatch
// table these connect into lives in vectorTable below, a package-level
// substitute for the arch layer's real IDT-walking delivery path.
type Interrupt struct {
	connected bool
	shared    bool
	vector    int
	routine   ServiceRoutine
	ctx       any
	ipl       arch.IPL
	lock      *SpinLock
}

/// InitInterrupt initializes an interrupt object, mirroring
/// KeInitializeInterrupt.
func InitInterrupt(routine ServiceRoutine, ctx any, lock *SpinLock, vector int, ipl arch.IPL, shared bool) *Interrupt {
	return &Interrupt{
		routine: routine,
		ctx:     ctx,
		lock:    lock,
		vector:  vector,
		ipl:     ipl,
		shared:  shared,
	}
}

var (
	vectorTableMu sync.Mutex
	vectorTable   = map[int][]*Interrupt{}
)

/// Connect inserts i into its vector's dispatch list, refusing if an
/// existing entry on that vector does not permit sharing (or i does
/// not). Mirrors KeConnectInterrupt's bool result.
func (i *Interrupt) Connect() bool {
	vectorTableMu.Lock()
	defer vectorTableMu.Unlock()
	for _, existing := range vectorTable[i.vector] {
		if !existing.shared || !i.shared {
			return false
		}
	}
	i.connected = true
	vectorTable[i.vector] = append(vectorTable[i.vector], i)
	return true
}

/// Disconnect removes i from its vector's dispatch list.
func (i *Interrupt) Disconnect() {
	vectorTableMu.Lock()
	defer vectorTableMu.Unlock()
	list := vectorTable[i.vector]
	for idx, existing := range list {
		if existing == i {
			vectorTable[i.vector] = append(list[:idx], list[idx+1:]...)
			break
		}
	}
	i.connected = false
}

/// Deliver is the arch layer's entry point for a hardware interrupt on
/// vector: it walks every connected interrupt on that vector, acquiring
/// each one's spin lock in turn around the call to its service routine.
func Deliver(cpu *arch.CPU, vector int) {
	vectorTableMu.Lock()
	list := make([]*Interrupt, len(vectorTable[vector]))
	copy(list, vectorTable[vector])
	vectorTableMu.Unlock()

	for _, i := range list {
		old := i.lock.Acquire(cpu)
		i.routine(i, i.ctx)
		i.lock.Release(cpu, old)
		Stats.InterruptsDelivered.Inc()
	}
}

/// SynchronizeExecution raises cpu to at least i's IPL, acquires i's
/// spin lock, runs routine, and restores both — guaranteeing routine
/// cannot run concurrently with i's own service routine.
func (i *Interrupt) SynchronizeExecution(cpu *arch.CPU, routine SynchronizeRoutine, ctx any) any {
	target := i.ipl
	if cpu.GetIPL() > target {
		target = cpu.GetIPL()
	}
	old := raiseIfNeeded(cpu, target)
	lockOld := i.lock.Acquire(cpu)
	result := routine(ctx)
	i.lock.Release(cpu, lockOld)
	cpu.LowerIPL(old)
	return result
}
