package ke

import (
	"container/list"
	"sync"

	"arch"
)

/// DeferredRoutine is a DPC's callback, given the DPC itself plus the
/// two opaque arguments it was last enqueued with.
type DeferredRoutine func(dpc *Dpc, ctx, arg1, arg2 any)

/// Dpc is a deferred procedure call: work queued from high IPL (an
/// interrupt service routine, say) to run shortly afterward at DPC IPL
/// instead of inline.
// Grounded on source/ke/dpc.c's KDPC/KeInitializeDpc/KeEnqueueDpc/
// KiDispatchDpcs, trimmed of the self-IPI plumbing (HalSendSelfIpi):
// this tree's "important" DPCs instead nudge the owning queue's
// goroutine awake directly, since there is no real interrupt controller
// to target with a software interrupt.
type Dpc struct {
	routine   DeferredRoutine
	ctx       any
	important bool

	enqueued bool
	arg1     any
	arg2     any
}

/// InitDpc associates routine and ctx with the DPC, mirroring
/// KeInitializeDpc.
func (d *Dpc) InitDpc(routine DeferredRoutine, ctx any) {
	*d = Dpc{routine: routine, ctx: ctx}
}

/// SetImportant marks the DPC for head-of-queue insertion and immediate
/// dispatch. Must be called before EnqueueDpc, never after.
func (d *Dpc) SetImportant(important bool) {
	d.important = important
}

/// DpcQueue is a single CPU's DPC queue, drained at DPC IPL.
type DpcQueue struct {
	mu      sync.Mutex
	items   list.List
	lock    SpinLock
	cpu     *arch.CPU
	wake    chan struct{}
}

/// NewDpcQueue creates the DPC queue owned by cpu.
func NewDpcQueue(cpu *arch.CPU) *DpcQueue {
	return &DpcQueue{cpu: cpu, wake: make(chan struct{}, 1)}
}

/// Enqueue inserts dpc (head if important, tail otherwise) and, if
/// important, wakes the queue's dispatch loop immediately.
func (q *DpcQueue) Enqueue(dpc *Dpc, arg1, arg2 any) {
	old := q.lock.Acquire(q.cpu)
	dpc.arg1, dpc.arg2 = arg1, arg2
	important := dpc.important
	if !dpc.enqueued {
		dpc.enqueued = true
		if dpc.important {
			q.items.PushFront(dpc)
		} else {
			q.items.PushBack(dpc)
		}
	}
	q.lock.Release(q.cpu, old)

	if important {
		select {
		case q.wake <- struct{}{}:
		default:
		}
	}
}

/// Drain runs every currently-queued DPC to completion, in order. This
/// is KiDispatchDpcs' loop body; the caller is responsible for being at
/// DPC IPL (Run, below, does this for the background drain loop).
func (q *DpcQueue) Drain() {
	for {
		old := q.lock.Acquire(q.cpu)
		front := q.items.Front()
		if front == nil {
			q.lock.Release(q.cpu, old)
			return
		}
		q.items.Remove(front)
		dpc := front.Value.(*Dpc)
		dpc.enqueued = false
		q.lock.Release(q.cpu, old)

		dpc.routine(dpc, dpc.ctx, dpc.arg1, dpc.arg2)
		Stats.DpcsDrained.Inc()
	}
}

/// Run drains the queue whenever woken by an important enqueue, until
/// stop is closed. Non-important DPCs are drained opportunistically by
/// any other caller of Drain (a scheduler tick, say); Run exists so
/// important DPCs still get serviced promptly with nothing else polling.
func (q *DpcQueue) Run(stop <-chan struct{}) {
	for {
		select {
		case <-q.wake:
			q.Drain()
		case <-stop:
			return
		}
	}
}
