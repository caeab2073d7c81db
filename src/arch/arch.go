// Package arch is the platform-hook boundary Ke, Mm and Io are built
// against. Biscuit, the teacher, gets these same hooks (Cpuid, Rcr4,
// Vtop, Gptr/Setgptr, Pml4freeze, Condflush) from a patched Go runtime
// built specifically for it (see biscuit/src/mem/dmap.go and
// biscuit/src/tinfo/tinfo.go for the call sites); this tree has no such
// runtime fork, so the same seam is expressed as an ordinary Go
// interface instead, with a cooperative, goroutine-hosted Sim
// implementation standing in for real hardware.
package arch

import "sync/atomic"

// IPL is the interrupt priority level, spec.md section 4.1's totally
// ordered "normal < apc < dpc < device < clock < no-interrupts" scale.
// Raising it is a software accounting operation here: there is no real
// interrupt controller to mask, but every lock and dispatcher routine
// in ke asserts against it exactly as the real kernel does, so code
// written against a true IPL-respecting kernel carries over unchanged.
type IPL int

const (
	IplNormal IPL = iota
	IplApc
	IplDpc
	IplDevice
	IplClock
	IplNoInterrupts
)

func (i IPL) String() string {
	switch i {
	case IplNormal:
		return "normal"
	case IplApc:
		return "apc"
	case IplDpc:
		return "dpc"
	case IplDevice:
		return "device"
	case IplClock:
		return "clock"
	case IplNoInterrupts:
		return "noInterrupts"
	default:
		return "ipl?"
	}
}

// MaxCPUs bounds the number of simulated processors, mirroring the
// teacher's MAXCPUS constant.
const MaxCPUs = 32

/// CPU is one simulated processor: its IPL, a pending-DPC flag pulled
/// from ke when the IPL drops back below dpc, and an index into the
/// fixed CPU array. Exactly one goroutine acts as "the" running thread
/// on a CPU at a time; ke.Scheduler serializes that with per-CPU state,
/// not this package.
type CPU struct {
	id  int
	ipl atomic.Int32
}

var cpus [MaxCPUs]CPU

func init() {
	for i := range cpus {
		cpus[i].id = i
	}
}

/// CPUFor returns the simulated CPU with the given index. Panics if id
/// is out of range, mirroring an out-of-bounds array access in the
/// teacher's per-CPU arrays.
func CPUFor(id int) *CPU {
	return &cpus[id]
}

/// Id returns the CPU's index.
func (c *CPU) Id() int {
	return c.id
}

/// GetIPL returns the CPU's current IPL.
func (c *CPU) GetIPL() IPL {
	return IPL(c.ipl.Load())
}

/// RaiseIPL raises the CPU to newIpl and returns the previous value.
/// Panics if newIpl is lower than the current IPL: raising must never
/// lower, matching KeRaiseIPL's contract in ke/lock.c.
func (c *CPU) RaiseIPL(newIpl IPL) IPL {
	old := IPL(c.ipl.Load())
	if newIpl < old {
		panic("arch: RaiseIPL to a lower level")
	}
	c.ipl.Store(int32(newIpl))
	return old
}

/// LowerIPL restores a previously saved IPL. Panics if oldIpl is higher
/// than the current IPL, which would raise rather than lower.
func (c *CPU) LowerIPL(oldIpl IPL) {
	cur := IPL(c.ipl.Load())
	if oldIpl > cur {
		panic("arch: LowerIPL to a higher level")
	}
	c.ipl.Store(int32(oldIpl))
}

// current holds the running thread for each simulated CPU. The teacher
// gets this for free from its patched runtime's per-G Gptr/Setgptr
// slot (biscuit/src/tinfo/tinfo.go); lacking that fork, the running
// thread is tracked by CPU slot instead of by goroutine; ke's
// scheduler guarantees only the goroutine currently dispatched on a
// CPU touches that slot.
var current [MaxCPUs]atomic.Pointer[any]

/// SetCurrent records t as the thread running on CPU c.
func (c *CPU) SetCurrent(t any) {
	current[c.id].Store(&t)
}

/// Current returns the thread running on CPU c, or nil if none.
func (c *CPU) Current() any {
	p := current[c.id].Load()
	if p == nil {
		return nil
	}
	return *p
}

/// ClearCurrent removes CPU c's running-thread record.
func (c *CPU) ClearCurrent() {
	current[c.id].Store(nil)
}
