package vm

import (
	"testing"

	"arch"
	"defs"
	"mem"
)

func newTestAS(t *testing.T) (*AddressSpace, *arch.CPU) {
	t.Helper()
	phys := mem.NewDatabase(mem.PFN(256), 4096)
	cpu := arch.CPUFor(0)
	return NewAddressSpace(phys, cpu.Id()), cpu
}

func TestReserveLookupRelease(t *testing.T) {
	as, _ := newTestAS(t)

	v := as.Reserve(0x1000, 3*int(mem.PageSize), Anon, ProtRead|ProtWrite, true)
	if v.Pages != 3 {
		t.Fatalf("Pages = %d, want 3", v.Pages)
	}

	got, ok := as.Lookup(0x1000 + mem.PageSize)
	if !ok || got != v {
		t.Fatalf("Lookup inside VAD failed: got=%v ok=%v", got, ok)
	}
	if _, ok := as.Lookup(0x1000 + 3*mem.PageSize); ok {
		t.Fatalf("Lookup past VAD end should miss")
	}

	if err := as.Release(0x1000); err != defs.Success {
		t.Fatalf("Release = %v, want Success", err)
	}
	if err := as.Release(0x1000); err != defs.VaNotAtBase {
		t.Fatalf("second Release = %v, want VaNotAtBase", err)
	}
}

func TestFindUnusedRangeSkipsExisting(t *testing.T) {
	as, _ := newTestAS(t)
	as.Reserve(0x1000, int(mem.PageSize), Anon, ProtRead, true)

	got := as.FindUnusedRange(0x1000, int(mem.PageSize))
	if got < 0x2000 {
		t.Fatalf("FindUnusedRange returned %#x, want >= 0x2000", got)
	}
}

func TestFaultAnonDemandZero(t *testing.T) {
	as, cpu := newTestAS(t)
	as.Reserve(0x2000, int(mem.PageSize), Anon, ProtRead|ProtWrite, true)

	if err := as.Fault(cpu, 0x2000, AccessWrite); err != defs.Success {
		t.Fatalf("Fault = %v, want Success", err)
	}

	as.AcquireShared()
	p := as.ptes[0x2000]
	as.ReleaseShared()
	if p == nil || !p.present {
		t.Fatalf("page not marked present after fault")
	}
	for _, b := range as.phys.Dmap(p.pfn) {
		if b != 0 {
			t.Fatalf("demand-zero page not zeroed")
		}
	}
}

func TestFaultUnmappedIsAccessViolation(t *testing.T) {
	as, cpu := newTestAS(t)
	if err := as.Fault(cpu, 0x9000, AccessRead); err != defs.AccessViolation {
		t.Fatalf("Fault over unmapped VA = %v, want AccessViolation", err)
	}
}

func TestFaultWriteToReadOnlyVadIsAccessViolation(t *testing.T) {
	as, cpu := newTestAS(t)
	as.Reserve(0x3000, int(mem.PageSize), Anon, ProtRead, true)
	if err := as.Fault(cpu, 0x3000, AccessWrite); err != defs.AccessViolation {
		t.Fatalf("Fault write over read-only VAD = %v, want AccessViolation", err)
	}
}

func TestFaultGuardPageIsAccessViolation(t *testing.T) {
	as, cpu := newTestAS(t)
	as.Reserve(0x4000, int(mem.PageSize), Anon, 0, true)
	if err := as.Fault(cpu, 0x4000, AccessRead); err != defs.AccessViolation {
		t.Fatalf("Fault over guard page = %v, want AccessViolation", err)
	}
}

func TestFaultRaisedIPLRefaults(t *testing.T) {
	as, cpu := newTestAS(t)
	as.Reserve(0x5000, int(mem.PageSize), Anon, ProtRead|ProtWrite, true)

	old := cpu.RaiseIPL(arch.IplApc)
	defer cpu.LowerIPL(old)

	if err := as.Fault(cpu, 0x5000, AccessRead); err != defs.Refault {
		t.Fatalf("Fault at raised IPL = %v, want Refault", err)
	}
}

// stubSource implements PageBackingSource with a single fixed PFN,
// letting the CoW path be exercised deterministically.
type stubSource struct {
	phys   *mem.Database
	pfn    mem.PFN
	once   bool
	dirtyN int
}

func (s *stubSource) Filepage(off uint64) (mem.PFN, defs.Err) {
	if !s.once {
		pfn, _, ok := s.phys.AllocPage(0)
		if !ok {
			return 0, defs.NoMemory
		}
		s.pfn = pfn
		s.once = true
	}
	return s.pfn, defs.Success
}

func (s *stubSource) MarkDirty(off uint64) {
	s.dirtyN++
}

func TestFaultFileBackedPrivateCOW(t *testing.T) {
	as, cpu := newTestAS(t)
	src := &stubSource{phys: as.phys}
	v := as.Reserve(0x6000, int(mem.PageSize), File, ProtRead|ProtWrite, true)
	v.Source = src

	if err := as.Fault(cpu, 0x6000, AccessRead); err != defs.Success {
		t.Fatalf("read fault = %v, want Success", err)
	}
	as.AcquireShared()
	p := as.ptes[0x6000]
	as.ReleaseShared()
	if !p.present || p.writable || !p.cow {
		t.Fatalf("file page after read fault should be present, read-only, cow: %+v", p)
	}

	if err := as.Fault(cpu, 0x6000, AccessWrite); err != defs.Success {
		t.Fatalf("write fault (cow break) = %v, want Success", err)
	}
	as.AcquireShared()
	p = as.ptes[0x6000]
	as.ReleaseShared()
	if !p.writable || p.cow {
		t.Fatalf("page after cow break should be writable, non-cow: %+v", p)
	}
	if p.pfn == src.pfn {
		t.Fatalf("cow break should have copied to a new pfn, still on source pfn %d", p.pfn)
	}
	if src.dirtyN != 0 {
		t.Fatalf("MarkDirty called %d times for a private (cow) mapping, want 0", src.dirtyN)
	}
}

func TestFaultFileBackedSharedMarksDirtyOnFirstWritableFault(t *testing.T) {
	as, cpu := newTestAS(t)
	src := &stubSource{phys: as.phys}
	v := as.Reserve(0x6800, int(mem.PageSize), File, ProtRead|ProtWrite, true)
	v.Shared = true
	v.Source = src

	if err := as.Fault(cpu, 0x6800, AccessWrite); err != defs.Success {
		t.Fatalf("write fault = %v, want Success", err)
	}
	as.AcquireShared()
	p := as.ptes[0x6800]
	as.ReleaseShared()
	if !p.present || !p.writable || p.cow {
		t.Fatalf("shared file page after write fault should be present, writable, non-cow: %+v", p)
	}
	if src.dirtyN != 1 {
		t.Fatalf("MarkDirty called %d times for a shared writable mapping's first fault, want 1", src.dirtyN)
	}
}

func TestFaultFileBackedNoSourceIsMoreProcessing(t *testing.T) {
	as, cpu := newTestAS(t)
	as.Reserve(0x7000, int(mem.PageSize), File, ProtRead, true)

	if err := as.Fault(cpu, 0x7000, AccessRead); err != defs.MoreProcessingRequired {
		t.Fatalf("Fault with nil Source = %v, want MoreProcessingRequired", err)
	}
}

func TestCommitDecommit(t *testing.T) {
	as, cpu := newTestAS(t)
	as.Reserve(0x8000, int(mem.PageSize), Anon, ProtRead|ProtWrite, false)

	if err := as.Commit(0x8000); err != defs.Success {
		t.Fatalf("Commit = %v, want Success", err)
	}
	if err := as.Fault(cpu, 0x8000, AccessWrite); err != defs.Success {
		t.Fatalf("Fault after Commit = %v, want Success", err)
	}
	if err := as.Decommit(0x8000); err != defs.Success {
		t.Fatalf("Decommit = %v, want Success", err)
	}
	as.AcquireShared()
	p, ok := as.ptes[0x8000]
	as.ReleaseShared()
	if ok && p.present {
		t.Fatalf("page still present after Decommit")
	}
}

func TestProbeAddressForcesResidency(t *testing.T) {
	as, cpu := newTestAS(t)
	as.Reserve(0xa000, 2*int(mem.PageSize), Anon, ProtRead|ProtWrite, true)

	if err := as.ProbeAddress(cpu, 0xa000, 2*int(mem.PageSize), true); err != defs.Success {
		t.Fatalf("ProbeAddress = %v, want Success", err)
	}
	for _, va := range []uintptr{0xa000, 0xa000 + mem.PageSize} {
		as.AcquireShared()
		p := as.ptes[va]
		as.ReleaseShared()
		if p == nil || !p.present {
			t.Fatalf("page at %#x not resident after ProbeAddress", va)
		}
	}
}
