package cc

import (
	"testing"

	"arch"
	"defs"
	"mem"
	"vm"
)

func newTestAS(t *testing.T) *vm.AddressSpace {
	t.Helper()
	phys := mem.NewDatabase(mem.PFN(256), 4096)
	cpu := arch.CPUFor(0)
	return vm.NewAddressSpace(phys, cpu.Id())
}

func TestAddLookupRemoveView(t *testing.T) {
	as := newTestAS(t)
	vad := as.Reserve(0x10000, int(mem.PageSize), vm.File, vm.ProtRead, true)

	var cb ControlBlock
	cb.AddView(0, vad)

	got, ok := cb.LookupView(0)
	if !ok || got != vad {
		t.Fatalf("LookupView(0) = (%v, %v), want (vad, true)", got, ok)
	}

	cb.RemoveView(0)
	if _, ok := cb.LookupView(0); ok {
		t.Fatalf("LookupView(0) still found after RemoveView")
	}
}

func TestPurgeViewsUnmapsEveryTrackedVad(t *testing.T) {
	as := newTestAS(t)
	var cb ControlBlock
	for i := 0; i < 3; i++ {
		base := uintptr(0x20000 + i*0x10000)
		vad := as.Reserve(base, int(mem.PageSize), vm.File, vm.ProtRead, true)
		cb.AddView(uint64(i)*mem.PageSize, vad)
	}

	cb.PurgeViews(as)

	for i := 0; i < 3; i++ {
		base := uintptr(0x20000 + i*0x10000)
		if err := as.Release(base); err != defs.VaNotAtBase {
			t.Fatalf("VAD at %#x survived PurgeViews", base)
		}
	}
}

func TestAddViewTracksInLru(t *testing.T) {
	as := newTestAS(t)
	vad := as.Reserve(0x30000, int(mem.PageSize), vm.File, vm.ProtRead, true)

	before := LruSize()
	var cb ControlBlock
	cb.AddView(0, vad)
	if LruSize() != before+1 {
		t.Fatalf("LruSize() = %d, want %d", LruSize(), before+1)
	}

	cb.RemoveView(0)
	if LruSize() != before {
		t.Fatalf("LruSize() after RemoveView = %d, want %d", LruSize(), before)
	}
}
