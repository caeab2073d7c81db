package cc

import (
	"testing"

	"mem"
)

func TestSlaAssignLookupRemove(t *testing.T) {
	s := NewSla()

	if got := s.LookupEntry(5); got != NoData {
		t.Fatalf("LookupEntry(5) on empty Sla = %v, want NoData", got)
	}

	s.AssignEntry(5, mem.PFN(42))
	if got := s.LookupEntry(5); got != mem.PFN(42) {
		t.Fatalf("LookupEntry(5) = %v, want 42", got)
	}
	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}

	s.RemoveEntry(5)
	if got := s.LookupEntry(5); got != NoData {
		t.Fatalf("LookupEntry(5) after RemoveEntry = %v, want NoData", got)
	}
	if s.Len() != 0 {
		t.Fatalf("Len() after RemoveEntry = %d, want 0", s.Len())
	}
}

func TestSlaSparseIndicesDontAllocateBetween(t *testing.T) {
	s := NewSla()
	s.AssignEntry(0, mem.PFN(1))
	s.AssignEntry(1_000_000, mem.PFN(2))

	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if got := s.LookupEntry(500_000); got != NoData {
		t.Fatalf("LookupEntry(500000) = %v, want NoData", got)
	}
}

func TestSlaForEachVisitsEveryEntry(t *testing.T) {
	s := NewSla()
	want := map[uint64]mem.PFN{0: 10, 1: 20, 2: 30}
	for idx, pfn := range want {
		s.AssignEntry(idx, pfn)
	}

	got := map[uint64]mem.PFN{}
	s.ForEach(func(idx uint64, pfn mem.PFN) {
		got[idx] = pfn
	})
	if len(got) != len(want) {
		t.Fatalf("ForEach visited %d entries, want %d", len(got), len(want))
	}
	for idx, pfn := range want {
		if got[idx] != pfn {
			t.Fatalf("entry %d = %v, want %v", idx, got[idx], pfn)
		}
	}
}

func TestControlBlockMarkModifiedWidensRange(t *testing.T) {
	var cb ControlBlock
	cb.InitControlBlock()

	if _, _, ok := cb.ModifiedRange(); ok {
		t.Fatalf("ModifiedRange() reports dirty pages before any MarkModified")
	}

	cb.MarkModified(5)
	cb.MarkModified(2)
	cb.MarkModified(9)

	first, last, ok := cb.ModifiedRange()
	if !ok || first != 2 || last != 9 {
		t.Fatalf("ModifiedRange() = (%d, %d, %v), want (2, 9, true)", first, last, ok)
	}

	cb.ClearModified()
	if _, _, ok := cb.ModifiedRange(); ok {
		t.Fatalf("ModifiedRange() still dirty after ClearModified")
	}
}

func TestControlBlockTeardownFreesEveryCachedPage(t *testing.T) {
	var cb ControlBlock
	cb.InitControlBlock()
	cb.Pages.AssignEntry(0, mem.PFN(1))
	cb.Pages.AssignEntry(1, mem.PFN(2))

	freed := map[mem.PFN]bool{}
	cb.Teardown(func(pfn mem.PFN) { freed[pfn] = true })

	if !freed[1] || !freed[2] {
		t.Fatalf("Teardown did not free both cached pages: %v", freed)
	}
	if cb.Pages.Len() != 0 {
		t.Fatalf("Pages.Len() after Teardown = %d, want 0", cb.Pages.Len())
	}
}
