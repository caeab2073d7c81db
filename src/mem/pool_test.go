package mem

import "testing"

func TestPoolReserveFirstFitAndSplit(t *testing.T) {
	p := NewPool(0x1000_0000, 10)

	h1, addr1, ok := p.Reserve(3, "TAG1")
	if !ok || addr1 != 0x1000_0000 {
		t.Fatalf("Reserve(3) = (%#x, %v), want (0x10000000, true)", addr1, ok)
	}
	h2, addr2, ok := p.Reserve(2, "TAG2")
	if !ok || addr2 != 0x1000_0000+3*PageSize {
		t.Fatalf("Reserve(2) addr = %#x, want %#x", addr2, 0x1000_0000+3*PageSize)
	}

	if free, alloc, _, _ := p.Stats(); free != 5 || alloc != 5 {
		t.Fatalf("Stats = free=%d alloc=%d, want free=5 alloc=5", free, alloc)
	}

	p.Free(h1)
	p.Free(h2)
	if free, alloc, freeExtents, _ := p.Stats(); free != 10 || alloc != 0 || freeExtents != 1 {
		t.Fatalf("Stats after freeing both = free=%d alloc=%d extents=%d, want 10/0/1 (coalesced)", free, alloc, freeExtents)
	}
}

func TestPoolReserveExactFitConsumesWholeExtent(t *testing.T) {
	p := NewPool(0x2000_0000, 4)
	h, addr, ok := p.Reserve(4, "WHOLE")
	if !ok || addr != 0x2000_0000 {
		t.Fatalf("Reserve(4) = (%#x, %v)", addr, ok)
	}
	if _, _, ok := p.Reserve(1, "MORE"); ok {
		t.Fatalf("Reserve should fail once the pool is fully allocated")
	}
	p.Free(h)
	if _, _, ok := p.Reserve(4, "AGAIN"); !ok {
		t.Fatalf("Reserve after Free should succeed")
	}
}

func TestPoolFreeCoalescesWithBothNeighbors(t *testing.T) {
	p := NewPool(0x3000_0000, 9)
	h1, _, _ := p.Reserve(3, "A")
	h2, _, _ := p.Reserve(3, "B")
	h3, _, _ := p.Reserve(3, "C")

	p.Free(h1)
	p.Free(h3)
	if _, _, freeExtents, allocExtents := p.Stats(); freeExtents != 2 || allocExtents != 1 {
		t.Fatalf("after freeing h1,h3: freeExtents=%d allocExtents=%d, want 2/1", freeExtents, allocExtents)
	}

	p.Free(h2)
	if free, alloc, freeExtents, allocExtents := p.Stats(); free != 9 || alloc != 0 || freeExtents != 1 || allocExtents != 0 {
		t.Fatalf("after freeing all three: free=%d alloc=%d freeExtents=%d allocExtents=%d, want 9/0/1/0", free, alloc, freeExtents, allocExtents)
	}
}

func TestPoolOutOfSpace(t *testing.T) {
	p := NewPool(0x4000_0000, 2)
	if _, _, ok := p.Reserve(3, "TOO_BIG"); ok {
		t.Fatalf("Reserve larger than the pool should fail")
	}
}
