package mem

import (
	"sync"
)

// poolEntry is one extent of the pool's managed virtual-address range:
// either free or allocated under Tag, linked to its neighbors in
// address order. Grounded on original_source/source/mm/pool.c's
// MIPOOL_ENTRY (Flink/Blink/Flags/Tag/Size/Address).
type poolEntry struct {
	prev, next *poolEntry
	allocated  bool
	tag        string
	pages      int
	base       uintptr
}

/// Pool is a first-fit, page-granularity extent allocator over a fixed
/// virtual-address range, used for kernel allocations that want a
/// stable address rather than a PFN (page-table working storage,
/// object-manager metadata, and the like). It does not back its extents
/// with physical pages itself — that is the caller's job via Database;
/// Pool only hands out non-overlapping [base, base+pages*PageSize)
/// ranges and reclaims them. Grounded on
/// original_source/source/mm/pool.c's MiReservePoolSpaceTagged/
/// MiFreePoolSpace/MmpSplitEntry/MmpTryConnectEntryWithItsFlink; the
/// header-allocating slab layer pool.c builds on (slab.c) has no
/// equivalent here since Go's own allocator and GC already serve that
/// role, so poolEntry values are ordinary heap objects.
type Pool struct {
	mu    sync.Mutex
	first *poolEntry
	last  *poolEntry
}

/// NewPool creates a pool managing a single free extent spanning
/// npages pages starting at base.
func NewPool(base uintptr, npages int) *Pool {
	e := &poolEntry{pages: npages, base: base}
	return &Pool{first: e, last: e}
}

/// PoolHandle identifies a reservation made by Reserve, opaque to
/// callers, passed back to Free.
type PoolHandle struct {
	entry *poolEntry
}

/// Reserve finds the first free extent at least npages long, splits off
/// exactly npages from its low address, and returns a handle plus the
/// base address of the reservation. ok is false if no extent is large
/// enough.
func (p *Pool) Reserve(npages int, tag string) (h PoolHandle, addr uintptr, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for e := p.first; e != nil; e = e.next {
		if e.allocated || e.pages < npages {
			continue
		}
		if e.pages == npages {
			e.allocated = true
			e.tag = tag
			return PoolHandle{e}, e.base, true
		}

		rest := &poolEntry{
			prev:  e,
			next:  e.next,
			pages: e.pages - npages,
			base:  e.base + uintptr(npages)*PageSize,
		}
		if rest.next != nil {
			rest.next.prev = rest
		}
		if p.last == e {
			p.last = rest
		}
		e.next = rest
		e.pages = npages
		e.allocated = true
		e.tag = tag
		return PoolHandle{e}, e.base, true
	}
	return PoolHandle{}, 0, false
}

// tryMerge absorbs e's immediate successor into e if both are free and
// address-contiguous, mirroring MmpTryConnectEntryWithItsFlink.
func (p *Pool) tryMerge(e *poolEntry) {
	if e == nil {
		return
	}
	next := e.next
	if next == nil || next.allocated || e.allocated {
		return
	}
	if next.base != e.base+uintptr(e.pages)*PageSize {
		return
	}
	e.pages += next.pages
	e.next = next.next
	if e.next != nil {
		e.next.prev = e
	}
	if p.last == next {
		p.last = e
	}
}

/// Free returns h's extent to the free list, coalescing with either
/// neighbor it is now contiguous with.
func (p *Pool) Free(h PoolHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e := h.entry
	e.allocated = false
	e.tag = ""

	p.tryMerge(e)
	p.tryMerge(e.prev)
}

/// Stats reports the pool's current free- and allocated-page totals and
/// the number of extents in each state, for diagnostics.
func (p *Pool) Stats() (freePages, allocPages, freeExtents, allocExtents int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for e := p.first; e != nil; e = e.next {
		if e.allocated {
			allocPages += e.pages
			allocExtents++
		} else {
			freePages += e.pages
			freeExtents++
		}
	}
	return
}
