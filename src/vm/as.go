package vm

import (
	"aatree"
	"defs"
	"ke"
	"mem"
	"util"
)

// pte is this tree's software page-table entry: vm has no real
// architecture-specific page-table format to walk (spec.md's Non-goals
// exclude binding to one CPU architecture), so each address space keeps
// its mappings in an ordinary map keyed by page number instead of a
// multi-level radix tree of physical pages. The bits mirror spec.md
// section 4.6's PTE sub-states closely enough that the fault handler
// reads exactly like the original's.
type pte struct {
	pfn      mem.PFN
	present  bool
	writable bool
	cow      bool
	wasCow   bool
}

/// AddressSpace is one process's Vm_t-equivalent: a VAD tree guarded by
/// an rw-lock, a physical-page allocator to draw from, and the
/// soft page table described above.
// Grounded on biscuit/src/vm/as.go's Vm_t (Vmregion + Pmap + mutex),
// generalized from a single mutex to the rw-lock spec.md section 4.8's
// page-fault algorithm calls for ("take the process address rw-lock
// shared... If it cannot be satisfied shared, demote/retry").
type AddressSpace struct {
	lock ke.RwLock

	vads aatree.Tree[uintptr, *Vad]
	ptes map[uintptr]*pte

	phys *mem.Database
	cpu  int
}

/// NewAddressSpace creates an empty address space backed by phys,
/// allocating pages on the given simulated CPU.
func NewAddressSpace(phys *mem.Database, cpu int) *AddressSpace {
	as := &AddressSpace{
		phys: phys,
		cpu:  cpu,
		ptes: make(map[uintptr]*pte),
	}
	as.lock.InitRwLock()
	return as
}

/// Reserve inserts a new VAD of the given size at start (page-aligned),
/// mirroring ReserveVirtualMemory minus the free-range heap search —
/// the caller (svc, per SPEC_FULL.md section 6) is expected to have
/// already chosen a non-overlapping start via FindUnusedRange.
func (as *AddressSpace) Reserve(start uintptr, size int, mt MappingType, perms Protection, committed bool) *Vad {
	pages := util.Roundup(size, mem.PageSize) / mem.PageSize
	v := &Vad{Start: start, Pages: pages, Mtype: mt, Perms: perms, Committed: committed}

	as.lock.AcquireExclusive()
	as.vads.Insert(start, v)
	as.lock.ReleaseExclusive()
	return v
}

/// Release removes the VAD based at base, clearing every PTE in its
/// range and releasing the pages they referenced. Panics if base does
/// not exactly match a VAD's start, mirroring Release's "asserts the
/// base matches a VAD" contract.
func (as *AddressSpace) Release(base uintptr) defs.Err {
	as.lock.AcquireExclusive()
	defer as.lock.ReleaseExclusive()

	v, ok := as.vads.Lookup(base)
	if !ok {
		return defs.VaNotAtBase
	}
	for va := v.Start; va < v.End(); va += mem.PageSize {
		as.unmapLocked(va)
	}
	as.vads.Remove(base)
	return defs.Success
}

func (as *AddressSpace) unmapLocked(va uintptr) bool {
	p, ok := as.ptes[va]
	if !ok || !p.present {
		delete(as.ptes, va)
		return false
	}
	as.phys.Release(as.cpu, p.pfn)
	delete(as.ptes, va)
	return true
}

/// FindUnusedRange returns the lowest va >= minva, rounded up to a page
/// boundary, such that size contiguous bytes starting there overlap no
/// existing VAD. Mirrors Unusedva_inner's empty-region scan, simplified
/// from the original's augmented-subtree gap tracking to a linear
/// in-order walk since vm's VAD tree is not expected to hold more than a
/// few dozen entries per process.
func (as *AddressSpace) FindUnusedRange(minva uintptr, size int) uintptr {
	pages := util.Roundup(size, mem.PageSize) / mem.PageSize
	need := uintptr(pages) * mem.PageSize

	as.lock.AcquireShared()
	defer as.lock.ReleaseShared()

	candidate := util.Roundup(int(minva), mem.PageSize)
	cand := uintptr(candidate)
	as.vads.InOrder(func(start uintptr, v *Vad) bool {
		if cand+need <= start {
			return false
		}
		if v.End() > cand {
			cand = v.End()
		}
		return true
	})
	return cand
}

/// Commit marks the VAD based at base committed, making its pages
/// eligible to be faulted in. Mirrors OSAllocateVirtualMemory's
/// MEM_COMMIT path applied to an already-reserved region.
func (as *AddressSpace) Commit(base uintptr) defs.Err {
	as.lock.AcquireExclusive()
	defer as.lock.ReleaseExclusive()
	v, ok := as.vads.Lookup(base)
	if !ok {
		return defs.VaNotAtBase
	}
	v.Committed = true
	return defs.Success
}

/// Decommit releases every page currently mapped within the VAD based
/// at base and marks it uncommitted again, without removing the VAD
/// itself. Mirrors OSFreeVirtualMemory's MEM_DECOMMIT path.
func (as *AddressSpace) Decommit(base uintptr) defs.Err {
	as.lock.AcquireExclusive()
	defer as.lock.ReleaseExclusive()
	v, ok := as.vads.Lookup(base)
	if !ok {
		return defs.VaNotAtBase
	}
	for va := v.Start; va < v.End(); va += mem.PageSize {
		as.unmapLocked(va)
	}
	v.Committed = false
	return defs.Success
}

/// Lookup finds the VAD covering va, if any, mirroring Vmregion_t's
/// range lookup (implemented here via the aatree floor search: the VAD
/// with the greatest start <= va, then checked for containment).
func (as *AddressSpace) Lookup(va uintptr) (*Vad, bool) {
	start, v, ok := as.vads.LookupFloor(va)
	if !ok || !v.Contains(va) {
		_ = start
		return nil, false
	}
	return v, true
}

/// ForEachPresentPage calls fn once for every currently-mapped page in
/// the VAD based at base, passing the page's offset from the VAD's
/// start and its backing PFN. vm has no notion of a file or a dispatch
/// table of its own, so flushing a file-backed view's modified pages
/// back through its FCB is left to svc (OSFlushViewOfObject), which
/// drives this walk and writes each page through vad.Source's owner.
func (as *AddressSpace) ForEachPresentPage(base uintptr, fn func(off uint64, pfn mem.PFN)) defs.Err {
	as.lock.AcquireShared()
	defer as.lock.ReleaseShared()

	v, ok := as.vads.Lookup(base)
	if !ok {
		return defs.VaNotAtBase
	}
	for va := v.Start; va < v.End(); va += mem.PageSize {
		p, ok := as.ptes[va]
		if !ok || !p.present {
			continue
		}
		fn(uint64(va-v.Start), p.pfn)
	}
	return defs.Success
}

/// AcquireShared/ReleaseShared/AcquireExclusive/ReleaseExclusive expose
/// the address-space rw-lock directly for callers (the page-fault
/// handler, ProbeAddress) that must hold it across several operations.
func (as *AddressSpace) AcquireShared()    { as.lock.AcquireShared() }
func (as *AddressSpace) ReleaseShared()    { as.lock.ReleaseShared() }
func (as *AddressSpace) AcquireExclusive() { as.lock.AcquireExclusive() }
func (as *AddressSpace) ReleaseExclusive() { as.lock.ReleaseExclusive() }
