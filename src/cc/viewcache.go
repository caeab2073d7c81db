// Package cc implements Boron's cache manager: the system-space view
// cache that keeps a file's recently-mapped ranges resident as ordinary
// VADs in the kernel's own address space, plus the LRU list bounding
// how many such views may exist at once.
//
// Grounded on boron/source/cc/vcache.c and vclru.c (both read in full).
// biscuit's block cache (fs/blk.go, which this package's LRU borrows
// container/list from) is the closest teacher texture, though biscuit
// caches raw disk blocks rather than mapped VADs.
package cc

import (
	"sync"

	"aatree"
	"defs"
	"mem"
	"vm"
)

/// ControlBlock is the cache-manager half of a file object (io.FCB
/// embeds one): the sparse page cache mapping the file's page indices
/// to cached PFNs, and the set of system-space views currently mapping
/// ranges of the file into the kernel's address space, keyed by byte
/// offset. Grounded on mm/vad.h's MMVAD_LIST-shaped ViewCache rbtree
/// field of FCB, and mm/sla.h's per-file MMSLA page cache.
type ControlBlock struct {
	mu    sync.Mutex
	views aatree.Tree[uint64, *vm.Vad]
	Pages *Sla

	haveModified      bool
	firstModifiedPage uint64
	lastModifiedPage  uint64
}

/// InitControlBlock prepares cb's page cache for use. Must be called
/// before AddView/LookupView/RemoveView/PurgeViews or cb.Pages.
func (cb *ControlBlock) InitControlBlock() {
	cb.Pages = NewSla()
}

/// MarkModified records that the page at pageIndex has been dirtied,
/// widening the file's modified-page range so the writer (once wired to
/// io) knows which span needs flushing. Grounded on mm/cache.h's
/// FirstModifiedPage/LastModifiedPage fields of CCB.
func (cb *ControlBlock) MarkModified(pageIndex uint64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if !cb.haveModified {
		cb.firstModifiedPage = pageIndex
		cb.lastModifiedPage = pageIndex
		cb.haveModified = true
		return
	}
	if pageIndex < cb.firstModifiedPage {
		cb.firstModifiedPage = pageIndex
	}
	if pageIndex > cb.lastModifiedPage {
		cb.lastModifiedPage = pageIndex
	}
}

/// ModifiedRange reports the inclusive range of page indices dirtied
/// since the last ClearModified, or ok == false if nothing is dirty.
func (cb *ControlBlock) ModifiedRange() (first, last uint64, ok bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.firstModifiedPage, cb.lastModifiedPage, cb.haveModified
}

/// ClearModified resets the modified-page range after the writer has
/// flushed it.
func (cb *ControlBlock) ClearModified() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.haveModified = false
	cb.firstModifiedPage = 0
	cb.lastModifiedPage = 0
}

/// AddView records that vad maps the file range starting at offset,
/// and adds it to the global view-cache LRU as the most recently used
/// entry.
func (cb *ControlBlock) AddView(offset uint64, vad *vm.Vad) {
	cb.mu.Lock()
	cb.views.Insert(offset, vad)
	cb.mu.Unlock()

	touchVad(vad)
}

/// LookupView returns the view mapping offset, if any, and marks it
/// most recently used.
func (cb *ControlBlock) LookupView(offset uint64) (*vm.Vad, bool) {
	cb.mu.Lock()
	v, ok := cb.views.Lookup(offset)
	cb.mu.Unlock()

	if ok {
		touchVad(v)
	}
	return v, ok
}

/// RemoveView drops the record of the view at offset from this control
/// block (the caller is responsible for unmapping the VAD itself) and
/// removes it from the LRU.
func (cb *ControlBlock) RemoveView(offset uint64) {
	cb.mu.Lock()
	v, ok := cb.views.Lookup(offset)
	if ok {
		cb.views.Remove(offset)
	}
	cb.mu.Unlock()

	if ok {
		removeVadFromLru(v)
	}
}

/// PurgeViews unmaps and forgets every view of the file, via sys. Only
/// meant to be called while dereferencing the owning FCB for the last
/// time, mirroring CcPurgeViewsForFile's "about to be wiped out"
/// precondition, though it tolerates being called on a live file too.
func (cb *ControlBlock) PurgeViews(sys *vm.AddressSpace) {
	for {
		cb.mu.Lock()
		start, v, ok := cb.views.First()
		if ok {
			cb.views.Remove(start)
		}
		cb.mu.Unlock()
		if !ok {
			return
		}

		removeVadFromLru(v)
		if err := sys.Release(v.Start); defs.Failed(err) {
			panic("cc: PurgeViews: view VAD not found at its own base")
		}
	}
}

/// Teardown releases the page cache entries tracked for this file, via
/// free for each cached PFN, mirroring MmDeinitializeSla. Call once
/// PurgeViews has already unmapped every view.
func (cb *ControlBlock) Teardown(free func(mem.PFN)) {
	cb.Pages.ForEach(func(_ uint64, pfn mem.PFN) {
		free(pfn)
	})
	cb.Pages = NewSla()
}
