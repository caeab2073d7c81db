// Package mem implements the PFN database: the physical page allocator,
// its free/zeroed/standby/modified/transition lists, and the
// modified-page writer. Grounded on biscuit/src/mem/mem.go's
// Physmem_t (Refaddr/Refup/Refdown/_phys_new/_phys_insert, the
// per-CPU free-list batching in pcpuphys_t) generalized to the five
// page-list states spec.md section 4.5 names, which the teacher's
// simpler always-free-or-referenced model does not have.
package mem

import (
	"sync"
	"sync/atomic"

	"arch"
	"defs"
)

/// PageSize is the size of a single page in bytes.
const PageSize = 1 << PageShift

/// PageShift is the base-2 exponent of PageSize.
const PageShift = 12

/// PFN is a page frame number: an index into the physical-page database.
type PFN uint64

/// NoPFN is the invalid/sentinel PFN value.
const NoPFN PFN = ^PFN(0)

/// PageState names the list a PFN entry currently lives on.
type PageState int

const (
	/// PageFree pages hold stale contents and may be allocated directly.
	PageFree PageState = iota
	/// PageZeroed pages were cleared by the zeroing worker and may be
	/// handed to callers that need a zero-filled page without waiting.
	PageZeroed
	/// PageStandby pages are unmapped cached file pages, clean,
	/// reclaimable without writeback.
	PageStandby
	/// PageModified pages are unmapped cached file pages dirtied since
	/// their last writeback; the modified-page writer must flush them
	/// before they can move to standby.
	PageModified
	/// PageTransition pages are in flight between states (e.g. a
	/// just-started writeback) and may not be reused until the
	/// transition completes.
	PageTransition
	/// PageActive pages are referenced by at least one VAD or kernel
	/// consumer and are off every free-ish list.
	PageActive
)

/// Owner lets a PFN owned by a cache identify itself for writeback when
/// the modified-page writer pops it off the modified list. Io's FCB
/// dispatch implements this; mem does not import io to avoid a cycle.
type Owner interface {
	WritePage(pfn PFN) defs.Err
}

type pfnEntry struct {
	refcnt int32
	state  PageState
	prev   PFN
	next   PFN
	owner  Owner
}

const noLink PFN = NoPFN

type freeList struct {
	mu   sync.Mutex
	head PFN
	tail PFN
	n    int
}

/// Database is the PFN database for one system: a fixed array of PFN
/// entries indexed from a base PFN, plus the five list heads and a
/// per-CPU batch cache mirroring the teacher's pcpuphys_t.
type Database struct {
	base    PFN
	entries []pfnEntry

	free     freeList
	zeroed   freeList
	standby  freeList
	modified freeList

	percpu [arch.MaxCPUs]percpuFree

	modWriterWake chan struct{}

	dmapMu sync.Mutex
	dmap   [][]byte
}

type percpuFree struct {
	mu   sync.Mutex
	free []PFN
}

const percpuBatchMax = 64

/// NewDatabase creates a PFN database covering npages pages starting at
/// base, with every page initially on the free list. This is the
/// bootstrap step spec.md section 4.5 calls laying the database out at
/// a fixed virtual base before any other Mm service runs; the caller is
/// expected to have already reserved the virtual range for it.
func NewDatabase(base PFN, npages int) *Database {
	d := &Database{
		base:    base,
		entries: make([]pfnEntry, npages),
		dmap:    make([][]byte, npages),
	}
	d.free.head, d.free.tail = NoPFN, NoPFN
	d.zeroed.head, d.zeroed.tail = NoPFN, NoPFN
	d.standby.head, d.standby.tail = NoPFN, NoPFN
	d.modified.head, d.modified.tail = NoPFN, NoPFN
	d.modWriterWake = make(chan struct{}, 1)
	for i := range d.entries {
		d.entries[i].prev, d.entries[i].next = noLink, noLink
	}
	for i := npages - 1; i >= 0; i-- {
		pfn := base + PFN(i)
		d.pushFront(&d.free, pfn, PageFree)
	}
	return d
}

func (d *Database) entry(pfn PFN) *pfnEntry {
	return &d.entries[pfn-d.base]
}

func (l *freeList) pushFrontLocked(d *Database, pfn PFN, state PageState) {
	e := d.entry(pfn)
	e.state = state
	e.prev = NoPFN
	e.next = l.head
	if l.head != NoPFN {
		d.entry(l.head).prev = pfn
	} else {
		l.tail = pfn
	}
	l.head = pfn
	l.n++
}

func (l *freeList) pushBackLocked(d *Database, pfn PFN, state PageState) {
	e := d.entry(pfn)
	e.state = state
	e.next = NoPFN
	e.prev = l.tail
	if l.tail != NoPFN {
		d.entry(l.tail).next = pfn
	} else {
		l.head = pfn
	}
	l.tail = pfn
	l.n++
}

func (l *freeList) popFrontLocked(d *Database) (PFN, bool) {
	if l.head == NoPFN {
		return NoPFN, false
	}
	pfn := l.head
	e := d.entry(pfn)
	l.head = e.next
	if l.head != NoPFN {
		d.entry(l.head).prev = NoPFN
	} else {
		l.tail = NoPFN
	}
	e.prev, e.next = noLink, noLink
	l.n--
	return pfn, true
}

func (l *freeList) removeLocked(d *Database, pfn PFN) {
	e := d.entry(pfn)
	if e.prev != NoPFN {
		d.entry(e.prev).next = e.next
	} else {
		l.head = e.next
	}
	if e.next != NoPFN {
		d.entry(e.next).prev = e.prev
	} else {
		l.tail = e.prev
	}
	e.prev, e.next = noLink, noLink
	l.n--
}

func (d *Database) pushFront(l *freeList, pfn PFN, state PageState) {
	l.mu.Lock()
	l.pushFrontLocked(d, pfn, state)
	l.mu.Unlock()
}

func (d *Database) pushBack(l *freeList, pfn PFN, state PageState) {
	l.mu.Lock()
	l.pushBackLocked(d, pfn, state)
	l.mu.Unlock()
}

/// AllocPage removes a page from the free or zeroed list, preferring a
/// per-CPU batch, and returns it with a reference count of 1. zeroed
/// reports whether the returned page is guaranteed zero-filled.
func (d *Database) AllocPage(cpu int) (pfn PFN, zeroed bool, ok bool) {
	pc := &d.percpu[cpu]
	pc.mu.Lock()
	if len(pc.free) > 0 {
		pfn = pc.free[len(pc.free)-1]
		pc.free = pc.free[:len(pc.free)-1]
		pc.mu.Unlock()
		d.entry(pfn).state = PageActive
		d.entry(pfn).refcnt = 1
		return pfn, false, true
	}
	pc.mu.Unlock()

	if p, got := d.zeroed.popFront(d); got {
		d.entry(p).state = PageActive
		d.entry(p).refcnt = 1
		return p, true, true
	}
	if p, got := d.free.popFront(d); got {
		d.entry(p).state = PageActive
		d.entry(p).refcnt = 1
		return p, false, true
	}
	notifyOom(1)
	return NoPFN, false, false
}

func (l *freeList) popFront(d *Database) (PFN, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.popFrontLocked(d)
}

/// FreePhysicalPage returns pfn to the free list (per-CPU batch first,
/// falling back to the global list once the batch is full), clearing
/// its owner.
func (d *Database) FreePhysicalPage(cpu int, pfn PFN) {
	e := d.entry(pfn)
	e.owner = nil
	e.state = PageFree

	pc := &d.percpu[cpu]
	pc.mu.Lock()
	if len(pc.free) < percpuBatchMax {
		pc.free = append(pc.free, pfn)
		pc.mu.Unlock()
		return
	}
	pc.mu.Unlock()
	d.pushBack(&d.free, pfn, PageFree)
}

/// AddReference increments pfn's reference count.
func (d *Database) AddReference(pfn PFN) int32 {
	c := atomic.AddInt32(&d.entry(pfn).refcnt, 1)
	if c <= 0 {
		panic("mem: AddReference on a freed page")
	}
	return c
}

/// Release decrements pfn's reference count and returns the page to the
/// free list once it reaches zero, reporting whether that happened.
func (d *Database) Release(cpu int, pfn PFN) bool {
	c := atomic.AddInt32(&d.entry(pfn).refcnt, -1)
	if c < 0 {
		panic("mem: Release on a page with no references")
	}
	if c == 0 {
		d.FreePhysicalPage(cpu, pfn)
		return true
	}
	return false
}

/// Refcnt returns pfn's current reference count.
func (d *Database) Refcnt(pfn PFN) int32 {
	return atomic.LoadInt32(&d.entry(pfn).refcnt)
}

/// State returns pfn's current list membership.
func (d *Database) State(pfn PFN) PageState {
	return d.entry(pfn).state
}

/// EnterCache moves pfn onto the standby list with the given owner once
/// its last virtual mapping is released, per spec.md section 4.5: a
/// cached page with no mappings goes to standby unless dirty, in which
/// case ToModified should be used instead.
func (d *Database) EnterCache(pfn PFN, owner Owner) {
	d.entry(pfn).owner = owner
	d.pushBack(&d.standby, pfn, PageStandby)
}

/// ToModified moves pfn from standby to the modified list and wakes the
/// modified-page writer.
func (d *Database) ToModified(pfn PFN) {
	d.standby.mu.Lock()
	if d.entry(pfn).state == PageStandby {
		d.standby.removeLocked(d, pfn)
	}
	d.standby.mu.Unlock()
	d.pushBack(&d.modified, pfn, PageModified)
	select {
	case d.modWriterWake <- struct{}{}:
	default:
	}
}

/// ReclaimStandby pops the least recently cached standby page for reuse
/// by the allocator, e.g. under memory pressure.
func (d *Database) ReclaimStandby() (PFN, bool) {
	return d.standby.popFront(d)
}

/// RunModifiedPageWriter pops pages off the modified list, asks their
/// owner to write them back, and moves each to standby on success. It
/// blocks until stop is closed. Grounded on spec.md section 4.5's
/// "modified-page writer...pops the modified list, issues a write
/// through the owning FCB's dispatch, and on completion moves the page
/// to the standby list or frees it".
func (d *Database) RunModifiedPageWriter(stop <-chan struct{}) {
	for {
		pfn, ok := d.modified.popFront(d)
		if !ok {
			select {
			case <-d.modWriterWake:
				continue
			case <-stop:
				return
			}
		}
		e := d.entry(pfn)
		e.state = PageTransition
		owner := e.owner
		var err defs.Err
		if owner != nil {
			err = owner.WritePage(pfn)
		}
		if defs.Failed(err) {
			// Writeback failed: put it back on modified rather than
			// silently dropping dirty data.
			d.pushBack(&d.modified, pfn, PageModified)
			continue
		}
		if d.Refcnt(pfn) == 0 {
			d.FreePhysicalPage(0, pfn)
		} else {
			d.EnterCache(pfn, owner)
		}
	}
}

/// RunZeroingWorker moves free pages to the zeroed list until stop is
/// closed, matching spec.md's "a zeroing worker (low priority) moves
/// free pages to zeroed when idle". zero is called with the page's
/// index to actually clear its backing memory; mem has no address-space
/// view of its own pages, so the caller (vm, via its dmap) supplies it.
func (d *Database) RunZeroingWorker(stop <-chan struct{}, zero func(PFN)) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		pfn, ok := d.free.popFront(d)
		if !ok {
			select {
			case <-stop:
				return
			default:
				continue
			}
		}
		zero(pfn)
		d.pushBack(&d.zeroed, pfn, PageZeroed)
	}
}

/// Dmap returns a direct-mapped byte slice backing pfn's physical page
/// contents, allocating it lazily on first use. Grounded on
/// biscuit/src/mem/dmap.go's Physmem.Dmap, which returns a slice over
/// the kernel's permanent mapping of all physical memory; lacking a
/// real direct map, this tree keeps one backing []byte per PFN instead.
func (d *Database) Dmap(pfn PFN) []byte {
	idx := pfn - d.base
	d.dmapMu.Lock()
	defer d.dmapMu.Unlock()
	if d.dmap[idx] == nil {
		d.dmap[idx] = make([]byte, PageSize)
	}
	return d.dmap[idx]
}

/// Stats returns a snapshot of each list's length, for diagnostics.
func (d *Database) Stats() (free, zeroed, standby, modified int) {
	d.free.mu.Lock()
	free = d.free.n
	d.free.mu.Unlock()
	d.zeroed.mu.Lock()
	zeroed = d.zeroed.n
	d.zeroed.mu.Unlock()
	d.standby.mu.Lock()
	standby = d.standby.n
	d.standby.mu.Unlock()
	d.modified.mu.Lock()
	modified = d.modified.n
	d.modified.mu.Unlock()
	return
}
