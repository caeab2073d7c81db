package ob

import (
	"sync"

	"defs"
)

// indexToHandle/handleToIndex format handles as (index+1)<<2, matching
// ex/handtab.c's INDEX_TO_HANDLE/HANDLE_TO_INDEX: handle 0 stays
// invalid, and a handle misaligned to 4 is rejected outright, catching
// a caller using a raw index instead of a handle.
func indexToHandle(i int) defs.Handle { return defs.Handle((i + 1) << 2) }
func handleToIndex(h defs.Handle) int { return int(h>>2) - 1 }

func handleWellFormed(h defs.Handle) bool {
	return h != defs.InvalidHandleValue && h&0x3 == 0
}

/// KillFunc is invoked on a handle table slot's object before it is
/// removed, and may refuse the deletion by returning false. Mirrors
/// EX_KILL_HANDLE_ROUTINE.
type KillFunc func(object *Header, ctx any) bool

/// HandleTable is a per-process table mapping small integer handles to
/// referenced object headers, growing by GrowBy entries on demand up to
/// Limit (0 meaning no limit; GrowBy == 0 meaning fixed-size). Grounded
/// on boron/include/ex/handtab.h's EHANDLE_TABLE and
/// boron/source/ex/handtab.c (read in full): the growth/shrink-back
/// policy in ExpCreateHandle/ExpDeleteHandle carries over; the manual
/// pool-backed HandleMap array becomes a plain Go slice since Go's
/// allocator and GC already manage that storage for us.
type HandleTable struct {
	mu sync.Mutex

	slots       []*Header
	initialSize int
	growBy      int
	limit       int
	maxIndex    int
}

/// NewHandleTable creates a handle table with initialSize preallocated
/// slots, growing by growBy entries at a time (0 disables growth) up to
/// at most limit total slots (0 means unlimited).
func NewHandleTable(initialSize, growBy, limit int) *HandleTable {
	if limit != 0 && limit < initialSize {
		limit = initialSize
		growBy = 0
	}
	return &HandleTable{
		slots:       make([]*Header, initialSize),
		initialSize: initialSize,
		growBy:      growBy,
		limit:       limit,
		maxIndex:    -1,
	}
}

/// IsEmpty reports whether every slot is free.
func (t *HandleTable) IsEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.slots {
		if p != nil {
			return false
		}
	}
	return true
}

func (t *HandleTable) growLocked(newSize int) defs.Err {
	if newSize == len(t.slots) {
		return defs.Success
	}
	if t.limit != 0 && newSize > t.limit {
		newSize = t.limit
		if newSize <= len(t.slots) {
			return defs.InsufficientVaSpace
		}
	}
	grown := make([]*Header, newSize)
	copy(grown, t.slots)
	t.slots = grown
	return defs.Success
}

/// CreateHandle reserves the first free slot (growing the table if
/// needed and permitted) and stores obj in it.
func (t *HandleTable) CreateHandle(obj *Header) (defs.Handle, defs.Err) {
	if obj == nil {
		return defs.InvalidHandleValue, defs.InvalidParameter
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, p := range t.slots {
		if p == nil {
			t.slots[i] = obj
			if i > t.maxIndex {
				t.maxIndex = i
			}
			return indexToHandle(i), defs.Success
		}
	}

	if t.growBy == 0 {
		return defs.InvalidHandleValue, defs.InsufficientVaSpace
	}
	newIndex := len(t.slots)
	if err := t.growLocked(len(t.slots) + t.growBy); defs.Failed(err) {
		return defs.InvalidHandleValue, err
	}
	if newIndex >= len(t.slots) {
		return defs.InvalidHandleValue, defs.InsufficientVaSpace
	}
	t.slots[newIndex] = obj
	if newIndex > t.maxIndex {
		t.maxIndex = newIndex
	}
	return indexToHandle(newIndex), defs.Success
}

/// GetPointer resolves h to its object without taking a reference or
/// removing it from the table. Mirrors ExGetPointerFromHandle.
func (t *HandleTable) GetPointer(h defs.Handle) (*Header, defs.Err) {
	if !handleWellFormed(h) {
		return nil, defs.InvalidHandle
	}
	idx := handleToIndex(h)

	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.slots) || t.slots[idx] == nil {
		return nil, defs.InvalidHandle
	}
	return t.slots[idx], defs.Success
}

// shrinkLocked mirrors ExpDeleteHandle's "bite GrowBy entries off the
// handle map" loop: once the top of the table has emptied out, give
// back whole GrowBy-sized chunks as long as capacity stays above both
// the initial size and the highest live index.
func (t *HandleTable) shrinkLocked(idx int) {
	if t.maxIndex != idx {
		return
	}
	for t.maxIndex >= 0 && t.slots[t.maxIndex] == nil {
		t.maxIndex--
	}
	if t.growBy == 0 {
		return
	}
	newCap := len(t.slots)
	for t.maxIndex+1+t.growBy <= newCap &&
		t.initialSize+t.growBy <= newCap &&
		t.growBy < newCap {
		newCap -= t.growBy
	}
	if newCap != len(t.slots) {
		t.slots = t.slots[:newCap]
	}
}

/// DeleteHandle invokes kill on h's object; if kill refuses (returns
/// false), the handle is left in place and DeleteCanceled is returned.
func (t *HandleTable) DeleteHandle(h defs.Handle, kill KillFunc, ctx any) defs.Err {
	if !handleWellFormed(h) {
		return defs.InvalidHandle
	}
	idx := handleToIndex(h)

	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.slots) || t.slots[idx] == nil {
		return defs.InvalidHandle
	}
	if kill != nil && !kill(t.slots[idx], ctx) {
		return defs.DeleteCanceled
	}
	t.slots[idx] = nil
	t.shrinkLocked(idx)
	return defs.Success
}

/// ForEach calls fn for every live handle/object pair, in index order.
func (t *HandleTable) ForEach(fn func(defs.Handle, *Header)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, p := range t.slots {
		if p != nil {
			fn(indexToHandle(i), p)
		}
	}
}
