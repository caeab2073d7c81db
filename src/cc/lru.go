package cc

import (
	"container/list"
	"sync"

	"vm"
)

/// MaxViewCount bounds how many system-space views the cache manager
/// keeps mapped at once before PurgeOverLimit starts evicting the
/// least recently used. original_source's VIEW_CACHE_MAX_COUNT had no
/// concrete value in the retrieved sources; this default was chosen
/// rather than grounded.
const MaxViewCount = 256

var (
	lruMu   sync.Mutex
	lru     = list.New()
	lruElem = map[*vm.Vad]*list.Element{}
)

// touchVad moves vad to the most-recently-used end of the LRU,
// inserting it if it is not already present. Mirrors
// CcOnSystemSpaceVadUsed, which (unlike its "move to front" doc
// comment) actually appends to the tail; RemoveHeadOfViewCacheLru then
// evicts from the head, so the tail is MRU and the head is LRU.
func touchVad(vad *vm.Vad) {
	lruMu.Lock()
	defer lruMu.Unlock()

	if e, ok := lruElem[vad]; ok {
		lru.MoveToBack(e)
		return
	}
	lruElem[vad] = lru.PushBack(vad)
}

// removeVadFromLru drops vad from the LRU without unmapping it,
// mirroring CcRemoveVadFromViewCacheLru.
func removeVadFromLru(vad *vm.Vad) {
	lruMu.Lock()
	defer lruMu.Unlock()

	e, ok := lruElem[vad]
	if !ok {
		return
	}
	lru.Remove(e)
	delete(lruElem, vad)
}

// removeHeadOfLru pops the least recently used VAD for eviction,
// mirroring CcRemoveHeadOfViewCacheLru.
func removeHeadOfLru() (*vm.Vad, bool) {
	lruMu.Lock()
	defer lruMu.Unlock()

	e := lru.Front()
	if e == nil {
		return nil, false
	}
	lru.Remove(e)
	vad := e.Value.(*vm.Vad)
	delete(lruElem, vad)
	return vad, true
}

/// LruSize reports the current number of tracked views.
func LruSize() int {
	lruMu.Lock()
	defer lruMu.Unlock()
	return lru.Len()
}

/// PurgeOverLimit unmaps least-recently-used views from sys, via
/// cb.RemoveView bookkeeping, until at most MaxViewCount-leaveSpaceFor
/// views remain tracked. Mirrors CcPurgeViewsOverLimit; the original's
/// own comment flags this as racy against concurrent use of the victim
/// VAD, which this port inherits rather than fixes, since nothing calls
/// it concurrently with a view lookup in this simulation.
func PurgeOverLimit(sys *vm.AddressSpace, leaveSpaceFor int) {
	limit := MaxViewCount - leaveSpaceFor
	for LruSize() > limit {
		vad, ok := removeHeadOfLru()
		if !ok {
			return
		}
		sys.Release(vad.Start)
	}
}
