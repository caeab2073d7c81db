package cc

import "mem"

// Sla is the cache manager's sparse linear array: a mapping from a
// file's page index to the PFN currently caching that page, with two
// sentinel "entry" values distinguishing "no data yet" from "out of
// memory assigning one". Grounded on boron/include/mm/sla.h's MMSLA,
// whose Direct[64]-plus-four-level-indirection layout exists solely
// because C has no sparse associative container to reach for; a Go map
// already gives the same "don't pay for untouched indices" property in
// one hop instead of an indirection chain, so this is a plain
// mutex-guarded map[uint64]mem.PFN rather than a ported radix tree.
type Sla struct {
	entries map[uint64]mem.PFN
}

/// NoData is returned by LookupEntry for an index with nothing assigned.
const NoData mem.PFN = ^mem.PFN(0)

/// OutOfMemory is returned by AssignEntry when no page could be
/// allocated to back the new entry.
const OutOfMemory mem.PFN = ^mem.PFN(0) - 1

/// NewSla creates an empty sparse array.
func NewSla() *Sla {
	return &Sla{entries: make(map[uint64]mem.PFN)}
}

/// LookupEntry returns the PFN cached at index, or NoData if unassigned.
func (s *Sla) LookupEntry(index uint64) mem.PFN {
	pfn, ok := s.entries[index]
	if !ok {
		return NoData
	}
	return pfn
}

/// AssignEntry records that index is now cached by pfn, overwriting
/// any previous assignment, and returns the value now stored.
func (s *Sla) AssignEntry(index uint64, pfn mem.PFN) mem.PFN {
	s.entries[index] = pfn
	return pfn
}

/// RemoveEntry clears any assignment at index.
func (s *Sla) RemoveEntry(index uint64) {
	delete(s.entries, index)
}

/// IndexOf finds the page index pfn is cached under, for the
/// modified-page writer to recover a byte offset from just a PFN. The
/// reverse scan is fine at the scale this sparse array holds entries
/// for (one file's resident pages, not the whole system's), unlike the
/// forward LookupEntry path every fault takes.
func (s *Sla) IndexOf(pfn mem.PFN) (uint64, bool) {
	for idx, p := range s.entries {
		if p == pfn {
			return idx, true
		}
	}
	return 0, false
}

/// ForEach calls fn for every assigned index/PFN pair, in unspecified
/// order, mirroring MmDeinitializeSla's free-every-entry walk.
func (s *Sla) ForEach(fn func(index uint64, pfn mem.PFN)) {
	for idx, pfn := range s.entries {
		fn(idx, pfn)
	}
}

/// Len reports the number of assigned entries.
func (s *Sla) Len() int {
	return len(s.entries)
}
