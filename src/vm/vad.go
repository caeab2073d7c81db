// Package vm implements Mm's per-process side: virtual address
// descriptors, the address space they live in, the page fault handler,
// address probing, and MDLs. The physical-page allocator lives in
// package mem; vm consumes it but never owns PFN-list bookkeeping of
// its own.
package vm

import (
	"defs"
	"mem"
)

/// MappingType distinguishes what backs a VAD's pages.
// Grounded on biscuit/src/vm/as.go's mtype_t (VANON/VFILE/VSANON).
type MappingType int

const (
	/// Anon is a private, demand-zeroed anonymous mapping.
	Anon MappingType = iota
	/// File is a mapping backed by an object's cached pages, private
	/// (copy-on-write) unless Shared is also set.
	File
	/// SharedAnon is an anonymous mapping shared between processes (or
	/// guaranteed mapped, for a page never subject to lazy COW).
	SharedAnon
)

/// Protection is the PTE_U/PTE_W-equivalent permission mask a VAD
/// carries; Protection(0) marks a guard region that can never be
/// faulted in, matching as.go's "perms == 0 means no mapping can go
/// here".
type Protection uint

const (
	ProtRead Protection = 1 << iota
	ProtWrite
	ProtExecute
)

/// AllocType selects ReserveVirtualMemory's behavior, per spec.md
/// section 4.7 and SPEC_FULL.md section 6's OSAllocateVirtualMemory.
type AllocType int

const (
	AllocReserve AllocType = 1 << iota
	AllocCommit
	AllocTopDown
)

/// FreeType selects OSFreeVirtualMemory's behavior.
type FreeType int

const (
	FreeRelease FreeType = iota
	FreeDecommit
)

/// PageBackingSource supplies file-backed pages to the fault handler on
/// demand, implemented by io's FCB layer. vm depends only on this
/// narrow interface to avoid importing io.
type PageBackingSource interface {
	// Filepage returns the PFN backing the page at byte offset off,
	// reading it in if necessary.
	Filepage(off uint64) (mem.PFN, defs.Err)

	// MarkDirty records that the page at byte offset off was just
	// handed out with write access and may be modified with no further
	// fault to catch it, so the owning cache's modified-page tracking
	// needs to consider it dirty starting now.
	MarkDirty(off uint64)
}

/// Vad is one virtual address descriptor: a reserved region of a
/// process's address space. Grounded on spec.md section 3's VAD entry
/// and biscuit/src/vm/as.go's Vminfo_t.
type Vad struct {
	Start      uintptr
	Pages      int
	Mtype      MappingType
	Perms      Protection
	Committed  bool
	Shared     bool
	FileOffset uint64
	Source     PageBackingSource
}

/// End returns the exclusive end virtual address of the VAD.
func (v *Vad) End() uintptr {
	return v.Start + uintptr(v.Pages)*mem.PageSize
}

/// Contains reports whether va falls within the VAD's range.
func (v *Vad) Contains(va uintptr) bool {
	return va >= v.Start && va < v.End()
}
