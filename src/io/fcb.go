package io

import (
	"sync"
	"sync/atomic"

	"cc"
	"defs"
	"ke"
	"mem"
)

/// FileType enumerates the kinds of FCB this repo creates. Grounded on
/// fcb.h's FileType field; narrowed to the drivers this repo actually
/// bundles (no on-disk file system, per spec.md's non-goals).
type FileType int

const (
	FileTypeRegular FileType = iota
	FileTypeDevice
	FileTypePipe
)

/// FCB is the file control block: the kernel's representation of an
/// open file, shared by every file object that refers to it. Grounded
/// on io/fcb.h's FCB struct (DispatchTable, RwLock, PageCache,
/// ViewCache, FileType, Flags, FileLength, Extension), with ViewCache
/// folded into cc.ControlBlock since that type already carries both
/// the page cache and the view tree (mm/cache.h and mm/sla.h describe
/// the same CCB the FCB embeds).
type FCB struct {
	RwLock ke.RwLock

	DispatchTable *Dispatch
	PageCache     cc.ControlBlock

	// Phys backs Filepage's page-in path; nil for an FCB never mapped
	// by vm.AddressSpace.Reserve(vm.File, ...) (a pipe or terminal FCB,
	// say), which never calls Filepage in the first place.
	Phys *mem.Database

	FileType FileType
	OpenFlags uint32

	lengthMu sync.Mutex
	length   uint64

	// Extension is driver-private data appended to the FCB, standing in
	// for fcb.h's flexible ExtensionSize/Extension[] array.
	Extension any

	refCount int32
}

/// NewFCB allocates an FCB with one reference, mirroring IoAllocateFcb.
func NewFCB(dt *Dispatch, ftype FileType, length uint64, extension any) *FCB {
	f := &FCB{
		DispatchTable: dt,
		FileType:      ftype,
		length:        length,
		Extension:     extension,
		refCount:      1,
	}
	f.RwLock.InitRwLock()
	f.PageCache.InitControlBlock()
	return f
}

/// Length returns the FCB's current reported file length.
func (f *FCB) Length() uint64 {
	f.lengthMu.Lock()
	defer f.lengthMu.Unlock()
	return f.length
}

/// SetLength updates the FCB's reported length. Callers resizing a file
/// must hold RwLock exclusive first, per spec.md section 4.10.
func (f *FCB) SetLength(n uint64) {
	f.lengthMu.Lock()
	f.length = n
	f.lengthMu.Unlock()
}

/// Reference increments the FCB's reference count, mirroring
/// IoReferenceFcb.
func (f *FCB) Reference() {
	atomic.AddInt32(&f.refCount, 1)
}

/// Dereference decrements the FCB's reference count and, once it
/// reaches zero, invokes the dispatch table's Dereference callback,
/// mirroring IoDereferenceFcb's "destroyed when its last reference
/// drops" contract from spec.md section 3.
func (f *FCB) Dereference() {
	c := atomic.AddInt32(&f.refCount, -1)
	if c < 0 {
		panic("io: Dereference on an FCB with no references")
	}
	if c != 0 {
		return
	}
	if f.Phys != nil {
		// Teardown drops the page cache's own reference on each cached
		// page; Release only actually frees it once no VAD still maps
		// it too, rather than yanking a live mapping's backing page out
		// from under it.
		f.PageCache.Teardown(func(pfn mem.PFN) {
			f.Phys.Release(0, pfn)
		})
	}
	if f.DispatchTable != nil && f.DispatchTable.Dereference != nil {
		f.DispatchTable.Dereference(f)
	}
}

/// Seekable reports whether the FCB supports random access, per
/// IO_SEEKABLE_METHOD; an FCB with no Seekable method is treated as
/// non-seekable.
func (f *FCB) Seekable() bool {
	if f.DispatchTable == nil || f.DispatchTable.Seekable == nil {
		return false
	}
	return f.DispatchTable.Seekable(f)
}

/// AlignmentInfo returns the dispatch table's required Read/Write
/// alignment, defaulting to 1 (byte-granular) when unset, per
/// dispatch.h's "If this method isn't specified, the alignment is
/// presumed to be 1 byte" note.
func (f *FCB) AlignmentInfo() uint {
	if f.DispatchTable == nil || f.DispatchTable.GetAlignmentInfo == nil {
		return 1
	}
	return f.DispatchTable.GetAlignmentInfo(f)
}

/// Read performs a read at offset through the dispatch table, taking
/// RwLock shared for the duration unless FlagExclusive makes it behave
/// as a mutex (still acquired shared here; the difference only matters
/// to callers that also take it exclusive to resize).
func (f *FCB) Read(offset uint64, buf []byte, flags RWFlags) Status {
	if f.DispatchTable == nil || f.DispatchTable.Read == nil {
		return Status{Err: defs.Unimplemented}
	}
	f.RwLock.AcquireShared()
	defer f.RwLock.ReleaseShared()
	return f.DispatchTable.Read(f, offset, buf, flags)
}

/// Write performs a write at offset through the dispatch table,
/// symmetric with Read.
func (f *FCB) Write(offset uint64, buf []byte, flags RWFlags) Status {
	if f.DispatchTable == nil || f.DispatchTable.Write == nil {
		return Status{Err: defs.Unimplemented}
	}
	f.RwLock.AcquireShared()
	defer f.RwLock.ReleaseShared()
	return f.DispatchTable.Write(f, offset, buf, flags)
}

/// Resize changes the FCB's length through the dispatch table, taking
/// RwLock exclusive per spec.md section 4.10 ("file expansion requires
/// it exclusive").
func (f *FCB) Resize(newLength uint64) defs.Err {
	if f.DispatchTable == nil || f.DispatchTable.Resize == nil {
		return defs.Unimplemented
	}
	f.RwLock.AcquireExclusive()
	defer f.RwLock.ReleaseExclusive()
	return f.DispatchTable.Resize(f, newLength)
}

/// Touch notifies the driver of an access or modification, per
/// IO_TOUCH_METHOD.
func (f *FCB) Touch(isWrite bool) defs.Err {
	if f.DispatchTable == nil || f.DispatchTable.Touch == nil {
		return defs.Success
	}
	return f.DispatchTable.Touch(f, isWrite)
}

/// IoControl issues a device-specific control request, per
/// IO_IO_CONTROL_METHOD.
func (f *FCB) IoControl(code int, in []byte, out []byte) Status {
	if f.DispatchTable == nil || f.DispatchTable.IoControl == nil {
		return Status{Err: defs.Unimplemented}
	}
	return f.DispatchTable.IoControl(f, code, in, out)
}

/// Filepage implements vm.PageBackingSource for a file-mapped VAD:
/// it returns the PFN already caching the page at byte offset off, or
/// reads it in through the dispatch table and caches it on first
/// access. This is the concrete backing vm's Fault (resolveFile) calls
/// through Vad.Source, resolving spec.md section 4.8's file-backed
/// fault path; it runs synchronously (no asynchronous disk completion
/// to wait on, since this tree's Dispatch.Read is itself synchronous),
/// so a caller here never sees defs.MoreProcessingRequired.
func (f *FCB) Filepage(off uint64) (mem.PFN, defs.Err) {
	idx := off / mem.PageSize
	if pfn := f.PageCache.Pages.LookupEntry(idx); pfn != cc.NoData {
		return pfn, defs.Success
	}
	if f.Phys == nil {
		return 0, defs.NoMemory
	}
	pfn, _, ok := f.Phys.AllocPage(0)
	if !ok {
		return 0, defs.NoMemory
	}
	buf := f.Phys.Dmap(pfn)
	for i := range buf {
		buf[i] = 0
	}
	if f.DispatchTable != nil && f.DispatchTable.Read != nil {
		st := f.DispatchTable.Read(f, idx*mem.PageSize, buf, 0)
		if defs.Failed(st.Err) {
			f.Phys.FreePhysicalPage(0, pfn)
			return 0, st.Err
		}
	}
	f.PageCache.Pages.AssignEntry(idx, pfn)
	f.Phys.EnterCache(pfn, f)
	return pfn, defs.Success
}

/// MarkDirty implements vm.PageBackingSource: it records that the
/// cached page at byte offset off was just handed a writable mapping
/// with no further fault to catch the actual store, so it must be
/// treated as dirty from now until the modified-page writer flushes
/// it. A page with nothing cached at off yet (MarkDirty raced ahead of
/// the Filepage call that would cache it) is silently ignored; the
/// fault that eventually does cache it always goes through Filepage's
/// own EnterCache/MarkDirty-on-fault path instead.
func (f *FCB) MarkDirty(off uint64) {
	idx := off / mem.PageSize
	pfn := f.PageCache.Pages.LookupEntry(idx)
	if pfn == cc.NoData || f.Phys == nil {
		return
	}
	f.PageCache.MarkModified(idx)
	f.Phys.ToModified(pfn)
}

/// WritePage implements mem.Owner for the modified-page writer: it
/// writes pfn's contents back through the dispatch table at the file
/// offset the page cache has it indexed under, then clears the
/// modified range covering it. Grounded on spec.md section 4.5's
/// modified-page writer issuing "a write through the owning FCB's
/// dispatch".
func (f *FCB) WritePage(pfn mem.PFN) defs.Err {
	idx, ok := f.PageCache.Pages.IndexOf(pfn)
	if !ok {
		return defs.Success
	}
	if f.DispatchTable == nil || f.DispatchTable.Write == nil || f.Phys == nil {
		return defs.Success
	}
	buf := f.Phys.Dmap(pfn)
	st := f.DispatchTable.Write(f, idx*mem.PageSize, buf, 0)
	if defs.Failed(st.Err) {
		return st.Err
	}
	f.PageCache.ClearModified()
	return defs.Success
}
