// Package io implements Boron's I/O file-control-block layer: the FCB
// (per-file cached state shared by every open instance), the file
// object (the per-handle object manager body wrapping an FCB), and the
// dispatch table that routes operations to the driver that created the
// FCB.
//
// Grounded on boron/include/io/dispatch.h, io/fcb.h, and common/ios.h
// (all read in full) for the table shape and IO_STATUS_BLOCK layout;
// biscuit/src/fs/blk.go supplies the teacher's "a struct of typed
// fields dispatched on by the object's kind" texture, generalized here
// into an explicit vtable since Boron's dispatch table is itself part
// of the public contract (spec.md section 4.10), not an implementation
// detail the way blk.go's block type switch is.
package io

import "defs"

/// RWFlags are the per-call flags Read/Write accept, per spec.md
/// section 4.10 ("Read/write carry nonblock, locked-exclusive, paging,
/// terminate-on-newline, nonblock-unless-empty flags").
type RWFlags uint

const (
	Nonblock RWFlags = 1 << iota
	LockedExclusive
	Paging
	TerminateOnNewline
	NonblockUnlessEmpty
)

/// DispatchFlags are the table-wide flags from dispatch.h's
/// DISPATCH_FLAG_* enum.
type DispatchFlags uint

const (
	// FlagExclusive makes the FCB's rwlock behave like a mutex,
	// serializing Read and Write across threads instead of merely
	// guarding against a concurrent Resize.
	FlagExclusive DispatchFlags = 1 << iota
	// FlagDirectlyMappable means callers should use BackingMemory
	// instead of going through the page cache.
	FlagDirectlyMappable
	// FlagDirectlyOpenable means a file object attached to the object
	// manager namespace may be duplicated directly rather than parsed
	// as a directory when opened.
	FlagDirectlyOpenable
)

/// Status mirrors IO_STATUS_BLOCK: every dispatch call's result status
/// plus an operation-specific information count (bytes read/written,
/// next directory offset, and so on).
type Status struct {
	Err         defs.Err
	Information uint64
}

/// Dispatch is a driver's operation table, grounded on dispatch.h's
/// IO_DISPATCH_TABLE. Boron's only bundled drivers in this repo (pipe
/// and terminal, both non-hierarchical stream devices) exercise Open,
/// Close, Read, Write, Seekable, IoControl, Touch, Dereference and
/// GetAlignmentInfo; the remaining fields keep dispatch.h's full
/// surface for FCB types that need it (resize, backing memory) even
/// though nothing in this repo wires them yet.
//
// Directory/namespace operations from dispatch.h (Mount, CreateObject/
// DeleteObject, OpenDir/CloseDir/ReadDir/ParseDir, MakeFile/MakeDir/
// Unlink/RemoveDir/MoveEntry, ChangeMode/ChangeTime, MakeLink) are
// dropped rather than stubbed: they belong to a hierarchical
// file-system driver, and spec.md's non-goals explicitly put the
// on-disk file-system format out of scope (ext2fs is stubbed). Adding
// those fields with no driver to exercise them would be dead surface.
type Dispatch struct {
	Name  string
	Flags DispatchFlags

	// Open is called when a handle is created, opened, duplicated, or
	// inherited, mirroring IO_OPEN_METHOD.
	Open func(fcb *FCB, openFlags uint32) defs.Err
	// Close is called when the last handle referencing the FCB through
	// a given file object is closed, mirroring IO_CLOSE_METHOD.
	Close func(fcb *FCB, lastHandleCount int) defs.Err
	// Dereference is called once the FCB's own reference count reaches
	// zero, mirroring IO_DEREFERENCE_METHOD.
	Dereference func(fcb *FCB)

	// Seekable reports whether the file supports random access; stream
	// devices such as pipes and terminals return false.
	Seekable func(fcb *FCB) bool

	// Read and Write perform the transfer at offset (ignored by
	// non-seekable FCBs), returning the status and bytes transferred.
	Read  func(fcb *FCB, offset uint64, buf []byte, flags RWFlags) Status
	Write func(fcb *FCB, offset uint64, buf []byte, flags RWFlags) Status

	// Resize changes the FCB's reported length, requiring the rwlock
	// held exclusive.
	Resize func(fcb *FCB, newLength uint64) defs.Err

	// IoControl services an out-of-band device-specific request,
	// mirroring IO_IO_CONTROL_METHOD.
	IoControl func(fcb *FCB, code int, in []byte, out []byte) Status

	// Touch notifies the driver that the file was read or written, so
	// it can update its own access/modify timestamps.
	Touch func(fcb *FCB, isWrite bool) defs.Err

	// BackingMemory returns a direct pointer/length pair for a
	// DirectlyMappable FCB instead of going through the page cache.
	BackingMemory func(fcb *FCB) ([]byte, defs.Err)

	// GetAlignmentInfo returns the block-size alignment required of
	// Read/Write offsets and lengths; 1 means byte-granular. A nil
	// field is treated as 1 by FCB.AlignmentInfo.
	GetAlignmentInfo func(fcb *FCB) uint
}
