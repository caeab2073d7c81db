package io

import (
	"sync"

	"defs"
	"ob"
	"ustr"
)

/// FileObjectType is the object manager type shared by every open file,
/// pipe end, or device instance. Grounded on ob.h's OBJECT_TYPE and
/// fcb.h's IoCreateObject/IoDeleteObject pairing: opening/closing a
/// handle to a file object forwards to the owning FCB's dispatch table,
/// and deleting the file object drops the FCB's reference.
var FileObjectType = &ob.Type{
	Name:                "File",
	MaintainHandleCount: true,
	Open: func(body any, handleCount int, reason ob.OpenReason) defs.Err {
		fo := body.(*FileObject)
		if fo.Fcb.DispatchTable == nil || fo.Fcb.DispatchTable.Open == nil {
			return defs.Success
		}
		return fo.Fcb.DispatchTable.Open(fo.Fcb, fo.Fcb.OpenFlags)
	},
	Close: func(body any, handleCount int) {
		fo := body.(*FileObject)
		if fo.Fcb.DispatchTable == nil || fo.Fcb.DispatchTable.Close == nil {
			return
		}
		fo.Fcb.DispatchTable.Close(fo.Fcb, handleCount)
	},
	Delete: func(body any) {
		body.(*FileObject).Fcb.Dereference()
	},
}

/// FileObject is a file object: the per-handle state (its own seek
/// position, since two handles to the same FCB read/write
/// independently) wrapping a shared FCB. Grounded on fcb.h's FILE_OBJECT
/// forward declaration and the IO_READ_METHOD/IO_WRITE_METHOD notes
/// about the offset being supplied by the caller, not the FCB.
type FileObject struct {
	ob.Header

	Fcb *FCB

	mu     sync.Mutex
	offset uint64
}

/// NewFileObject creates a file object over fcb, taking a reference to
/// it, and links it into the object manager namespace under name if
/// parent is non-nil. The caller still owns fcb's original reference;
/// on failure it is returned untouched (the extra reference taken here
/// is rolled back).
func NewFileObject(fcb *FCB, name ustr.Ustr, parent *ob.Directory, flags ob.Flags) (*FileObject, defs.Err) {
	fcb.Reference()
	fo := &FileObject{Fcb: fcb}
	if err := ob.InitHeader(&fo.Header, FileObjectType, name, parent, flags, nil, fo); defs.Failed(err) {
		fcb.Dereference()
		return nil, err
	}
	return fo, defs.Success
}

/// Read reads from the current seek position (ignored for
/// non-seekable FCBs) and advances it by the number of bytes
/// transferred.
func (fo *FileObject) Read(buf []byte, flags RWFlags) Status {
	fo.mu.Lock()
	off := fo.offset
	fo.mu.Unlock()

	st := fo.Fcb.Read(off, buf, flags)
	if fo.Fcb.Seekable() && !defs.Failed(st.Err) {
		fo.mu.Lock()
		fo.offset += st.Information
		fo.mu.Unlock()
	}
	return st
}

/// Write writes at the current seek position and advances it by the
/// number of bytes transferred.
func (fo *FileObject) Write(buf []byte, flags RWFlags) Status {
	fo.mu.Lock()
	off := fo.offset
	fo.mu.Unlock()

	st := fo.Fcb.Write(off, buf, flags)
	if fo.Fcb.Seekable() && !defs.Failed(st.Err) {
		fo.mu.Lock()
		fo.offset += st.Information
		fo.mu.Unlock()
	}
	return st
}

// Seek origins, per common/ios.h's IO_SEEK_CUR/SET/END.
const (
	SeekCur = iota
	SeekSet
	SeekEnd
)

/// Seek repositions the file object's offset, returning the new
/// absolute offset. Only meaningful for seekable FCBs; callers should
/// check Fcb.Seekable() first, matching spec.md's "seekable" dispatch
/// flag.
func (fo *FileObject) Seek(origin int, delta int64) (uint64, defs.Err) {
	fo.mu.Lock()
	defer fo.mu.Unlock()

	var base uint64
	switch origin {
	case SeekSet:
		base = 0
	case SeekCur:
		base = fo.offset
	case SeekEnd:
		base = fo.Fcb.Length()
	default:
		return fo.offset, defs.InvalidParameter
	}

	signed := int64(base) + delta
	if signed < 0 {
		return fo.offset, defs.InvalidParameter
	}
	fo.offset = uint64(signed)
	return fo.offset, defs.Success
}

/// Offset returns the file object's current seek position.
func (fo *FileObject) Offset() uint64 {
	fo.mu.Lock()
	defer fo.mu.Unlock()
	return fo.offset
}
