package io

import (
	"testing"

	"defs"
	"ob"
	"ustr"
)

// memFile backs an in-memory, seekable FCB for FileObject tests.
type memFile struct {
	data []byte
}

var memDispatch = &Dispatch{
	Name:     "MemFile",
	Seekable: func(fcb *FCB) bool { return true },
	Read: func(fcb *FCB, offset uint64, buf []byte, flags RWFlags) Status {
		m := fcb.Extension.(*memFile)
		if offset >= uint64(len(m.data)) {
			return Status{Err: defs.EndOfFile}
		}
		n := copy(buf, m.data[offset:])
		return Status{Err: defs.Success, Information: uint64(n)}
	},
	Write: func(fcb *FCB, offset uint64, buf []byte, flags RWFlags) Status {
		m := fcb.Extension.(*memFile)
		end := offset + uint64(len(buf))
		if end > uint64(len(m.data)) {
			grown := make([]byte, end)
			copy(grown, m.data)
			m.data = grown
		}
		n := copy(m.data[offset:], buf)
		return Status{Err: defs.Success, Information: uint64(n)}
	},
}

func newMemFileObject(t *testing.T, initial string) *FileObject {
	t.Helper()
	fcb := NewFCB(memDispatch, FileTypeRegular, uint64(len(initial)), &memFile{data: []byte(initial)})
	fo, err := NewFileObject(fcb, ustr.MkUstr(), nil, 0)
	if defs.Failed(err) {
		t.Fatalf("NewFileObject: %v", err)
	}
	return fo
}

func TestFileObjectReadWriteAdvancesOffset(t *testing.T) {
	fo := newMemFileObject(t, "hello world")

	buf := make([]byte, 5)
	st := fo.Read(buf, 0)
	if st.Err != defs.Success || string(buf) != "hello" {
		t.Fatalf("first read = %+v %q", st, buf)
	}
	if fo.Offset() != 5 {
		t.Fatalf("Offset() = %d, want 5", fo.Offset())
	}

	buf2 := make([]byte, 6)
	st = fo.Read(buf2, 0)
	if st.Err != defs.Success || string(buf2) != " world" {
		t.Fatalf("second read = %+v %q", st, buf2)
	}
}

func TestFileObjectSeek(t *testing.T) {
	fo := newMemFileObject(t, "0123456789")

	if off, err := fo.Seek(SeekSet, 3); err != defs.Success || off != 3 {
		t.Fatalf("Seek(Set,3) = %d, %v", off, err)
	}
	buf := make([]byte, 2)
	fo.Read(buf, 0)
	if string(buf) != "34" {
		t.Fatalf("read after seek = %q, want 34", buf)
	}

	if off, err := fo.Seek(SeekEnd, 0); err != defs.Success || off != 10 {
		t.Fatalf("Seek(End,0) = %d, %v, want 10", off, err)
	}
	if _, err := fo.Seek(SeekSet, -1); err != defs.InvalidParameter {
		t.Fatalf("Seek to negative offset = %v, want InvalidParameter", err)
	}
}

func TestFileObjectDeleteDereferencesFCB(t *testing.T) {
	torn := false
	dt := &Dispatch{
		Seekable:    func(fcb *FCB) bool { return true },
		Dereference: func(fcb *FCB) { torn = true },
	}
	fcb := NewFCB(dt, FileTypeRegular, 0, nil)
	fo, err := NewFileObject(fcb, ustr.MkUstr(), nil, 0)
	if defs.Failed(err) {
		t.Fatalf("NewFileObject: %v", err)
	}
	fcb.Dereference() // drop the caller's own reference; FileObject still holds one
	if torn {
		t.Fatalf("FCB torn down while FileObject still references it")
	}

	table := ob.NewHandleTable(4, 4, 0)
	h, err := ob.InsertObject(table, &fo.Header, ob.CreateHandle)
	if defs.Failed(err) {
		t.Fatalf("InsertObject: %v", err)
	}
	// Hand off the construction-time reference to the handle, leaving it
	// the file object's sole owner, so closing the handle reaches zero.
	fo.Header.Dereference()

	if err := ob.Close(table, h); defs.Failed(err) {
		t.Fatalf("Close: %v", err)
	}
	if !torn {
		t.Fatalf("FCB not torn down after the file object's last handle closed")
	}
}
