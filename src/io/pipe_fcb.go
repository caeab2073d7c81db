package io

import (
	"defs"
	"pipe"
)

// pipeEnd is the FCB extension for a pipe file: which end (read or
// write) this particular FCB represents, and the shared ring buffer
// both ends reference. Grounded on spec.md section 4.10's "pipe object
// is a ring buffer... that supports blocking and non-blocking I/O and
// closes cleanly" — two FCBs (read end, write end) share one
// pipe.Pipe, mirroring two file descriptors over one kernel pipe.
type pipeEnd struct {
	p     *pipe.Pipe
	write bool
}

func toPipeFlags(flags RWFlags) pipe.Flags {
	if flags&Nonblock != 0 {
		return pipe.Nonblock
	}
	return 0
}

/// PipeDispatch is the dispatch table shared by every pipe FCB.
var PipeDispatch = &Dispatch{
	Name: "Pipe",
	Read: func(fcb *FCB, offset uint64, buf []byte, flags RWFlags) Status {
		end := fcb.Extension.(*pipeEnd)
		if end.write {
			return Status{Err: defs.InvalidParameter}
		}
		n, err := end.p.Read(buf, toPipeFlags(flags))
		return Status{Err: err, Information: uint64(n)}
	},
	Write: func(fcb *FCB, offset uint64, buf []byte, flags RWFlags) Status {
		end := fcb.Extension.(*pipeEnd)
		if !end.write {
			return Status{Err: defs.InvalidParameter}
		}
		n, err := end.p.Write(buf, toPipeFlags(flags))
		return Status{Err: err, Information: uint64(n)}
	},
	Seekable: func(fcb *FCB) bool { return false },
	Dereference: func(fcb *FCB) {
		end := fcb.Extension.(*pipeEnd)
		if end.write {
			end.p.CloseWriter()
		} else {
			end.p.CloseReader()
		}
	},
}

/// NewPipe creates a pipe with the given ring-buffer capacity and
/// returns an FCB for its read end and one for its write end, each
/// holding one reference to the shared pipe.Pipe.
func NewPipe(capacity int) (readFcb, writeFcb *FCB) {
	p := pipe.New(capacity)
	p.AddReader()
	p.AddWriter()
	readFcb = NewFCB(PipeDispatch, FileTypePipe, 0, &pipeEnd{p: p, write: false})
	writeFcb = NewFCB(PipeDispatch, FileTypePipe, 0, &pipeEnd{p: p, write: true})
	return readFcb, writeFcb
}
