// Package pipe implements the pipe object: a circbuf.Buffer ring buffer
// guarded by a mutex and two dispatcher events (space-available,
// data-available), per spec.md section 4.10.
//
// Grounded on biscuit/src/circbuf/circbuf.go's caller-side pattern (a
// raw ring buffer wrapped by the file-descriptor layer) and on
// ke.Event/ke.Mutex for the blocking/non-blocking read-write contract;
// the teacher has no standalone pipe type of its own (its pipe support
// lives inline in fs/fs.go, not part of the retrieved file set), so
// this package follows spec.md section 4.10 and scenario S3 directly.
package pipe

import (
	"sync"

	"circbuf"
	"defs"
	"limits"
)

/// Pipe is a unidirectional byte stream with one ring-buffer backing
/// store, shared by readers and writers referencing the same FCB.
type Pipe struct {
	mu   sync.Mutex
	buf  circbuf.Buffer
	rd   int // open reader count
	wr   int // open writer count

	dataAvailable chan struct{}
	spaceAvailable chan struct{}

	slotCharged bool // whether New() took a limits.Sys.Pipes slot
}

/// New creates a pipe with the given ring-buffer capacity in bytes.
/// It charges one slot against limits.Sys.Pipes; exhaustion is a soft
/// limit here (the pipe is still created) since this layer has no
/// error channel back to its FCB-level caller, but the slot is given
/// back once both ends close so the count stays meaningful.
func New(capacity int) *Pipe {
	p := &Pipe{
		dataAvailable:  make(chan struct{}, 1),
		spaceAvailable: make(chan struct{}, 1),
	}
	p.slotCharged = limits.Sys.Pipes.Take()
	p.buf.Init(capacity)
	return p
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

/// AddReader / AddWriter register an open end; CloseReader / CloseWriter
/// release one, waking anyone blocked so they observe end-of-stream.
func (p *Pipe) AddReader() {
	p.mu.Lock()
	p.rd++
	p.mu.Unlock()
}

func (p *Pipe) AddWriter() {
	p.mu.Lock()
	p.wr++
	p.mu.Unlock()
}

func (p *Pipe) CloseReader() {
	p.mu.Lock()
	p.rd--
	p.mu.Unlock()
	notify(p.spaceAvailable)
	p.releaseSlotIfUnreferenced()
}

func (p *Pipe) CloseWriter() {
	p.mu.Lock()
	p.wr--
	p.mu.Unlock()
	notify(p.dataAvailable)
	p.releaseSlotIfUnreferenced()
}

// releaseSlotIfUnreferenced gives back this pipe's limits.Sys.Pipes
// slot the moment both ends have closed.
func (p *Pipe) releaseSlotIfUnreferenced() {
	p.mu.Lock()
	rd, wr := p.rd, p.wr
	charged := p.slotCharged
	if charged {
		p.slotCharged = false
	}
	p.mu.Unlock()
	if rd <= 0 && wr <= 0 && charged {
		limits.Sys.Pipes.Give()
	}
}

// Read flags, mirroring the subset of spec.md section 4.10's read/write
// flags a pipe honors.
type Flags int

const (
	Nonblock Flags = 1 << iota
)

/// Write copies src into the pipe. With Nonblock set, or when the
/// buffer is full and has no reader to eventually drain it, a write
/// that cannot make progress returns EndOfFile rather than blocking —
/// this is the documented deviation scenario S3 pins down: a 0-byte
/// write to a full pipe must NOT report EndOfFile if a reader remains,
/// since it copied everything it was asked to (zero bytes) and a
/// reader could still drain the buffer later.
func (p *Pipe) Write(src []uint8, flags Flags) (int, defs.Err) {
	for {
		p.mu.Lock()
		if len(src) == 0 {
			noReader := p.rd == 0 && p.buf.Full()
			p.mu.Unlock()
			if noReader {
				return 0, defs.EndOfFile
			}
			return 0, defs.Success
		}
		if p.rd == 0 {
			p.mu.Unlock()
			return 0, defs.EndOfFile
		}
		if !p.buf.Full() {
			n := p.buf.Write(src)
			p.mu.Unlock()
			notify(p.dataAvailable)
			if n < len(src) {
				return n, defs.EndOfFile
			}
			return n, defs.Success
		}
		p.mu.Unlock()
		if flags&Nonblock != 0 {
			return 0, defs.EndOfFile
		}
		<-p.spaceAvailable
	}
}

/// Read copies buffered bytes into dst, blocking until data is
/// available unless Nonblock is set or every writer has closed, in
/// which case it returns EndOfFile immediately on an empty buffer.
func (p *Pipe) Read(dst []uint8, flags Flags) (int, defs.Err) {
	for {
		p.mu.Lock()
		if !p.buf.Empty() {
			n := p.buf.Read(dst)
			p.mu.Unlock()
			notify(p.spaceAvailable)
			return n, defs.Success
		}
		if p.wr == 0 {
			p.mu.Unlock()
			return 0, defs.EndOfFile
		}
		p.mu.Unlock()
		if flags&Nonblock != 0 {
			return 0, defs.EndOfFile
		}
		<-p.dataAvailable
	}
}
