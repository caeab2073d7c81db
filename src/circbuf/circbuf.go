// Package circbuf implements a fixed-capacity byte ring buffer: the
// storage underneath pipe.Pipe (spec.md section 4.10) and a candidate
// for any future FCB that buffers a byte stream in memory.
//
// Ported and simplified from biscuit/src/circbuf/circbuf.go. The
// teacher's Circbuf_t copies across a user/kernel address-space
// boundary via an fdops.Userio_i interface and lazily backs itself with
// a physical page from mem.Page_i; Boron's kernel and its "user" test
// harness share one Go address space, so those two concerns (crossing
// address spaces, physical-page-backed storage) don't apply here — the
// buffer is just a plain byte slice, and Read/Write take ordinary
// []byte, matching io.Reader/io.Writer's shape instead of the teacher's
// Uioread/Uiowrite pair.
package circbuf

// Buffer is a single-producer/single-consumer byte ring buffer. It is
// not internally synchronized: pipe.Pipe guards it with its own lock.
type Buffer struct {
	buf        []uint8
	head, tail int
}

/// Init allocates a buffer of the given capacity in bytes.
func (cb *Buffer) Init(size int) {
	cb.buf = make([]uint8, size)
	cb.head, cb.tail = 0, 0
}

/// Cap returns the buffer's capacity in bytes.
func (cb *Buffer) Cap() int {
	return len(cb.buf)
}

/// Full reports whether the buffer can accept no more data.
func (cb *Buffer) Full() bool {
	return cb.head-cb.tail == len(cb.buf)
}

/// Empty reports whether the buffer holds no data.
func (cb *Buffer) Empty() bool {
	return cb.head == cb.tail
}

/// Used returns the number of bytes currently buffered.
func (cb *Buffer) Used() int {
	return cb.head - cb.tail
}

/// Left returns the remaining free capacity in bytes.
func (cb *Buffer) Left() int {
	return len(cb.buf) - cb.Used()
}

/// Write copies as much of src as fits into the buffer without
/// blocking, returning the number of bytes copied.
func (cb *Buffer) Write(src []uint8) int {
	n := len(src)
	if room := cb.Left(); n > room {
		n = room
	}
	if n == 0 {
		return 0
	}
	bufsz := len(cb.buf)
	hi := cb.head % bufsz
	for i := 0; i < n; i++ {
		cb.buf[(hi+i)%bufsz] = src[i]
	}
	cb.head += n
	return n
}

/// Read copies up to len(dst) buffered bytes into dst, returning the
/// number of bytes copied.
func (cb *Buffer) Read(dst []uint8) int {
	n := len(dst)
	if have := cb.Used(); n > have {
		n = have
	}
	if n == 0 {
		return 0
	}
	bufsz := len(cb.buf)
	ti := cb.tail % bufsz
	for i := 0; i < n; i++ {
		dst[i] = cb.buf[(ti+i)%bufsz]
	}
	cb.tail += n
	return n
}
