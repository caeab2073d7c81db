package vm

import (
	"arch"
	"defs"
	"mem"
)

/// UserBuffer assists reading and writing a user (or kernel) buffer a
/// byte range at a time, probing and copying atomically with respect to
/// page faults. Grounded on biscuit/src/vm/userbuf.go's Userbuf_t,
/// generalized from a raw Pmap walk to AddressSpace.Fault/Dmap since vm
/// keeps its page table as a plain map rather than a hardware format.
type UserBuffer struct {
	as     *AddressSpace
	cpu    *arch.CPU
	va     uintptr
	length int
	off    int
}

/// NewUserBuffer describes a length-byte buffer starting at va in as.
func NewUserBuffer(cpu *arch.CPU, as *AddressSpace, va uintptr, length int) *UserBuffer {
	if length < 0 {
		panic("vm: negative user buffer length")
	}
	return &UserBuffer{as: as, cpu: cpu, va: va, length: length}
}

/// Remain reports the number of unread/unwritten bytes left.
func (ub *UserBuffer) Remain() int { return ub.length - ub.off }

/// TotalSize reports the buffer's total length.
func (ub *UserBuffer) TotalSize() int { return ub.length }

/// Read copies from the user buffer into dst, faulting in pages on
/// demand, and returns the number of bytes copied.
func (ub *UserBuffer) Read(dst []byte) (int, defs.Err) {
	return ub.tx(dst, false)
}

/// Write copies src into the user buffer, faulting in pages on demand,
/// and returns the number of bytes copied.
func (ub *UserBuffer) Write(src []byte) (int, defs.Err) {
	return ub.tx(src, true)
}

// tx copies the lesser of len(buf) and ub.Remain(), stopping early (and
// leaving ub.off where the failure occurred, so a caller can restart)
// if a page cannot be faulted in.
func (ub *UserBuffer) tx(buf []byte, write bool) (int, defs.Err) {
	ret := 0
	for len(buf) != 0 && ub.off != ub.length {
		va := ub.va + uintptr(ub.off)
		page := va - (va % mem.PageSize)
		mode := AccessRead
		if write {
			mode = AccessWrite
		}
		if err := ub.as.Fault(ub.cpu, page, mode); defs.Failed(err) {
			return ret, err
		}

		ub.as.AcquireShared()
		p, ok := ub.as.ptes[page]
		if !ok || !p.present {
			ub.as.ReleaseShared()
			return ret, defs.AccessViolation
		}
		pageBuf := ub.as.phys.Dmap(p.pfn)
		ub.as.ReleaseShared()

		pageOff := int(va % mem.PageSize)
		avail := pageBuf[pageOff:]
		if end := ub.off + len(avail); end > ub.length {
			avail = avail[:ub.length-ub.off]
		}

		var c int
		if write {
			c = copy(avail, buf)
		} else {
			c = copy(buf, avail)
		}
		buf = buf[c:]
		ub.off += c
		ret += c
	}
	return ret, defs.Success
}
