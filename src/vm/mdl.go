package vm

import (
	"arch"
	"defs"
	"mem"
)

/// MdlFlags records an MDL's provenance and intent, per spec.md section
/// 3's "state flags (from-pool|captured|mapped|write)".
type MdlFlags uint

const (
	MdlFromPool MdlFlags = 1 << iota
	MdlCaptured
	MdlMapped
	MdlWrite
)

/// Mdl is a memory descriptor list: an array of pinned PFNs describing a
/// user or kernel buffer for I/O. Grounded on spec.md section 3's MDL
/// entry and section 4.9's construction algorithm; the pinning mechanism
/// itself is biscuit/src/vm/userbuf.go's Userbuf_t read atomically
/// against the owning address space, generalized from byte-at-a-time
/// copying to an up-front captured PFN array so io's FCB layer can hand
/// the list straight to a (simulated) device.
type Mdl struct {
	as        *AddressSpace
	process   int
	va        uintptr
	byteOffset int
	byteCount int
	flags     MdlFlags
	pfns      []mem.PFN
}

/// BuildMdl probes [va, va+length) into as, pinning every page it
/// touches by incrementing its reference count, and captures the
/// resulting PFNs. Mirrors "An MDL is built from a user (or kernel)
/// buffer, its pages probed, and each PFN reference-incremented" from
/// spec.md section 4.9.
func BuildMdl(cpu *arch.CPU, as *AddressSpace, process int, va uintptr, length int, write bool) (*Mdl, defs.Err) {
	if length < 0 {
		return nil, defs.InvalidParameter
	}
	if err := as.ProbeAddress(cpu, va, length, write); defs.Failed(err) {
		return nil, err
	}

	m := &Mdl{
		as:         as,
		process:    process,
		va:         va,
		byteOffset: int(va % mem.PageSize),
		byteCount:  length,
		flags:      MdlCaptured,
	}
	if write {
		m.flags |= MdlWrite
	}

	as.AcquireShared()
	defer as.ReleaseShared()

	start := va - (va % mem.PageSize)
	end := va + uintptr(length)
	for page := start; page < end; page += mem.PageSize {
		p, ok := as.ptes[page]
		if !ok || !p.present {
			m.unpinLocked()
			return nil, defs.AccessViolation
		}
		as.phys.AddReference(p.pfn)
		m.pfns = append(m.pfns, p.pfn)
	}
	return m, defs.Success
}

/// Pfns returns the MDL's pinned page frames in address order.
func (m *Mdl) Pfns() []mem.PFN { return m.pfns }

/// ByteOffset is the offset of the buffer's first byte within its first
/// page.
func (m *Mdl) ByteOffset() int { return m.byteOffset }

/// ByteCount is the total length of the buffer the MDL describes.
func (m *Mdl) ByteCount() int { return m.byteCount }

/// Flags reports the MDL's MdlFromPool/MdlCaptured/MdlMapped/MdlWrite
/// state bits.
func (m *Mdl) Flags() MdlFlags { return m.flags }

/// MapToSystemSpace returns a direct-map byte slice view of each pinned
/// page, stitched together in address order, standing in for mapping
/// the MDL's pages into kernel virtual space on a real architecture.
/// Sets MdlMapped.
func (m *Mdl) MapToSystemSpace() []byte {
	buf := make([]byte, 0, len(m.pfns)*mem.PageSize)
	for _, pfn := range m.pfns {
		buf = append(buf, m.as.phys.Dmap(pfn)...)
	}
	m.flags |= MdlMapped
	lo := m.byteOffset
	hi := lo + m.byteCount
	if hi > len(buf) {
		hi = len(buf)
	}
	return buf[lo:hi]
}

/// Unpin releases every PFN the MDL pinned. Safe to call once; a second
/// call is a no-op.
func (m *Mdl) Unpin() {
	m.as.AcquireShared()
	defer m.as.ReleaseShared()
	m.unpinLocked()
}

func (m *Mdl) unpinLocked() {
	for _, pfn := range m.pfns {
		m.as.phys.Release(m.as.cpu, pfn)
	}
	m.pfns = nil
}
