package vm

import (
	"arch"
	"defs"
	"mem"
)

/// AccessMode distinguishes why a fault happened, per spec.md section
/// 4.8 ("faulting PC, faulting VA, and access mode").
type AccessMode int

const (
	AccessRead AccessMode = iota
	AccessWrite
	AccessExecute
)

/// Fault resolves a page fault at va with the given access mode,
/// mirroring Sys_pgfault/Vm_t.Pgfault. t is the faulting thread, used
/// only to check cpu.GetIPL() — spec.md step 1 requires paging below
/// APC IPL.
// Grounded on biscuit/src/vm/as.go's Sys_pgfault, read in full: the
// guard-page/protection-mismatch checks, the transition/demand-zero/
// file/COW branches, and the "two threads simultaneously faulted"
// early-return all carry over; swapped-page handling is explicitly out
// of scope per spec.md section 4.8 ("outside the core for now - open
// point").
func (as *AddressSpace) Fault(cpu *arch.CPU, va uintptr, mode AccessMode) defs.Err {
	if cpu.GetIPL() >= arch.IplApc {
		return defs.Refault
	}

	as.AcquireShared()
	defer as.ReleaseShared()

	vad, ok := as.Lookup(va)
	if !ok {
		return defs.AccessViolation
	}
	if vad.Perms == 0 {
		return defs.AccessViolation
	}
	if mode == AccessWrite && vad.Perms&ProtWrite == 0 {
		return defs.AccessViolation
	}

	page := va - (va % mem.PageSize)
	p, exists := as.ptes[page]
	if !exists {
		p = &pte{}
		as.ptes[page] = p
	}

	// Protection mismatch on an already-present page.
	if p.present && mode == AccessWrite && !p.writable && !p.cow {
		return defs.AccessViolation
	}
	// Two threads simultaneously faulted on the same page: the other
	// one already resolved it.
	if (mode == AccessWrite && p.wasCow) || (mode != AccessWrite && p.present) {
		return defs.Success
	}

	switch {
	case mode == AccessWrite && p.cow:
		return as.resolveCow(cpu, page, p)
	case vad.Mtype == File:
		return as.resolveFile(page, p, vad, mode)
	default: // Anon / SharedAnon demand-zero
		return as.resolveAnon(cpu, page, p, vad, mode)
	}
}

func (as *AddressSpace) resolveAnon(cpu *arch.CPU, page uintptr, p *pte, vad *Vad, mode AccessMode) defs.Err {
	pfn, _, ok := as.phys.AllocPage(as.cpu)
	if !ok {
		return defs.NoMemory
	}
	buf := as.phys.Dmap(pfn)
	for i := range buf {
		buf[i] = 0
	}
	p.pfn = pfn
	p.present = true
	p.writable = vad.Perms&ProtWrite != 0 && mode == AccessWrite
	p.cow = vad.Perms&ProtWrite != 0 && !p.writable
	return defs.Success
}

func (as *AddressSpace) resolveFile(page uintptr, p *pte, vad *Vad, mode AccessMode) defs.Err {
	if vad.Source == nil {
		return defs.MoreProcessingRequired
	}
	off := vad.FileOffset + uint64(page-vad.Start)
	pfn, err := vad.Source.Filepage(off)
	if defs.Failed(err) {
		return err
	}
	as.phys.AddReference(pfn)
	p.pfn = pfn
	p.present = true
	if vad.Shared {
		p.writable = vad.Perms&ProtWrite != 0
		if p.writable {
			// A shared mapping grants write access right away rather
			// than trapping again on the first store (there is no
			// hardware dirty bit in this model to catch it later), so
			// the page must be considered dirty from this fault
			// onward rather than only once a write is observed.
			vad.Source.MarkDirty(off)
		}
	} else {
		p.writable = false
		p.cow = vad.Perms&ProtWrite != 0 && mode != AccessWrite
	}
	return defs.Success
}

func (as *AddressSpace) resolveCow(cpu *arch.CPU, page uintptr, p *pte) defs.Err {
	if as.phys.Refcnt(p.pfn) == 1 {
		// Sole mapping: claim the page in place rather than copying.
		p.cow = false
		p.writable = true
		p.wasCow = true
		return defs.Success
	}
	newPfn, _, ok := as.phys.AllocPage(as.cpu)
	if !ok {
		return defs.NoMemory
	}
	copy(as.phys.Dmap(newPfn), as.phys.Dmap(p.pfn))
	as.phys.Release(as.cpu, p.pfn)
	p.pfn = newPfn
	p.cow = false
	p.writable = true
	p.wasCow = true
	return defs.Success
}
