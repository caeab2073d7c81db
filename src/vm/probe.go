package vm

import (
	"arch"
	"defs"
	"mem"
)

/// ProbeAddress validates a user buffer by walking every page in
/// [va, va+length) and forcing it to fault in if necessary, mirroring
/// MmProbeAddress. write requests write access; read-only probing of a
/// write-only guard page still fails.
func (as *AddressSpace) ProbeAddress(cpu *arch.CPU, va uintptr, length int, write bool) defs.Err {
	if length <= 0 {
		return defs.Success
	}
	mode := AccessRead
	if write {
		mode = AccessWrite
	}
	start := va - (va % mem.PageSize)
	end := va + uintptr(length)
	for page := start; page < end; page += mem.PageSize {
		if err := as.Fault(cpu, page, mode); defs.Failed(err) {
			return err
		}
	}
	return defs.Success
}
