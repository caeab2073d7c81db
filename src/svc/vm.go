// Virtual memory entry points: spec.md section 6's
// OSAllocateVirtualMemory/OSFreeVirtualMemory, plus OSMapViewOfObject,
// the file-mapping call SPEC_FULL.md section 6 adds to give
// io.FCB.Filepage (vm.PageBackingSource) an actual caller. Every
// reservation this package hands out is tracked in the owning
// ProcessObject.vadBases so ProcessObjectType.Delete can release it
// when the process object itself is destroyed.
package svc

import (
	"defs"
	"io"
	"mem"
	"ob"
	"vm"
)

// defaultMmapBase is where OSAllocateVirtualMemory/OSMapViewOfObject
// start their search for an unused range when the caller passes a zero
// base, standing in for the heap-ish address real Boron's MI picks;
// any address works since this tree never maps anything below it.
const defaultMmapBase = 0x10000000

func trackVad(po *ProcessObject, base uintptr) {
	po.mu.Lock()
	po.vadBases = append(po.vadBases, base)
	po.mu.Unlock()
}

func untrackVad(po *ProcessObject, base uintptr) {
	po.mu.Lock()
	for i, b := range po.vadBases {
		if b == base {
			po.vadBases = append(po.vadBases[:i], po.vadBases[i+1:]...)
			break
		}
	}
	po.mu.Unlock()
}

// OSAllocateVirtualMemory reserves (and optionally commits) a region of
// proc's address space, mirroring spec.md section 6. A zero *base asks
// vm.AddressSpace.FindUnusedRange to pick one, per
// OSAllocateVirtualMemory's MEM_RESERVE convention.
func OSAllocateVirtualMemory(proc defs.Handle, base *uintptr, size *uintptr, allocType vm.AllocType, prot vm.Protection) defs.Err {
	callerProc := callerProcess()
	procObj, err := resolveProcess(callerProc, proc)
	if defs.Failed(err) {
		return err
	}
	defer procObj.Header.Dereference()

	start := *base
	if start == 0 {
		start = procObj.AS.FindUnusedRange(defaultMmapBase, int(*size))
	}
	v := procObj.AS.Reserve(start, int(*size), vm.Anon, prot, allocType&vm.AllocCommit != 0)
	trackVad(procObj, v.Start)

	*base = v.Start
	*size = uintptr(v.Pages) * mem.PageSize
	return defs.Success
}

// OSFreeVirtualMemory releases or decommits the VAD based at base in
// proc's address space, mirroring spec.md section 6. size is accepted
// for signature fidelity but otherwise unused: vm.AddressSpace.Release/
// Decommit operate on a whole VAD at a time (there is no partial-range
// free in this tree, unlike real Boron's sub-VAD splitting), so the
// VAD's own recorded page count always governs how much gets freed.
func OSFreeVirtualMemory(proc defs.Handle, base uintptr, size uintptr, freeType vm.FreeType) defs.Err {
	callerProc := callerProcess()
	procObj, err := resolveProcess(callerProc, proc)
	if defs.Failed(err) {
		return err
	}
	defer procObj.Header.Dereference()

	if freeType == vm.FreeDecommit {
		return procObj.AS.Decommit(base)
	}
	if err := procObj.AS.Release(base); defs.Failed(err) {
		return err
	}
	untrackVad(procObj, base)
	return defs.Success
}

// OSMapViewOfObject maps a view of the file object obj (resolved from
// the calling thread's own handle table, not proc's — the handle being
// mapped and the address space receiving the mapping are allowed to
// belong to different processes, exactly as Windows's
// NtMapViewOfSection distinguishes the section handle's process from
// the target process) into proc's address space at offset, backed by
// obj's FCB through vm.PageBackingSource. This is the concrete consumer
// of io.FCB.Filepage: every byte faulted in through the returned range
// reads through obj's dispatch table the first time, then serves out of
// its page cache afterward.
func OSMapViewOfObject(proc defs.Handle, objHandle defs.Handle, base *uintptr, size uintptr, allocType vm.AllocType, offset uint64, prot vm.Protection) defs.Err {
	to := currentCaller()
	if to == nil {
		return defs.InvalidHandle
	}
	procObj, err := resolveProcess(to.Process, proc)
	if defs.Failed(err) {
		return err
	}
	defer procObj.Header.Dereference()

	fileObj, err := ob.ReferenceObjectByHandle(to.Process.Handles, objHandle, io.FileObjectType)
	if defs.Failed(err) {
		return err
	}
	defer fileObj.Dereference()
	fo := fileObj.Body().(*io.FileObject)

	start := *base
	if start == 0 {
		start = procObj.AS.FindUnusedRange(defaultMmapBase, int(size))
	}
	v := procObj.AS.Reserve(start, int(size), vm.File, prot, allocType&vm.AllocCommit != 0)
	v.FileOffset = offset
	v.Source = fo.Fcb
	trackVad(procObj, v.Start)

	*base = v.Start
	return defs.Success
}

// OSFlushViewOfObject writes every currently-mapped page of the
// file-backed view based at base in proc's address space back through
// its FCB's dispatch table, mirroring spec.md section 6's
// OSFlushViewOfObject. A view with no file source (an anonymous
// mapping, or one never faulted in) is a no-op.
func OSFlushViewOfObject(proc defs.Handle, base uintptr) defs.Err {
	callerProc := callerProcess()
	procObj, err := resolveProcess(callerProc, proc)
	if defs.Failed(err) {
		return err
	}
	defer procObj.Header.Dereference()

	vad, ok := procObj.AS.Lookup(base)
	if !ok || vad.Start != base {
		return defs.VaNotAtBase
	}
	fcb, ok := vad.Source.(*io.FCB)
	if !ok || fcb == nil || fcb.DispatchTable == nil || fcb.DispatchTable.Write == nil {
		return defs.Success
	}

	var result defs.Err = defs.Success
	procObj.AS.ForEachPresentPage(base, func(off uint64, pfn mem.PFN) {
		if defs.Failed(result) {
			return
		}
		buf := Sys.Phys.Dmap(pfn)
		st := fcb.DispatchTable.Write(fcb, vad.FileOffset+off, buf, 0)
		if defs.Failed(st.Err) {
			result = st.Err
		}
	})
	return result
}

// callerProcess returns the calling thread's owning process, or nil if
// there is none (no thread bootstrapped yet on this simulated CPU).
func callerProcess() *ProcessObject {
	to := currentCaller()
	if to == nil {
		return nil
	}
	return to.Process
}
