// Debug and handle-introspection entry points: OSOutputDebugString from
// spec.md section 9's logging idiom, plus the OSDuplicateHandle/
// OSQueryHandle calls SPEC_FULL.md section 11 adds on top of the
// original spec's surface (ObDuplicateHandle/ObQueryObject have no
// exposed syscall in spec.md itself, but every object-manager kernel
// this tree's pack draws from gives user mode both).
package svc

import (
	"fmt"

	"defs"
	"ob"
)

// OSOutputDebugString writes s to the kernel debug console, the same
// fmt-to-console idiom the rest of this tree's ambient logging uses
// (see DESIGN.md); Boron has no separate debugger-attach channel to
// multiplex onto in this simulator.
func OSOutputDebugString(s string) {
	fmt.Print(s)
}

// OSDuplicateHandle copies the object referenced by h in sourceProc's
// handle table into a new handle in targetProc's table, mirroring
// ob/handle.c's ObDuplicateHandle. Both process handles are resolved
// against the calling thread's own table first.
func OSDuplicateHandle(sourceProc, h, targetProc defs.Handle) (defs.Handle, defs.Err) {
	callerProc := callerProcess()

	srcObj, err := resolveProcess(callerProc, sourceProc)
	if defs.Failed(err) {
		return defs.InvalidHandleValue, err
	}
	defer srcObj.Header.Dereference()

	dstObj, err := resolveProcess(callerProc, targetProc)
	if defs.Failed(err) {
		return defs.InvalidHandleValue, err
	}
	defer dstObj.Header.Dereference()

	obj, err := ob.ReferenceObjectByHandle(srcObj.Handles, h, nil)
	if defs.Failed(err) {
		return defs.InvalidHandleValue, err
	}
	defer obj.Dereference()

	return ob.InsertObject(dstObj.Handles, obj, ob.DuplicateHandleReason)
}

// HandleInfo is what OSQueryHandle reports about a handle: its object
// type's name and the object's live pointer/handle reference counts,
// mirroring the subset of ob/handle.c's OBJECT_BASIC_INFORMATION this
// tree actually tracks.
type HandleInfo struct {
	TypeName     string
	PointerCount int32
	HandleCount  int32
}

// OSQueryHandle reports HandleInfo for h, resolved in the calling
// thread's own process.
func OSQueryHandle(h defs.Handle) (HandleInfo, defs.Err) {
	to := currentCaller()
	if to == nil {
		return HandleInfo{}, defs.InvalidHandle
	}
	obj, err := ob.ReferenceObjectByHandle(to.Process.Handles, h, nil)
	if defs.Failed(err) {
		return HandleInfo{}, err
	}
	defer obj.Dereference()

	name := ""
	if t := obj.Type(); t != nil {
		name = t.Name
	}
	return HandleInfo{
		TypeName:     name,
		PointerCount: obj.PointerCount(),
		HandleCount:  obj.HandleCount(),
	}, defs.Success
}
