// File, pipe and terminal entry points: the OS... calls spec.md section
// 6 lists for Io (OSOpenFile/OSReadFile/OSWriteFile/OSClose/
// OSGetLengthFile/OSTouchFile), plus the terminal and pipe constructors
// SPEC_FULL.md adds on top (OSCreateTerminal/OSCreatePipe), since
// neither device has a path an OSOpenFile by name could resolve to
// without a mount table this tree doesn't build. Every handle here
// names an io.FileObject, resolved the same way svc resolves process
// and thread handles: through the calling thread's own handle table.
package svc

import (
	"defs"
	"io"
	"ob"
)

// OSOpenFile resolves attrs to an already-existing, namespace-visible
// file object (a device or other object a driver registered under the
// object manager root at boot) and opens a handle to it in the caller's
// process. There is no on-disk file system to create a new file object
// from a path against (spec.md's Non-goals), so unlike CreateProcess
// this never constructs anything; it only opens what is already there.
func OSOpenFile(outHandle *defs.Handle, attrs ObjectAttributes) defs.Err {
	to := currentCaller()
	if to == nil {
		return defs.InvalidHandle
	}

	obj, err := resolve(attrs, io.FileObjectType)
	if defs.Failed(err) {
		return err
	}
	h, err := ob.InsertObject(to.Process.Handles, obj, ob.OpenHandleReason)
	obj.Dereference()
	if defs.Failed(err) {
		return err
	}
	*outHandle = h
	return defs.Success
}

// OSReadFile reads through h's file object at its current seek
// position, advancing it by the number of bytes transferred.
func OSReadFile(h defs.Handle, buf []byte, flags io.RWFlags) (io.Status, defs.Err) {
	to := currentCaller()
	if to == nil {
		return io.Status{Err: defs.InvalidHandle}, defs.InvalidHandle
	}
	obj, err := ob.ReferenceObjectByHandle(to.Process.Handles, h, io.FileObjectType)
	if defs.Failed(err) {
		return io.Status{Err: err}, err
	}
	defer obj.Dereference()
	fo := obj.Body().(*io.FileObject)
	st := fo.Read(buf, flags)
	return st, st.Err
}

// OSWriteFile writes through h's file object at its current seek
// position, symmetric with OSReadFile.
func OSWriteFile(h defs.Handle, buf []byte, flags io.RWFlags) (io.Status, defs.Err) {
	to := currentCaller()
	if to == nil {
		return io.Status{Err: defs.InvalidHandle}, defs.InvalidHandle
	}
	obj, err := ob.ReferenceObjectByHandle(to.Process.Handles, h, io.FileObjectType)
	if defs.Failed(err) {
		return io.Status{Err: err}, err
	}
	defer obj.Dereference()
	fo := obj.Body().(*io.FileObject)
	st := fo.Write(buf, flags)
	return st, st.Err
}

// OSClose drops h from the caller's handle table. Unlike the
// file-specific calls above, it works on any handle svc hands out
// (process, thread, or file object alike), mirroring ZwClose's single
// entry point for every object type.
func OSClose(h defs.Handle) defs.Err {
	to := currentCaller()
	if to == nil {
		return defs.InvalidHandle
	}
	return ob.Close(to.Process.Handles, h)
}

// OSGetLengthFile returns h's FCB's reported length.
func OSGetLengthFile(h defs.Handle) (uint64, defs.Err) {
	to := currentCaller()
	if to == nil {
		return 0, defs.InvalidHandle
	}
	obj, err := ob.ReferenceObjectByHandle(to.Process.Handles, h, io.FileObjectType)
	if defs.Failed(err) {
		return 0, err
	}
	defer obj.Dereference()
	return obj.Body().(*io.FileObject).Fcb.Length(), defs.Success
}

// OSTouchFile notifies h's FCB's driver of a write access, per
// IO_TOUCH_METHOD.
func OSTouchFile(h defs.Handle) defs.Err {
	to := currentCaller()
	if to == nil {
		return defs.InvalidHandle
	}
	obj, err := ob.ReferenceObjectByHandle(to.Process.Handles, h, io.FileObjectType)
	if defs.Failed(err) {
		return err
	}
	defer obj.Dereference()
	return obj.Body().(*io.FileObject).Fcb.Touch(true)
}

// terminalBufferSize and pipeBufferSize are this tree's default ring
// buffer capacities for a freshly created terminal or pipe; spec.md
// leaves the concrete size as an implementation choice.
const (
	terminalBufferSize = 4096
	pipeBufferSize     = 4096
)

// OSCreateTerminal creates a new terminal device FCB and opens a handle
// to it in the caller's process, supplementing spec.md section 6's
// OS... list with the terminal-device constructor SPEC_FULL.md section
// 6 adds (the terminal FCB itself already existed in io; nothing in
// spec.md's surface created one).
func OSCreateTerminal(outHandle *defs.Handle) defs.Err {
	to := currentCaller()
	if to == nil {
		return defs.InvalidHandle
	}
	fcb := io.NewTerminalFCB(terminalBufferSize)
	fo, err := io.NewFileObject(fcb, nil, nil, 0)
	if defs.Failed(err) {
		return err
	}
	h, err := ob.InsertObject(to.Process.Handles, &fo.Header, ob.CreateHandle)
	fo.Header.Dereference()
	if defs.Failed(err) {
		return err
	}
	*outHandle = h
	return defs.Success
}

// OSCreatePipe creates a pipe and opens handles to both its read and
// write ends in the caller's process.
func OSCreatePipe(outRead, outWrite *defs.Handle) defs.Err {
	to := currentCaller()
	if to == nil {
		return defs.InvalidHandle
	}

	readFcb, writeFcb := io.NewPipe(pipeBufferSize)

	readFo, err := io.NewFileObject(readFcb, nil, nil, 0)
	if defs.Failed(err) {
		return err
	}
	writeFo, err := io.NewFileObject(writeFcb, nil, nil, 0)
	if defs.Failed(err) {
		readFo.Header.Dereference()
		return err
	}

	rh, err := ob.InsertObject(to.Process.Handles, &readFo.Header, ob.CreateHandle)
	readFo.Header.Dereference()
	if defs.Failed(err) {
		writeFo.Header.Dereference()
		return err
	}

	wh, err := ob.InsertObject(to.Process.Handles, &writeFo.Header, ob.CreateHandle)
	writeFo.Header.Dereference()
	if defs.Failed(err) {
		ob.Close(to.Process.Handles, rh)
		return err
	}

	*outRead = rh
	*outWrite = wh
	return defs.Success
}
