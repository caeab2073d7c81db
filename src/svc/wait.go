package svc

import (
	"time"

	"defs"
	"ke"
	"ob"
)

// msToDuration converts a millisecond timeout as the OS... surface
// spells it (negative meaning infinite, 0 meaning poll-and-return) into
// the time.Duration ke.Thread.WaitForSingleObject/WaitForMultipleObjects
// actually take.
func msToDuration(timeoutMs int) time.Duration {
	if timeoutMs < 0 {
		return -1
	}
	return time.Duration(timeoutMs) * time.Millisecond
}

// resolveWaitable resolves h (an ordinary handle or one of the two
// pseudo-handles) to the dispatcher header a wait can actually block on,
// along with the ob.Header reference to release once the wait
// completes. Only the two object types svc hands out today — processes
// and threads — are waitable; a process signals through its exited
// event (ProcessObject.exited), mirroring a Windows process handle's
// signal-on-exit behavior, while a thread signals through its own
// ke.Thread.Header, set by Thread.finish() on exit.
func resolveWaitable(caller *ProcessObject, h defs.Handle) (*ke.Header, *ob.Header, defs.Err) {
	if h == defs.CurrentThreadHandle {
		to := currentCaller()
		if to == nil {
			return nil, nil, defs.InvalidHandle
		}
		to.Header.Reference()
		return &to.Thread.Header, &to.Header, defs.Success
	}
	if h == defs.CurrentProcessHandle {
		if caller == nil {
			return nil, nil, defs.InvalidHandle
		}
		caller.Header.Reference()
		return &caller.exited.Header, &caller.Header, defs.Success
	}
	if caller == nil {
		return nil, nil, defs.InvalidHandle
	}
	obj, err := ob.ReferenceObjectByHandle(caller.Handles, h, nil)
	if defs.Failed(err) {
		return nil, nil, err
	}
	switch body := obj.Body().(type) {
	case *ThreadObject:
		return &body.Thread.Header, obj, defs.Success
	case *ProcessObject:
		return &body.exited.Header, obj, defs.Success
	default:
		obj.Dereference()
		return nil, nil, defs.TypeMismatch
	}
}

// OSSleep blocks the calling thread for ms milliseconds, mirroring
// spec.md section 6's OSSleep: grounded on ke.NewTimer/Timer.Set,
// passing a nil Dpc/DpcQueue since a plain sleep needs nothing run at
// expiry beyond the timer signaling itself.
func OSSleep(ms int) defs.Err {
	to := currentCaller()
	if to == nil {
		return defs.InvalidHandle
	}
	if ms <= 0 {
		return defs.Success
	}
	timer := ke.NewTimer()
	timer.Set(time.Duration(ms)*time.Millisecond, nil, nil)
	return to.Thread.WaitForSingleObject(&timer.Header, -1)
}

// OSWaitForSingleObject waits on a single handle, per spec.md section 6.
// alertable is accepted for signature fidelity but has no effect: this
// tree has no user-mode APC delivery (SPEC_FULL.md's Non-goals), so a
// wait here can only ever complete via Waiting/Timeout/the object
// itself, never Alerted.
func OSWaitForSingleObject(h defs.Handle, alertable bool, timeoutMs int) defs.Err {
	to := currentCaller()
	if to == nil {
		return defs.InvalidHandle
	}
	hdr, obj, err := resolveWaitable(to.Process, h)
	if defs.Failed(err) {
		return err
	}
	defer obj.Dereference()
	return to.Thread.WaitForSingleObject(hdr, msToDuration(timeoutMs))
}

// OSWaitForMultipleObjects waits on every handle in handles per kind
// (ke.WaitAny/ke.WaitAll), returning the index of the object that
// satisfied the wait. See OSWaitForSingleObject's note on alertable.
func OSWaitForMultipleObjects(handles []defs.Handle, kind ke.WaitType, alertable bool, timeoutMs int) (int, defs.Err) {
	to := currentCaller()
	if to == nil {
		return -1, defs.InvalidHandle
	}

	hdrs := make([]*ke.Header, len(handles))
	objs := make([]*ob.Header, len(handles))
	for i, h := range handles {
		hdr, obj, err := resolveWaitable(to.Process, h)
		if defs.Failed(err) {
			for j := 0; j < i; j++ {
				objs[j].Dereference()
			}
			return -1, err
		}
		hdrs[i] = hdr
		objs[i] = obj
	}
	defer func() {
		for _, obj := range objs {
			obj.Dereference()
		}
	}()

	status := to.Thread.WaitForMultipleObjects(hdrs, kind, msToDuration(timeoutMs))
	if idx := defs.WaitIndex(status); idx >= 0 {
		return idx, status
	}
	return -1, status
}
