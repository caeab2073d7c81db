// Package svc implements Boron's system-service surface: every
// user-mode-facing OS... entry point named in spec.md section 6,
// wired on top of ke's threads and dispatcher objects, ob's object
// manager and handle tables, vm's address spaces, io's FCBs, and
// mem's physical-page allocator.
//
// biscuit has no analogue of this layer (its syscalls dispatch
// straight into fs/proc/vm code, not through a separate object
// manager), so svc is new rather than ported; its shape is grounded
// directly on spec.md section 6's OS... list and on the object-manager
// idiom ob and io already establish (InsertObject/ReferenceObjectByHandle/
// Close around a typed Header, exactly as io.FileObject already does
// for files). ke never imports ob, vm or io — this package is the
// first layer that wires all of them together, the way io.FileObject
// already wires ob and ke.RwLock together one level down.
package svc

import (
	"defs"
	"ke"
	"mem"
	"ob"
	"ustr"
)

/// System holds Boron's global, boot-time-initialized state: the
/// physical-page database every address space and file allocates from,
/// the scheduler every thread readies onto, and the object-manager root
/// directory every absolute path resolves against. Grounded on
/// spec.md's implicit "there is exactly one of each of these" system
/// singletons; cmd/boronsim's StartUp constructs one and calls Init.
type System struct {
	Phys      *mem.Database
	Pool      *mem.Pool
	Scheduler *ke.Scheduler
	Root      *ob.Directory

	stopWorkers chan struct{}
}

/// Sys is Boron's system-wide state, installed by Init.
var Sys *System

/// Init wires the system singletons together, installs root as the
/// object manager's global root directory, and starts the
/// modified-page writer and zeroing worker against phys. Must be
/// called exactly once during boot, before any OS... entry point runs.
// The two background goroutines are spec.md section 4.5's "modified
// page writer" and "zeroing worker"; before this they only ran inside
// mem's own package tests, against a Database no OS... entry point
// ever touched.
func Init(phys *mem.Database, pool *mem.Pool, scheduler *ke.Scheduler, root *ob.Directory) {
	Sys = &System{Phys: phys, Pool: pool, Scheduler: scheduler, Root: root, stopWorkers: make(chan struct{})}
	ob.InitRoot(root)

	go Sys.Phys.RunModifiedPageWriter(Sys.stopWorkers)
	go Sys.Phys.RunZeroingWorker(Sys.stopWorkers, func(pfn mem.PFN) {
		buf := Sys.Phys.Dmap(pfn)
		for i := range buf {
			buf[i] = 0
		}
	})
}

/// Shutdown stops the background modified-page writer and zeroing
/// worker started by Init. cmd/boronsim defers it after StartUp; tests
/// that call newTestSystem per-case call it through t.Cleanup so the
/// goroutines from one test don't outlive it.
func Shutdown() {
	if Sys == nil || Sys.stopWorkers == nil {
		return
	}
	close(Sys.stopWorkers)
	Sys.stopWorkers = nil
}

/// ObjectAttributes is the user-mode object-attributes block from
/// spec.md section 6: a root directory to resolve Name relative to
/// (nil meaning "resolve from the global root, or Name is absolute"),
/// the name itself, and the open flags below.
type ObjectAttributes struct {
	RootDirectory *ob.Directory
	Name          ustr.Ustr
	Attributes    AttrFlags
}

/// AttrFlags are ObjectAttributes' open flags, per spec.md section 6
/// ("inherit", "symlink").
type AttrFlags uint

const (
	/// AttrInherit marks a handle opened from these attributes as
	/// inheritable across OSForkProcess / OSCreateProcess with
	/// inherit-handles set.
	AttrInherit AttrFlags = 1 << iota
	/// AttrSymlink permits the lookup to terminate on a symbolic link
	/// object rather than following it.
	AttrSymlink
)

// resolve looks up attrs.Name (or returns ob's permanent root/current
// pseudo-objects for an empty name) against the appropriate starting
// directory, taking a reference on the result.
func resolve(attrs ObjectAttributes, expectedType *ob.Type) (*ob.Header, defs.Err) {
	return ob.ReferenceObjectByName(attrs.Name, attrs.RootDirectory, expectedType)
}

// currentProcess/currentThread resolve the CURRENT_PROCESS_HANDLE /
// CURRENT_THREAD_HANDLE pseudo-handles and ordinary handles alike to a
// *ProcessObject / *ThreadObject, taking a reference the caller must
// Dereference. currentCaller returns the ThreadObject running on
// simulated CPU 0, standing in for "the calling thread" the way
// arch.CPU.Current already stands in for per-goroutine TLS elsewhere
// in this tree (see arch/arch.go's doc comment on that simplification).
func currentCaller() *ThreadObject {
	cur := callerCPU().Current()
	if cur == nil {
		return nil
	}
	to, _ := cur.(*ThreadObject)
	return to
}
