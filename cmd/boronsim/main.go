// Command boronsim boots a single instance of Boron's kernel executive
// in-process and runs a small demo workload through it: an init process
// that opens the console device by name, forks a child, waits for it to
// exit, and exits itself. There is no real bootloader or hardware in
// this tree (spec.md's Non-goals exclude binding to one CPU
// architecture), so this binary plays that role, the way
// biscuit/src/kernel/chentry.go stands in for the teacher's own
// build-time entry tooling rather than the booted kernel itself.
package main

import (
	"fmt"
	"time"

	"defs"
	"io"
	"ke"
	"mem"
	"ob"
	"svc"
	"ustr"
)

// Physical memory and pool sizes for this demo boot; real Boron would
// learn these from the boot loader's memory map, which this simulator
// has none of, so they are simply chosen generous enough for the
// workload below.
const (
	physPages = 1 << 16
	poolPages = 1 << 12
)

// consoleName is the path every OSOpenFile call in this demo resolves,
// mirroring spec.md section 6's path grammar ("absolute paths from
// root"; no leading separator needed here since ReferenceObjectByName
// resolves Name against the root directory itself).
var consoleName = ustr.MkUstrSlice([]byte("Console"))

// StartUp constructs every subsystem singleton Boron needs and wires
// them together through svc.Init, then registers the one device this
// demo exposes by name. Mirrors the teacher's own kernel entry
// sequence (biscuit/src/kernel's chentry-adjacent setup) collapsed into
// a single function, since this tree boots one simulated system per
// process rather than one real machine per boot.
func StartUp() {
	phys := mem.NewDatabase(0, physPages)
	pool := mem.NewPool(0, poolPages)
	scheduler := ke.NewScheduler()
	root := ob.NewDirectory()
	svc.Init(phys, pool, scheduler, root)
	registerConsole(root)
}

// registerConsole creates the terminal FCB every OSOpenFile("Console")
// call in this demo resolves to, marked FlagPermanent so closing every
// handle to it never deletes the object itself (a device lives for the
// system's whole lifetime, unlike an ordinary file object).
func registerConsole(root *ob.Directory) {
	fcb := io.NewTerminalFCB(4096)
	if _, err := io.NewFileObject(fcb, consoleName, root, ob.FlagPermanent); defs.Failed(err) {
		fmt.Println("boronsim: failed to register console device:", err)
	}
}

func main() {
	StartUp()
	defer svc.Shutdown()

	initProc, err := svc.BootstrapProcess(svc.ObjectAttributes{})
	if defs.Failed(err) {
		fmt.Println("boronsim: failed to bootstrap init process:", err)
		return
	}

	done := make(chan int, 1)
	svc.BootstrapThread(initProc, func() {
		runInit()
		done <- initProc.ExitCode()
	})

	select {
	case code := <-done:
		fmt.Printf("boronsim: init exited with code %d\n", code)
	case <-time.After(5 * time.Second):
		fmt.Println("boronsim: init did not exit within 5s")
	}
}

// runInit is the init process's thread body: it opens the console by
// name, writes a greeting, forks a child that writes its own message
// and exits, waits for the child, then exits itself. Exercises
// OSOpenFile/OSWriteFile/OSForkProcess/OSWaitForSingleObject/
// OSExitProcess together against one live object-manager namespace.
func runInit() {
	var console defs.Handle
	if err := svc.OSOpenFile(&console, svc.ObjectAttributes{Name: consoleName}); defs.Failed(err) {
		fmt.Println("boronsim: OSOpenFile(Console) failed:", err)
		svc.OSExitProcess(1)
		return
	}
	defer svc.OSClose(console)

	if _, err := svc.OSWriteFile(console, []byte("boron: init process running\n"), 0); defs.Failed(err) {
		fmt.Println("boronsim: OSWriteFile failed:", err)
	}

	var child defs.Handle
	if err := svc.OSForkProcess(&child, func() {
		svc.OSOutputDebugString("boron: child process running\n")
		svc.OSExitProcess(7)
	}); defs.Failed(err) {
		fmt.Println("boronsim: OSForkProcess failed:", err)
		svc.OSExitProcess(1)
		return
	}

	if err := svc.OSWaitForSingleObject(child, false, -1); defs.Failed(err) {
		fmt.Println("boronsim: waiting on child failed:", err)
	}
	svc.OSClose(child)

	svc.OSExitProcess(0)
}
