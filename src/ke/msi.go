package ke

import (
	"sync"

	"arch"
)

// Message-signaled interrupts pick their own vector rather than sharing
// one a line-based device was wired to at boot, so they need a small
// pool to allocate from. Grounded on biscuit/src/msi/msi.go's
// Msivecs_t/Msi_alloc/Msi_free, narrowed to the same fixed range of
// spare vectors the teacher reserves for MSI use.
var msiVectors = struct {
	sync.Mutex
	avail map[int]bool
}{avail: map[int]bool{56: true, 57: true, 58: true, 59: true, 60: true,
	61: true, 62: true, 63: true}}

/// AllocMsiVector reserves and returns a free MSI vector number, or
/// false if the pool is exhausted.
func AllocMsiVector() (int, bool) {
	msiVectors.Lock()
	defer msiVectors.Unlock()
	for v := range msiVectors.avail {
		delete(msiVectors.avail, v)
		return v, true
	}
	return 0, false
}

/// FreeMsiVector returns v to the pool. Panics on a double free, the
/// same bug-catching assertion Msi_free makes.
func FreeMsiVector(v int) {
	msiVectors.Lock()
	defer msiVectors.Unlock()
	if msiVectors.avail[v] {
		panic("ke: double free of msi vector")
	}
	msiVectors.avail[v] = true
}

/// ConnectMsiInterrupt allocates a vector from the MSI pool and
/// connects routine to it, returning the Interrupt and its vector so
/// the caller can program the device with it. MSI vectors are never
/// shared (each device gets its own), unlike line-based interrupts
/// connected through InitInterrupt directly.
func ConnectMsiInterrupt(routine ServiceRoutine, ctx any, lock *SpinLock, ipl arch.IPL) (*Interrupt, int, bool) {
	v, ok := AllocMsiVector()
	if !ok {
		return nil, 0, false
	}
	i := InitInterrupt(routine, ctx, lock, v, ipl, false)
	if !i.Connect() {
		FreeMsiVector(v)
		return nil, 0, false
	}
	return i, v, true
}
