// Package limits holds Boron's compiled-in system-wide resource
// ceilings and the live atomic counters some of them back, grounded on
// biscuit/src/limits/limits.go's Syslimit_t/Sysatomic_t.
//
// The teacher's file itself only declares the ceilings and the
// Sysatomic_t take/give mechanism; enforcement lives in whatever
// subsystem owns the resource (proc.go for Sysprocs, fs.go for
// Vnodes, and so on — none of which were in the retrieved file set).
// This tree follows the same split: Processes and Blocks are plain
// ceilings callers may consult, while Pipes is a live Sysatomic
// counter actually taken and given by package pipe's lifecycle.
//
// Boron has no network stack, no futex word table, and no on-disk
// vnode cache (ext2fs is stubbed per spec.md's on-disk-format
// non-goal), so the teacher's Arpents/Routes/Tcpsegs/Futexes/Vnodes/
// Socks fields are dropped rather than carried as permanently-unused
// ceilings.
package limits

import "sync/atomic"

// Sysatomic is a numeric limit that can be atomically taken and given
// back, for resources whose live outstanding count matters.
type Sysatomic struct {
	n atomic.Int64
}

// Given increases the limit by n.
func (s *Sysatomic) Given(n uint) {
	s.n.Add(int64(n))
}

// Taken tries to decrement the limit by n, reporting success. On
// failure the limit is left unchanged.
func (s *Sysatomic) Taken(n uint) bool {
	if s.n.Add(-int64(n)) >= 0 {
		return true
	}
	s.n.Add(int64(n))
	return false
}

// Take decrements the limit by one, reporting success.
func (s *Sysatomic) Take() bool {
	return s.Taken(1)
}

// Give increments the limit by one.
func (s *Sysatomic) Give() {
	s.Given(1)
}

// Remaining reports the limit's current value.
func (s *Sysatomic) Remaining() int64 {
	return s.n.Load()
}

// Syslimit tracks Boron's system-wide resource limits.
type Syslimit struct {
	// Processes is the compiled-in ceiling on live processes.
	Processes int
	// Blocks is the compiled-in ceiling on cached storage blocks.
	Blocks int
	// Pipes is the live count of pipe slots still available; package
	// pipe takes one on New and gives it back once both ends close.
	Pipes Sysatomic
}

// Sys holds Boron's configured system-wide limits.
var Sys = MkSysLimit()

// MkSysLimit returns the default set of limits.
func MkSysLimit() *Syslimit {
	s := &Syslimit{
		Processes: 1e4,
		Blocks:    100000,
	}
	s.Pipes.Given(1e4)
	return s
}
