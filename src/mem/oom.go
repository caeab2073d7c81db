package mem

// OomRequest is what notifyOom posts to OomCh when AllocPage exhausts
// every free list: Need records how many pages were wanted, and Resume
// is there for a listener to signal back once pages are available
// again, mirroring the handshake biscuit/src/oommsg/oommsg.go's
// Oommsg_t/OomCh uses between the allocator and its OOM killer.
type OomRequest struct {
	Need   int
	Resume chan bool
}

// OomCh is notified whenever a Database's free, zeroed, and per-CPU
// batch lists are all empty. Nothing in this tree drives page reclaim
// yet (SPEC_FULL.md's Non-goals keep the pagefile swap path out of
// scope), so there is no listener that ever reads OomCh today; the
// channel exists so a reclaim loop added later has something to block
// on, the same shape the teacher's own out-of-memory notification
// takes. The send is always best-effort: with no listener attached,
// AllocPage must still return its failure to the caller rather than
// block forever waiting for one.
var OomCh = make(chan OomRequest, 1)

func notifyOom(need int) {
	select {
	case OomCh <- OomRequest{Need: need}:
	default:
	}
}
