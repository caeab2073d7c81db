// Package diag provides deduplicated call-chain diagnostics: dump a
// stack trace, and remember which distinct caller chains have already
// been reported so a hot, repeatedly-hit diagnostic site doesn't flood
// the log with the same trace every time.
//
// Grounded on biscuit/src/caller/caller.go's Callerdump/
// Distinct_caller_t, used by this tree's spin lock self-deadlock panic
// (see ke's SpinLock.Acquire) and available to the panic path generally.
package diag

import (
	"fmt"
	"runtime"
	"sync"
)

// Callerdump formats the call stack starting at the given
// runtime.Caller depth, one frame per line, and returns it.
func Callerdump(start int) string {
	i := start
	s := ""
	for {
		_, f, l, ok := runtime.Caller(i)
		if !ok {
			break
		}
		i++
		if s == "" {
			s = fmt.Sprintf("%s:%d\n", f, l)
		} else {
			s += fmt.Sprintf("\t<-%s:%d\n", f, l)
		}
	}
	return s
}

// DistinctCaller tracks whether a call chain has been seen before, so
// a diagnostic can print the first occurrence of each distinct path
// and stay silent on repeats. Whitelisted functions anywhere in the
// chain suppress the report entirely (a known, expected caller).
type DistinctCaller struct {
	mu      sync.Mutex
	Enabled bool
	Whitel  map[string]bool
	did     map[uintptr]bool
}

// pchash is a poor-man's hash of the given PC values, unique enough to
// dedup call chains without retaining the full traces.
func pchash(pcs []uintptr) uintptr {
	if len(pcs) == 0 {
		panic("diag: pchash of empty pc slice")
	}
	var ret uintptr
	for _, pc := range pcs {
		pc = pc*1103515245 + 12345
		ret ^= pc
	}
	return ret
}

// Len returns the number of distinct call chains recorded so far.
func (dc *DistinctCaller) Len() int {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return len(dc.did)
}

// Distinct reports whether the chain calling Distinct (three frames up,
// skipping Distinct itself, its caller's wrapper, and runtime.Callers)
// is new. On a new, non-whitelisted chain it returns true and a
// formatted trace; otherwise false and "".
func (dc *DistinctCaller) Distinct() (bool, string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if !dc.Enabled {
		return false, ""
	}
	if dc.did == nil {
		dc.did = make(map[uintptr]bool)
	}

	pcs := make([]uintptr, 30)
	got := runtime.Callers(3, pcs)
	if got == 0 {
		return false, ""
	}
	pcs = pcs[:got]
	h := pchash(pcs)
	if dc.did[h] {
		return false, ""
	}
	dc.did[h] = true

	frames := runtime.CallersFrames(pcs)
	fs := ""
	for {
		fr, more := frames.Next()
		if dc.Whitel[fr.Function] {
			return false, ""
		}
		if fs == "" {
			fs = fmt.Sprintf("%v (%v:%v)\n", fr.Function, fr.File, fr.Line)
		} else {
			fs += fmt.Sprintf("\t%v (%v:%v)\n", fr.Function, fr.File, fr.Line)
		}
		if !more || fr.Function == "runtime.goexit" {
			break
		}
	}
	return true, fs
}
