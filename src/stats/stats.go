// Package stats provides low-overhead, compile-time-gated counters for
// hot kernel paths, grounded on biscuit/src/stats/stats.go's
// Counter_t/Cycles_t/Stats2String. The Stats/Timing consts gate every
// operation behind a false branch so an unmodified build pays nothing
// but a predictable branch; flipping them to true (by hand, for a
// debug build) turns the counters live.
//
// The teacher's Rdtsc reads a forked runtime's runtime.Rdtsc, which
// only exists in biscuit's patched Go toolchain and has no counterpart
// here; Cycles uses time.Now's monotonic clock instead; the atomic/
// unsafe-pointer Add/Inc technique itself is unchanged.
package stats

import (
	"reflect"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unsafe"
)

// Stats gates whether Counter.Inc does anything.
const Stats = false

// Timing gates whether Cycles.Add does anything.
const Timing = false

// Counter is a statistical event counter.
type Counter int64

// Cycles holds an elapsed-time accumulator, in nanoseconds despite the
// name (kept from the teacher for the Stats2String field-suffix match).
type Cycles int64

// Inc increments the counter when Stats is enabled.
func (c *Counter) Inc() {
	if Stats {
		atomic.AddInt64((*int64)(unsafe.Pointer(c)), 1)
	}
}

// Now returns a monotonic timestamp suitable for Cycles.Add, or 0 when
// Timing is disabled.
func Now() uint64 {
	if Timing {
		return uint64(time.Now().UnixNano())
	}
	return 0
}

// Add adds the elapsed time since mark to the accumulator when Timing
// is enabled.
func (c *Cycles) Add(mark uint64) {
	if Timing {
		atomic.AddInt64((*int64)(unsafe.Pointer(c)), int64(Now()-mark))
	}
}

// Stats2String renders every Counter/Cycles field of st into a
// printable report, or "" when Stats is disabled.
func Stats2String(st interface{}) string {
	if !Stats {
		return ""
	}
	v := reflect.ValueOf(st)
	s := ""
	for i := 0; i < v.NumField(); i++ {
		t := v.Field(i).Type().String()
		switch {
		case strings.HasSuffix(t, "Counter"):
			n := v.Field(i).Interface().(Counter)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		case strings.HasSuffix(t, "Cycles"):
			n := v.Field(i).Interface().(Cycles)
			s += "\n\t#" + v.Type().Field(i).Name + ": " + strconv.FormatInt(int64(n), 10)
		}
	}
	return s + "\n"
}
