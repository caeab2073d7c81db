package stats

import "testing"

func TestCounterIncNoopWhenDisabled(t *testing.T) {
	var c Counter
	c.Inc()
	if c != 0 {
		t.Fatalf("Counter = %d, want 0 with Stats disabled", c)
	}
}

func TestCyclesAddNoopWhenDisabled(t *testing.T) {
	var c Cycles
	c.Add(Now())
	if c != 0 {
		t.Fatalf("Cycles = %d, want 0 with Timing disabled", c)
	}
}

func TestStats2StringEmptyWhenDisabled(t *testing.T) {
	type probe struct {
		Hits  Counter
		Spent Cycles
	}
	if s := Stats2String(probe{}); s != "" {
		t.Fatalf("Stats2String = %q, want empty with Stats disabled", s)
	}
}
