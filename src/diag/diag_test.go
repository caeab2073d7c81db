package diag

import (
	"strings"
	"testing"
)

func TestCallerdumpIncludesThisFrame(t *testing.T) {
	s := Callerdump(0)
	if !strings.Contains(s, "diag_test.go") {
		t.Fatalf("Callerdump(0) = %q, want it to mention this test file", s)
	}
}

func callDistinct(dc *DistinctCaller) (bool, string) {
	return dc.Distinct()
}

func TestDistinctCallerFirstThenRepeat(t *testing.T) {
	dc := &DistinctCaller{Enabled: true}

	ok, trace := callDistinct(dc)
	if !ok || trace == "" {
		t.Fatalf("first call: got (%v, %q), want (true, non-empty)", ok, trace)
	}

	ok, trace = callDistinct(dc)
	if ok || trace != "" {
		t.Fatalf("repeat call: got (%v, %q), want (false, \"\")", ok, trace)
	}
	if dc.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", dc.Len())
	}
}

func TestDistinctCallerDisabledAlwaysFalse(t *testing.T) {
	dc := &DistinctCaller{}
	ok, trace := dc.Distinct()
	if ok || trace != "" {
		t.Fatalf("disabled Distinct() = (%v, %q), want (false, \"\")", ok, trace)
	}
}

func TestDistinctCallerWhitelistSuppresses(t *testing.T) {
	dc := &DistinctCaller{Enabled: true, Whitel: map[string]bool{
		"diag.TestDistinctCallerWhitelistSuppresses": true,
	}}
	ok, trace := callDistinct(dc)
	if ok || trace != "" {
		t.Fatalf("whitelisted Distinct() = (%v, %q), want (false, \"\")", ok, trace)
	}
}
