package arch

import "testing"

func TestRaiseLowerIPL(t *testing.T) {
	c := CPUFor(0)
	c.LowerIPL(IplNormal)
	old := c.RaiseIPL(IplDpc)
	if old != IplNormal {
		t.Fatalf("old ipl = %v, want normal", old)
	}
	if c.GetIPL() != IplDpc {
		t.Fatalf("ipl = %v, want dpc", c.GetIPL())
	}
	c.LowerIPL(old)
	if c.GetIPL() != IplNormal {
		t.Fatalf("ipl = %v, want normal", c.GetIPL())
	}
}

func TestRaiseIPLPanicsOnLower(t *testing.T) {
	c := CPUFor(1)
	c.LowerIPL(IplNormal)
	c.RaiseIPL(IplDevice)
	defer func() {
		if recover() == nil {
			t.Fatalf("RaiseIPL to a lower level did not panic")
		}
		c.LowerIPL(IplNormal)
	}()
	c.RaiseIPL(IplApc)
}

func TestCurrentThread(t *testing.T) {
	c := CPUFor(2)
	if c.Current() != nil {
		t.Fatalf("Current() = %v, want nil", c.Current())
	}
	c.SetCurrent(42)
	if got := c.Current(); got != 42 {
		t.Fatalf("Current() = %v, want 42", got)
	}
	c.ClearCurrent()
	if c.Current() != nil {
		t.Fatalf("Current() after clear = %v, want nil", c.Current())
	}
}
