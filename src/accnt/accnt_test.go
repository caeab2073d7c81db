package accnt

import "testing"

func TestUtaddSystadd(t *testing.T) {
	var a Accnt
	a.Utadd(100)
	a.Utadd(50)
	a.Systadd(25)
	u, s := a.Snapshot()
	if u != 150 || s != 25 {
		t.Fatalf("Snapshot = (%d, %d), want (150, 25)", u, s)
	}
}

func TestAddMerges(t *testing.T) {
	var a, b Accnt
	a.Utadd(10)
	a.Systadd(20)
	b.Utadd(1)
	b.Systadd(2)

	a.Add(&b)
	u, s := a.Snapshot()
	if u != 11 || s != 22 {
		t.Fatalf("Snapshot after Add = (%d, %d), want (11, 22)", u, s)
	}
}

func TestFinishChargesElapsedSystemTime(t *testing.T) {
	var a Accnt
	start := Now()
	a.Finish(start)
	_, s := a.Snapshot()
	if s < 0 {
		t.Fatalf("Sysns after Finish = %d, want >= 0", s)
	}
}
