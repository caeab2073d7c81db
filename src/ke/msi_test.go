package ke

import (
	"testing"

	"arch"
)

func TestAllocFreeMsiVector(t *testing.T) {
	v, ok := AllocMsiVector()
	if !ok {
		t.Fatal("AllocMsiVector failed with a fresh pool")
	}
	if v2, ok := AllocMsiVector(); ok && v2 == v {
		t.Fatalf("AllocMsiVector returned %d twice", v)
	} else if ok {
		FreeMsiVector(v2)
	}
	FreeMsiVector(v)
}

func TestFreeMsiVectorDoubleFreePanics(t *testing.T) {
	v, ok := AllocMsiVector()
	if !ok {
		t.Fatal("AllocMsiVector failed")
	}
	FreeMsiVector(v)
	defer func() {
		if recover() == nil {
			t.Fatal("double free of an msi vector did not panic")
		}
	}()
	FreeMsiVector(v)
}

func TestConnectMsiInterrupt(t *testing.T) {
	var lock SpinLock
	i, v, ok := ConnectMsiInterrupt(func(i *Interrupt, ctx any) {}, nil, &lock, arch.IplDevice)
	if !ok {
		t.Fatal("ConnectMsiInterrupt failed")
	}
	defer func() {
		i.Disconnect()
		FreeMsiVector(v)
	}()
	if v < 56 || v > 63 {
		t.Fatalf("vector %d outside the reserved MSI range", v)
	}
}
