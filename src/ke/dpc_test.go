package ke

import (
	"testing"
	"time"

	"arch"
)

func TestDpcQueueOrdering(t *testing.T) {
	cpu := arch.CPUFor(0)
	q := NewDpcQueue(cpu)

	var order []int
	mkDpc := func(n int) *Dpc {
		d := &Dpc{}
		d.InitDpc(func(d *Dpc, ctx, arg1, arg2 any) {
			order = append(order, n)
		}, nil)
		return d
	}

	d1, d2, d3 := mkDpc(1), mkDpc(2), mkDpc(3)
	q.Enqueue(d1, nil, nil)
	q.Enqueue(d2, nil, nil)
	q.Enqueue(d3, nil, nil)
	q.Drain()

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("drain order = %v, want [1 2 3]", order)
	}
}

func TestDpcImportantGoesToFront(t *testing.T) {
	cpu := arch.CPUFor(1)
	q := NewDpcQueue(cpu)

	var order []int
	mkDpc := func(n int) *Dpc {
		d := &Dpc{}
		d.InitDpc(func(d *Dpc, ctx, arg1, arg2 any) {
			order = append(order, n)
		}, nil)
		return d
	}

	d1, d2 := mkDpc(1), mkDpc(2)
	q.Enqueue(d1, nil, nil)
	d2.SetImportant(true)
	q.Enqueue(d2, nil, nil)
	q.Drain()

	if len(order) != 2 || order[0] != 2 || order[1] != 1 {
		t.Fatalf("drain order = %v, want [2 1]", order)
	}
}

func TestDpcQueueRunWakesOnImportant(t *testing.T) {
	cpu := arch.CPUFor(2)
	q := NewDpcQueue(cpu)
	stop := make(chan struct{})
	go q.Run(stop)
	defer close(stop)

	ran := make(chan struct{})
	d := &Dpc{}
	d.InitDpc(func(d *Dpc, ctx, arg1, arg2 any) { close(ran) }, nil)
	d.SetImportant(true)
	q.Enqueue(d, nil, nil)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("important DPC never ran via Run loop")
	}
}
