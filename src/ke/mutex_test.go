package ke

import (
	"testing"
	"time"

	"defs"
)

func TestMutexMutualExclusion(t *testing.T) {
	m := NewMutex()
	proc := NewProcess(1)
	t1 := proc.NewThread(PriorityNormal)
	t2 := proc.NewThread(PriorityNormal)

	if status := m.Acquire(t1, time.Second); status != defs.Success {
		t.Fatalf("t1 acquire = %v", status)
	}

	acquired := make(chan struct{})
	go func() {
		if status := m.Acquire(t2, time.Second); status != defs.Success {
			t.Errorf("t2 acquire = %v", status)
		}
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("t2 acquired mutex while t1 still held it")
	case <-time.After(30 * time.Millisecond):
	}

	m.Release(t1)
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("t2 never acquired mutex after t1 released it")
	}
	m.Release(t2)
}

func TestMutexRecursiveAcquire(t *testing.T) {
	m := NewMutex()
	proc := NewProcess(1)
	th := proc.NewThread(PriorityNormal)

	if status := m.Acquire(th, time.Second); status != defs.Success {
		t.Fatalf("first acquire = %v", status)
	}
	if status := m.Acquire(th, time.Second); status != defs.Success {
		t.Fatalf("recursive acquire = %v", status)
	}
	m.Release(th)
	if m.owner != th {
		t.Fatal("mutex released to no one after one of two recursive releases")
	}
	m.Release(th)
	if m.owner != nil {
		t.Fatal("mutex still held after matching release count")
	}
}

func TestMutexAbandonedOnTerminate(t *testing.T) {
	m := NewMutex()
	proc := NewProcess(1)
	owner := proc.NewThread(PriorityNormal)
	waiter := proc.NewThread(PriorityNormal)

	m.Acquire(owner, time.Second)

	result := make(chan defs.Err, 1)
	go func() { result <- m.Acquire(waiter, time.Second) }()
	time.Sleep(10 * time.Millisecond)

	owner.Terminate()

	select {
	case status := <-result:
		if status != defs.AbandonedWait(0) {
			t.Fatalf("waiter status = %v, want AbandonedWait(0)", status)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never woke after owner terminated")
	}
	if m.owner != waiter {
		t.Fatal("mutex not handed to waiter after abandonment")
	}
}

func TestMutexTimeout(t *testing.T) {
	m := NewMutex()
	proc := NewProcess(1)
	owner := proc.NewThread(PriorityNormal)
	waiter := proc.NewThread(PriorityNormal)

	m.Acquire(owner, time.Second)
	status := m.Acquire(waiter, 20*time.Millisecond)
	if status != defs.Timeout {
		t.Fatalf("status = %v, want Timeout", status)
	}
}
