package ke

import (
	"testing"
	"time"
)

func TestNotificationEventStaysSignaled(t *testing.T) {
	e := NewEvent(EventNotification, false)
	proc := NewProcess(1)
	t1 := proc.NewThread(PriorityNormal)
	t2 := proc.NewThread(PriorityNormal)

	done := make(chan struct{}, 2)
	go func() { t1.WaitForSingleObject(&e.Header, time.Second); done <- struct{}{} }()
	go func() { t2.WaitForSingleObject(&e.Header, time.Second); done <- struct{}{} }()

	time.Sleep(5 * time.Millisecond)
	e.Set()

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("notification event did not release both waiters")
		}
	}
	if !e.ReadState() {
		t.Fatal("notification event should remain signaled")
	}
}

func TestSynchronizationEventReleasesOneWaiter(t *testing.T) {
	e := NewEvent(EventSynchronization, false)
	proc := NewProcess(1)
	t1 := proc.NewThread(PriorityNormal)
	t2 := proc.NewThread(PriorityNormal)

	released := make(chan int, 2)
	go func() { t1.WaitForSingleObject(&e.Header, time.Second); released <- 1 }()
	go func() { t2.WaitForSingleObject(&e.Header, time.Second); released <- 2 }()
	time.Sleep(5 * time.Millisecond)

	e.Set()

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("synchronization event released no one")
	}
	select {
	case <-released:
		t.Fatal("synchronization event released both waiters on one Set")
	case <-time.After(50 * time.Millisecond):
	}

	e.Set()
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("second Set did not release remaining waiter")
	}
}

func TestPulseReleasesOnlyCurrentWaiters(t *testing.T) {
	e := NewEvent(EventNotification, false)
	proc := NewProcess(1)
	th := proc.NewThread(PriorityNormal)

	done := make(chan struct{})
	go func() { th.WaitForSingleObject(&e.Header, time.Second); close(done) }()
	time.Sleep(5 * time.Millisecond)

	e.Pulse()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pulse did not release waiting thread")
	}
	if e.ReadState() {
		t.Fatal("event should be unsignaled again immediately after pulse")
	}
}
