package ke

import (
	"testing"
	"time"
)

func TestRwLockMultipleReaders(t *testing.T) {
	l := NewRwLock()
	l.AcquireShared()
	l.AcquireShared()
	if l.readers != 2 {
		t.Fatalf("readers = %d, want 2", l.readers)
	}
	l.ReleaseShared()
	l.ReleaseShared()
}

func TestRwLockExclusiveExcludesReaders(t *testing.T) {
	l := NewRwLock()
	l.AcquireExclusive()

	acquired := make(chan struct{})
	go func() {
		l.AcquireShared()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("reader acquired while writer held the lock")
	case <-time.After(30 * time.Millisecond):
	}

	l.ReleaseExclusive()
	select {
	case <-acquired:
		l.ReleaseShared()
	case <-time.After(time.Second):
		t.Fatal("reader never acquired after writer released")
	}
}

func TestRwLockDemoteToShared(t *testing.T) {
	l := NewRwLock()
	l.AcquireExclusive()

	writerBlocked := make(chan struct{})
	go func() {
		l.AcquireExclusive()
		close(writerBlocked)
		l.ReleaseExclusive()
	}()

	time.Sleep(10 * time.Millisecond)
	l.DemoteToShared()

	reader2 := make(chan struct{})
	go func() {
		l.AcquireShared()
		close(reader2)
		l.ReleaseShared()
	}()

	select {
	case <-reader2:
	case <-time.After(time.Second):
		t.Fatal("second reader never acquired shared lock after demote")
	}

	select {
	case <-writerBlocked:
		t.Fatal("writer acquired exclusive lock while demoted reader still held it")
	case <-time.After(30 * time.Millisecond):
	}

	l.ReleaseShared()
	select {
	case <-writerBlocked:
	case <-time.After(time.Second):
		t.Fatal("writer never acquired after demoted reader released")
	}
}
