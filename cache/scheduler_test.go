package cache

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRuns(t *testing.T) {
	s := newScheduler()

	var ran int32
	if !s.after(5*time.Millisecond, func() { atomic.AddInt32(&ran, 1) }) {
		t.Fatal("after should accept tasks while open")
	}

	waitFor(t, func() bool { return atomic.LoadInt32(&ran) == 1 })
	if n := s.pending(); n != 0 {
		t.Fatalf("Expected no pending tasks, got %d", n)
	}
}

func TestSchedulerCancelAll(t *testing.T) {
	s := newScheduler()

	var ran int32
	for i := 0; i < 3; i++ {
		s.after(time.Hour, func() { atomic.AddInt32(&ran, 1) })
	}
	if n := s.pending(); n != 3 {
		t.Fatalf("Expected 3 pending tasks, got %d", n)
	}

	if n := s.cancelAll(); n != 3 {
		t.Fatalf("Expected 3 canceled tasks, got %d", n)
	}
	if s.after(time.Millisecond, func() { atomic.AddInt32(&ran, 1) }) {
		t.Fatal("after should reject tasks once canceled")
	}

	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&ran) != 0 {
		t.Fatal("canceled tasks must not run")
	}
	if n := s.cancelAll(); n != 0 {
		t.Fatalf("Expected second cancelAll to stop nothing, got %d", n)
	}
}

func TestSchedulerCancelAllWaitsForRunningTask(t *testing.T) {
	s := newScheduler()

	started := make(chan struct{})
	unblock := make(chan struct{})
	var finished int32
	s.after(time.Millisecond, func() {
		close(started)
		<-unblock
		atomic.StoreInt32(&finished, 1)
	})
	<-started

	done := make(chan int)
	go func() { done <- s.cancelAll() }()

	select {
	case <-done:
		t.Fatal("cancelAll returned while a task was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(unblock)
	select {
	case n := <-done:
		if n != 0 {
			t.Fatalf("Expected no stopped tasks, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelAll did not return after the task finished")
	}
	if atomic.LoadInt32(&finished) != 1 {
		t.Fatal("Expected the running task to finish before cancelAll returned")
	}
}
