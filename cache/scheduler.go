package cache

import (
	"sync"
	"time"
)

// scheduler runs delayed commits and cancels the ones still pending when its
// live query is released.
type scheduler struct {
	mu     sync.Mutex
	timers map[uint64]*time.Timer
	next   uint64
	closed bool

	running sync.WaitGroup
}

func newScheduler() *scheduler {
	return &scheduler{timers: make(map[uint64]*time.Timer)}
}

// after runs fn once d has elapsed unless cancelAll is called first.
// It reports false when the scheduler is already closed.
func (s *scheduler) after(d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	s.next++
	id := s.next
	s.timers[id] = time.AfterFunc(d, func() {
		s.mu.Lock()
		if _, ok := s.timers[id]; !ok {
			s.mu.Unlock()
			return
		}
		delete(s.timers, id)
		s.running.Add(1)
		s.mu.Unlock()

		defer s.running.Done()
		fn()
	})
	return true
}

// pending returns the number of scheduled tasks that have not run.
func (s *scheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// cancelAll stops every pending task, waits for the ones already running,
// closes the scheduler and returns how many were stopped. It must not be
// called from a task.
func (s *scheduler) cancelAll() int {
	s.mu.Lock()
	s.closed = true
	n := 0
	for id, t := range s.timers {
		if t.Stop() {
			n++
		}
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.running.Wait()
	return n
}
