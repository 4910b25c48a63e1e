// Package worker runs tasks in FIFO order per key, with different keys
// running in parallel.
package worker

import (
	"sync"
)

type Serial struct {
	mu     sync.Mutex
	queues map[int64][]func()
	wg     sync.WaitGroup
}

func NewSerial() *Serial {
	return &Serial{queues: make(map[int64][]func())}
}

// Submit queues fn behind any pending tasks for key. A goroutine drains the
// key's queue and exits once it is empty.
func (s *Serial) Submit(key int64, fn func()) {
	s.mu.Lock()
	q, running := s.queues[key]
	s.queues[key] = append(q, fn)
	if !running {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if !running {
		go s.drain(key)
	}
}

func (s *Serial) drain(key int64) {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		q := s.queues[key]
		if len(q) == 0 {
			delete(s.queues, key)
			s.mu.Unlock()
			return
		}
		fn := q[0]
		s.queues[key] = q[1:]
		s.mu.Unlock()

		fn()
	}
}

// Wait blocks until every queued task has run.
func (s *Serial) Wait() {
	s.wg.Wait()
}

// Active returns the number of keys with queued or running tasks.
func (s *Serial) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queues)
}
