package uthread

import (
	"fmt"
)

// Sem is a counting semaphore with a FIFO wait queue, integrated with a
// Runtime so that Down suspends the caller when the count goes negative and
// Up wakes the head waiter. The initial value passed to Create is restricted
// to {0,1}; subsequent Down/Up calls let the count range freely, matching
// the source's own "n must be 0 or 1" check on sem_init.
type Sem struct {
	rt          *Runtime
	initialized bool
	value       int
	waiters     *waitList[*Thread]
	id          uint64
}

// CreateSem initializes s with initial value n, which must be 0 or 1. s must
// not already be initialized.
func (rt *Runtime) CreateSem(s *Sem, n int) error {
	if s == nil {
		return fmt.Errorf("%w: nil semaphore", ErrInvalidArgument)
	}
	if n != 0 && n != 1 {
		return fmt.Errorf("%w: initial value must be 0 or 1, got %d", ErrInvalidArgument, n)
	}
	if s.initialized {
		return fmt.Errorf("%w", ErrDoubleInit)
	}

	s.rt = rt
	s.value = n
	s.waiters = newWaitList[*Thread]()
	s.initialized = true
	s.id = rt.semCounter.Add(1)

	rt.cfg.Logger.Info("semaphore initialized", "sem_id", s.id, "initial_value", n)
	return nil
}

// Down decrements s's value. If the value drops below zero, the calling
// thread is appended to s's FIFO wait queue, marked unavailable, and the
// scheduler yields; Down returns once a matching Up has released this
// waiter.
func (s *Sem) Down() error {
	if !s.initialized {
		return fmt.Errorf("%w", ErrUninitialized)
	}
	rt := s.rt

	Lock(&rt.schedLock)
	s.value--
	blocked := s.value < 0
	var self *Thread
	if blocked {
		self = rt.current
		s.waiters.enqueue(self)
		self.available = false
	}
	Unlock(&rt.schedLock)

	if blocked {
		return rt.Yield()
	}
	return nil
}

// Up increments s's value. If the value is now at most zero and a waiter is
// queued, the head waiter is dequeued and marked available; the scheduler
// then yields to give it a prompt chance to run (optional for correctness,
// but it shortens the latency between Up and the waiter actually resuming).
func (s *Sem) Up() error {
	if !s.initialized {
		return fmt.Errorf("%w", ErrUninitialized)
	}
	rt := s.rt

	Lock(&rt.schedLock)
	s.value++
	var woken *Thread
	if s.value <= 0 {
		if w, ok := s.waiters.dequeue(); ok {
			woken = w
			woken.available = true
		}
	}
	Unlock(&rt.schedLock)

	if woken != nil {
		return rt.Yield()
	}
	return nil
}

// Destroy releases every queued waiter's node, resets the value, and marks s
// uninitialized. Threads still blocked on s at this point are lost — their
// available flag is never restored — matching the source's documented
// caller responsibility to drain waiters before destroying.
func (s *Sem) Destroy() error {
	if !s.initialized {
		return fmt.Errorf("%w", ErrUninitialized)
	}
	dropped := s.waiters.drain()
	s.value = 0
	s.initialized = false
	if s.rt != nil {
		s.rt.cfg.Logger.Info("semaphore destroyed", "sem_id", s.id, "waiters_dropped", dropped)
	}
	return nil
}
