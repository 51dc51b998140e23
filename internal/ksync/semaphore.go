package ksync

import (
	"sync/atomic"

	"krtos/internal/syscall"
)

// Semaphore is a counting semaphore. The count never goes below zero.
type Semaphore struct {
	count atomic.Uint32
}

func NewSemaphore(initial uint32) *Semaphore {
	s := &Semaphore{}
	s.count.Store(initial)
	return s
}

// Decrement blocks until the count is positive and takes one.
func (s *Semaphore) Decrement() {
	for !s.TryDecrement() {
		syscall.YieldOn(s)
	}
}

// TryDecrement makes a single attempt to take one. It fails at zero and
// when the count changed between the load and the swap.
func (s *Semaphore) TryDecrement() bool {
	c := s.count.Load()
	if c == 0 {
		return false
	}
	return s.count.CompareAndSwap(c, c-1)
}

func (s *Semaphore) Increment() { s.count.Add(1) }

func (s *Semaphore) Count() uint32 { return s.count.Load() }

// IsWaiting reports whether a Decrement would block.
func (s *Semaphore) IsWaiting() bool { return s.count.Load() == 0 }
