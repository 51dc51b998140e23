// Package ksync provides the blocking primitives tasks share: Mutex,
// Semaphore and Queue. Blocking is cooperative: a task that cannot proceed
// yields on the primitive and the scheduler polls IsWaiting until it can.
package ksync

import (
	"sync/atomic"

	"krtos/internal/sched"
	"krtos/internal/syscall"
)

// Mutex is a binary lock. The zero value is unlocked.
//
// There is no ownership check: Unlock from a task that does not hold the
// lock releases it anyway.
type Mutex struct {
	locked atomic.Bool
	holder atomic.Uint32
}

var _ sched.Holder = (*Mutex)(nil)

// Lock blocks until the mutex is acquired.
func (m *Mutex) Lock() {
	for !m.TryLock() {
		syscall.YieldOn(m)
	}
}

// TryLock makes a single attempt to acquire the mutex. The caller's ID is
// fetched first so that no trap separates taking the lock from recording
// the holder.
func (m *Mutex) TryLock() bool {
	self := syscall.Self()
	if !m.locked.CompareAndSwap(false, true) {
		return false
	}
	m.holder.Store(uint32(self))
	return true
}

func (m *Mutex) Unlock() {
	m.holder.Store(0)
	m.locked.Store(false)
}

// IsWaiting reports whether the mutex is locked.
func (m *Mutex) IsWaiting() bool { return m.locked.Load() }

// Holder returns the task that acquired the mutex, if known.
func (m *Mutex) Holder() (sched.TaskID, bool) {
	id := sched.TaskID(m.holder.Load())
	return id, id != 0 && m.locked.Load()
}
