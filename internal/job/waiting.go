package job

import (
	"krtos/internal/ksync"
	"krtos/internal/syscall"
)

// Steps that can take the task off the core.

func sleepStep(ms uint32) step {
	return func(*run) { syscall.Sleep(ms) }
}

func yieldStep(*run) { syscall.Yield() }

func lockStep(m *ksync.Mutex) step {
	return func(*run) { m.Lock() }
}

func waitStep(s *ksync.Semaphore) step {
	return func(*run) { s.Decrement() }
}

func pushStep(q *ksync.Queue[int64], v int64) step {
	return func(*run) { q.Push(v) }
}

func popStep(q *ksync.Queue[int64]) step {
	return func(r *run) { r.last = q.CopyAndPop() }
}
