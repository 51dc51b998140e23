package ksync

import (
	"sync"
	"testing"

	"krtos/internal/sched"
	"krtos/internal/syscall"
)

func TestMutexTryLock(t *testing.T) {
	var m Mutex
	if m.IsWaiting() {
		t.Fatalf("Expected a zero mutex to be unlocked")
	}
	if !m.TryLock() {
		t.Fatalf("Expected the first TryLock to succeed")
	}
	if m.TryLock() {
		t.Fatalf("Expected a second TryLock to fail")
	}
	if !m.IsWaiting() {
		t.Errorf("Expected a locked mutex to report waiting")
	}
	// outside a task the holder is unknown
	if _, ok := m.Holder(); ok {
		t.Errorf("Expected no holder outside task context")
	}
	m.Unlock()
	if m.IsWaiting() {
		t.Errorf("Expected unlocked after Unlock")
	}
	// no ownership check
	m.Unlock()
	if !m.TryLock() {
		t.Errorf("Expected TryLock after a stray Unlock to succeed")
	}
}

// selfGate answers the self syscall and notes whether the mutex was already
// locked when the trap happened.
type selfGate struct {
	mu         *Mutex
	lockedSeen []bool
}

func (g *selfGate) Invoke(req sched.Request) sched.Result {
	if req.Op == sched.OpSelf {
		g.lockedSeen = append(g.lockedSeen, g.mu.IsWaiting())
		return sched.Result{OK: true, Task: 7}
	}
	return sched.Result{OK: true}
}

func TestMutexHolderRecordedWithoutTrapWindow(t *testing.T) {
	var mu Mutex
	g := &selfGate{mu: &mu}
	syscall.Bind(g)
	t.Cleanup(func() { syscall.Bind(nil) })

	if !mu.TryLock() {
		t.Fatalf("Expected TryLock to succeed")
	}
	if len(g.lockedSeen) != 1 || g.lockedSeen[0] {
		t.Errorf("Expected the only trap to happen before the lock was taken, got %v", g.lockedSeen)
	}
	if id, held := mu.Holder(); !held || id != 7 {
		t.Errorf("Expected holder 7, got %d (held=%v)", id, held)
	}
}

// Two tasks of equal priority increment a shared counter under a mutex and
// yield inside the critical section to force contention.
func TestMutexMutualExclusion(t *testing.T) {
	const n = 200
	var (
		mu      Mutex
		counter int
		inside  int
		overlap bool
		wg      sync.WaitGroup
	)
	done := make(chan struct{})
	wg.Add(2)
	go func() {
		wg.Wait()
		close(done)
	}()

	body := func(any, any) {
		defer wg.Done()
		for i := 0; i < n; i++ {
			mu.Lock()
			inside++
			if inside != 1 {
				overlap = true
			}
			v := counter
			syscall.Yield()
			counter = v + 1
			inside--
			mu.Unlock()
			syscall.Yield()
		}
	}
	a := sched.NewTask(2, 0, body, nil, nil)
	b := sched.NewTask(2, 0, body, nil, nil)

	_, m := boot(t, sched.DefaultConfig(), a, b)
	ticking(t, m)
	wait(t, done, "both tasks to finish")

	if overlap {
		t.Errorf("two tasks were inside the critical section at once")
	}
	if counter != 2*n {
		t.Errorf("Expected counter %d, got %d", 2*n, counter)
	}
}

func TestMutexRecordsHolder(t *testing.T) {
	var mu Mutex
	var id sched.TaskID
	var held bool
	done := make(chan struct{})

	a := sched.NewTask(2, 0, func(any, any) {
		mu.Lock()
		id, held = mu.Holder()
		mu.Unlock()
		close(done)
	}, nil, nil)

	boot(t, sched.DefaultConfig(), a)
	wait(t, done, "task to lock")

	if !held || id != a.ID() {
		t.Errorf("Expected holder %d, got %d (held=%v)", a.ID(), id, held)
	}
}

// A low priority holder is lifted over a medium priority task while a high
// priority task waits on the mutex.
func TestMutexPriorityInheritance(t *testing.T) {
	cfg := sched.DefaultConfig()
	cfg.Policy = sched.PolicyHighest.String()
	cfg.PriorityInheritance = true

	var (
		mu      Mutex
		order   []string
		orderMu sync.Mutex
	)
	record := func(s string) {
		orderMu.Lock()
		order = append(order, s)
		orderMu.Unlock()
	}
	done := make(chan struct{})

	low := sched.NewTask(1, 0, func(any, any) {
		mu.Lock()
		syscall.Sleep(3) // high blocks on the lock meanwhile
		until := syscall.GetTime() + 30
		for syscall.GetTime() < until {
			syscall.Yield() // mid is ready for most of this
		}
		record("low")
		mu.Unlock()
		syscall.Yield()
	}, nil, nil)
	mid := sched.NewTask(3, 0, func(any, any) {
		syscall.Sleep(10)
		record("mid")
	}, nil, nil)
	high := sched.NewTask(5, 0, func(any, any) {
		syscall.Sleep(1)
		mu.Lock()
		record("high")
		mu.Unlock()
		close(done)
	}, nil, nil)

	_, m := boot(t, cfg, low, mid, high)
	ticking(t, m)
	wait(t, done, "high to get the lock")

	orderMu.Lock()
	defer orderMu.Unlock()
	if len(order) < 2 || order[0] != "low" || order[1] != "high" {
		t.Errorf("Expected low to release before mid ran, got %v", order)
	}
}
