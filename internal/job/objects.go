package job

import (
	"krtos/internal/ksync"
)

// Objects are the named synchronization objects programs refer to.
type Objects struct {
	Mutexes    map[string]*ksync.Mutex
	Semaphores map[string]*ksync.Semaphore
	Queues     map[string]*ksync.Queue[int64]
}

// NewObjects creates every object the scenario declares.
func NewObjects(sc Scenario) *Objects {
	o := &Objects{
		Mutexes:    make(map[string]*ksync.Mutex),
		Semaphores: make(map[string]*ksync.Semaphore),
		Queues:     make(map[string]*ksync.Queue[int64]),
	}
	for _, name := range sc.Mutexes {
		o.Mutexes[name] = &ksync.Mutex{}
	}
	for name, n := range sc.Semaphores {
		o.Semaphores[name] = ksync.NewSemaphore(n)
	}
	for name, n := range sc.Queues {
		o.Queues[name] = ksync.NewQueue[int64](n)
	}
	return o
}
