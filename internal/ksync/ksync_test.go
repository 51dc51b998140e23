package ksync

import (
	"testing"
	"time"

	"krtos/internal/port/sim"
	"krtos/internal/sched"
)

const waitLimit = 5 * time.Second

func boot(t *testing.T, cfg sched.Config, tasks ...*sched.Task) (*sched.Scheduler, *sim.Machine) {
	t.Helper()
	m := sim.New(1024, cfg.TickMS)
	s := sched.New(m, cfg)
	for _, tk := range tasks {
		if err := s.Register(tk); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if err := m.Boot(s); err != nil {
		t.Fatalf("boot: %v", err)
	}
	t.Cleanup(m.Halt)
	return s, m
}

func ticking(t *testing.T, m *sim.Machine) {
	t.Helper()
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			m.Tick()
			time.Sleep(50 * time.Microsecond)
		}
	}()
	t.Cleanup(func() {
		close(stop)
		<-done
	})
}

func wait(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(waitLimit):
		t.Fatalf("timed out waiting for %s", what)
	}
}
