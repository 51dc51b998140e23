// Package sim is a host port for the scheduler. Every task context is a
// goroutine and exactly one of them owns the simulated core at a time; the
// others are parked on their resume channel.
//
// A mutex stands in for the interrupt mask: the tick, trap and pend handlers
// all run while it is held. A requested switch is taken at the running
// task's next exception return, which in this port is the end of any trap or
// the wake-up of the idle task from WaitForInterrupt. A task that computes
// without ever trapping is therefore never preempted here.
package sim

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"

	"krtos/internal/sched"
	"krtos/internal/syscall"
)

const (
	stackBase = 0x2001_0000
	heapBase  = 0x2008_0000
)

var ErrNoHandler = errors.New("sim: no trap handler installed")

// Starter is what Boot launches, normally a *sched.Scheduler.
type Starter interface {
	Start() error
}

// Machine emulates one core, its tick timer and its exception vectors.
type Machine struct {
	mu      sync.Mutex // interrupt mask
	now     atomic.Uint64
	step    uint64 // ms per tick
	tick    func()
	pend    func()
	trap    func(sched.Request) sched.Result
	pending bool
	running *frame
	handoff *handoff
	heap    *Heap

	cmu      sync.Mutex // guards contexts
	contexts map[uintptr]*frame
	nextSP   uintptr

	wg     sync.WaitGroup // one per launched context goroutine
	irq    chan struct{}
	halt   chan struct{}
	halted atomic.Bool
}

var _ sched.Port = (*Machine)(nil)

// New creates a machine with a heap of heapSize bytes for malloc and free
// and a tick timer firing every tickMS milliseconds.
func New(heapSize, tickMS int) *Machine {
	if tickMS <= 0 {
		tickMS = 1
	}
	return &Machine{
		step:     uint64(tickMS),
		heap:     NewHeap(heapBase, heapSize),
		contexts: make(map[uintptr]*frame),
		nextSP:   stackBase,
		irq:      make(chan struct{}, 1),
		halt:     make(chan struct{}),
	}
}

// Boot starts s with interrupts masked and binds the machine as the trap
// gate for the syscall package.
func (m *Machine) Boot(s Starter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return s.Start()
}

func (m *Machine) Runtime() uint64 { return m.now.Load() }

// TickPeriod returns the milliseconds one tick adds to the clock.
func (m *Machine) TickPeriod() uint64 { return m.step }

func (m *Machine) InstallTick(handler func()) { m.tick = handler }

func (m *Machine) InstallHandlers(pend func(), trap func(sched.Request) sched.Result) {
	m.pend, m.trap = pend, trap
}

// Pend is only ever called from a handler, with the mask held.
func (m *Machine) Pend() { m.pending = true }

func (m *Machine) SetupTaskStack(trampoline func(*sched.Task), t *sched.Task) uintptr {
	m.cmu.Lock()
	defer m.cmu.Unlock()

	m.nextSP += uintptr(len(t.Stack))
	c := &frame{
		sp:         m.nextSP,
		task:       t,
		trampoline: trampoline,
		resume:     make(chan struct{}, 1),
	}
	m.contexts[c.sp] = c
	return c.sp
}

func (m *Machine) StartFirst(t *sched.Task) {
	syscall.Bind(m)
	c := m.lookup(t.StackPointer)
	m.running = c
	m.launch(c)
}

// SwitchTask records the hand-off; the caller's goroutine performs it on
// its way out of the handler.
func (m *Machine) SwitchTask(prev, next *sched.Task) {
	from := m.running
	to := m.lookup(next.StackPointer)
	if prev != nil && from != nil {
		prev.StackPointer = from.sp
	}
	m.handoff = &handoff{from: from, to: to, exit: prev == nil}
	m.running = to
}

// Invoke is the supervisor call. It must only be used from task context.
func (m *Machine) Invoke(req sched.Request) sched.Result {
	if m.halted.Load() {
		runtime.Goexit()
	}

	m.mu.Lock()
	res := sched.Result{Err: ErrNoHandler}
	if m.trap != nil {
		res = m.trap(req)
	}
	m.exceptionReturn()
	return res
}

func (m *Machine) WaitForInterrupt() {
	select {
	case <-m.irq:
	case <-m.halt:
		runtime.Goexit()
	}
	m.mu.Lock()
	m.exceptionReturn()
}

func (m *Machine) Malloc(size uintptr) uintptr { return m.heap.Alloc(size) }

func (m *Machine) Free(ptr uintptr) { m.heap.Free(ptr) }

// Heap exposes the allocator behind malloc and free.
func (m *Machine) Heap() *Heap { return m.heap }

// Tick advances the clock by one tick period and raises the tick interrupt.
func (m *Machine) Tick() {
	if m.halted.Load() {
		return
	}
	m.mu.Lock()
	m.now.Add(m.step)
	if m.tick != nil {
		m.tick()
	}
	m.mu.Unlock()

	select {
	case m.irq <- struct{}{}:
	default:
	}
}

// Advance raises n ticks.
func (m *Machine) Advance(n int) {
	for i := 0; i < n; i++ {
		m.Tick()
	}
}

// Masked runs fn with interrupts masked, so it can read scheduler state
// without racing the handlers.
func (m *Machine) Masked(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}

// Halt stops the machine: parked contexts are released, the running one
// exits at its next trap. Halt waits for all of them and then unbinds the
// syscall gate.
func (m *Machine) Halt() {
	if !m.halted.CompareAndSwap(false, true) {
		return
	}
	close(m.halt)
	m.wg.Wait()
	syscall.Unbind(m)
}

// exceptionReturn is entered with the mask held and releases it. It takes a
// pending switch and, when the running context changed, hands the core over
// and parks the calling goroutine.
func (m *Machine) exceptionReturn() {
	if m.pending && m.pend != nil {
		m.pending = false
		m.pend()
	}
	h := m.handoff
	m.handoff = nil
	if h != nil {
		m.launch(h.to)
	}
	m.mu.Unlock()

	if h == nil {
		return
	}
	if h.exit {
		runtime.Goexit()
	}
	select {
	case <-h.from.resume:
	case <-m.halt:
		runtime.Goexit()
	}
}

func (m *Machine) lookup(sp uintptr) *frame {
	m.cmu.Lock()
	defer m.cmu.Unlock()
	c, ok := m.contexts[sp]
	if !ok {
		panic("sim: no frame for stack pointer")
	}
	return c
}

// launch makes c runnable: its goroutine starts on the first switch and is
// resumed on later ones.
func (m *Machine) launch(c *frame) {
	if !c.started {
		c.started = true
		m.wg.Add(1)
		go m.run(c)
		return
	}
	c.resume <- struct{}{}
}

func (m *Machine) run(c *frame) {
	defer m.wg.Done()
	c.trampoline(c.task)
}
