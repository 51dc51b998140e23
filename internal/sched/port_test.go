package sched

// fakePort records what the scheduler asks of the architecture layer. Time
// only moves when a test calls tick.
type fakePort struct {
	now     uint64
	tickFn  func()
	pendFn  func()
	trapFn  func(Request) Result
	pending bool

	started  *Task
	switches [][2]*Task
	nextSP   uintptr
	heap     map[uintptr]uintptr
	freed    []uintptr
	onWFI    func()
}

func newFakePort() *fakePort {
	return &fakePort{nextSP: 0x2000_0000, heap: make(map[uintptr]uintptr)}
}

func (p *fakePort) Runtime() uint64       { return p.now }
func (p *fakePort) InstallTick(fn func()) { p.tickFn = fn }
func (p *fakePort) Pend()                 { p.pending = true }
func (p *fakePort) StartFirst(t *Task)    { p.started = t }

func (p *fakePort) WaitForInterrupt() {
	if p.onWFI != nil {
		p.onWFI()
	}
}

func (p *fakePort) SwitchTask(prev, next *Task) {
	p.switches = append(p.switches, [2]*Task{prev, next})
}

func (p *fakePort) InstallHandlers(pend func(), trap func(Request) Result) {
	p.pendFn, p.trapFn = pend, trap
}

func (p *fakePort) SetupTaskStack(_ func(*Task), t *Task) uintptr {
	p.nextSP += uintptr(len(t.Stack))
	return p.nextSP
}

func (p *fakePort) Invoke(req Request) Result {
	res := p.trapFn(req)
	p.service()
	return res
}

func (p *fakePort) Malloc(size uintptr) uintptr {
	if size == 0 {
		return 0
	}
	addr := 0x1000_0000 + uintptr(len(p.heap))*0x100
	p.heap[addr] = size
	return addr
}

func (p *fakePort) Free(ptr uintptr) {
	delete(p.heap, ptr)
	p.freed = append(p.freed, ptr)
}

// tick advances time by ms, running the tick handler for every millisecond
// and taking a pending switch right after it, the way an exception return
// would.
func (p *fakePort) tick(ms int) {
	for i := 0; i < ms; i++ {
		p.now++
		if p.tickFn != nil {
			p.tickFn()
		}
		p.service()
	}
}

func (p *fakePort) service() {
	if p.pending && p.pendFn != nil {
		p.pending = false
		p.pendFn()
	}
}

// flag is a Waitable controlled by the test.
type flag struct {
	waiting bool
	holder  TaskID
}

func (f *flag) IsWaiting() bool { return f.waiting }

func (f *flag) Holder() (TaskID, bool) { return f.holder, f.waiting && f.holder != 0 }
