package job

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/inhies/go-bytesize"

	"krtos/internal/sched"
	"krtos/internal/syscall"
)

// run is the per-invocation state of a compiled program.
type run struct {
	name  string
	out   io.Writer
	last  int64     // value of the latest pop
	ptrs  []uintptr // outstanding allocations, newest last
	pc    int
	steps []step
}

type step func(r *run)

// control instructions
const (
	ctlNone = iota
	ctlForever
	ctlExit
)

// Program is a compiled task body.
type Program struct {
	name    string
	steps   []step
	forever bool
	exits   bool
}

// Compile turns program lines into a Program. Lines are split like shell
// words; blank lines and # comments are skipped. Object names resolve
// against objs.
func Compile(name string, lines []string, objs *Objects) (*Program, error) {
	p := &Program{name: name}
	for i, line := range lines {
		words, err := shlex.Split(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, i+1, err)
		}
		if len(words) == 0 {
			continue
		}
		if p.forever || p.exits {
			return nil, fmt.Errorf("%s:%d: %q is unreachable", name, i+1, words[0])
		}
		st, ctl, err := compileLine(words, objs)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", name, i+1, err)
		}
		switch ctl {
		case ctlForever:
			p.forever = true
		case ctlExit:
			p.exits = true
		default:
			p.steps = append(p.steps, st)
		}
	}
	return p, nil
}

// Len returns the number of compiled steps.
func (p *Program) Len() int { return len(p.steps) }

// Forever reports whether the program restarts after its last step.
func (p *Program) Forever() bool { return p.forever }

// Entry returns the task body running p and logging to out.
func (p *Program) Entry(out io.Writer) sched.Entry {
	return func(any, any) {
		r := &run{name: p.name, out: out, steps: p.steps}
		for {
			for r.pc = 0; r.pc < len(r.steps); r.pc++ {
				r.steps[r.pc](r)
			}
			if !p.forever {
				return
			}
			// an empty forever loop still has to give up the core
			if len(r.steps) == 0 {
				syscall.Yield()
			}
		}
	}
}

func compileLine(words []string, objs *Objects) (step, int, error) {
	op, args := words[0], words[1:]
	want := func(n int) error {
		if len(args) != n {
			return fmt.Errorf("%s takes %d argument(s), got %d", op, n, len(args))
		}
		return nil
	}

	switch op {
	case "sleep":
		if err := want(1); err != nil {
			return nil, 0, err
		}
		ms, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return nil, 0, fmt.Errorf("sleep: %w", err)
		}
		return sleepStep(uint32(ms)), ctlNone, nil
	case "yield":
		if err := want(0); err != nil {
			return nil, 0, err
		}
		return yieldStep, ctlNone, nil
	case "spin":
		if err := want(1); err != nil {
			return nil, 0, err
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return nil, 0, fmt.Errorf("spin: bad count %q", args[0])
		}
		return func(*run) {
			for i := 0; i < n; i++ {
				syscall.GetTime()
			}
		}, ctlNone, nil
	case "lock", "unlock":
		if err := want(1); err != nil {
			return nil, 0, err
		}
		m, ok := objs.Mutexes[args[0]]
		if !ok {
			return nil, 0, fmt.Errorf("unknown mutex %q", args[0])
		}
		if op == "lock" {
			return lockStep(m), ctlNone, nil
		}
		return func(*run) { m.Unlock() }, ctlNone, nil
	case "wait", "post":
		if err := want(1); err != nil {
			return nil, 0, err
		}
		s, ok := objs.Semaphores[args[0]]
		if !ok {
			return nil, 0, fmt.Errorf("unknown semaphore %q", args[0])
		}
		if op == "wait" {
			return waitStep(s), ctlNone, nil
		}
		return func(*run) { s.Increment() }, ctlNone, nil
	case "push":
		if err := want(2); err != nil {
			return nil, 0, err
		}
		q, ok := objs.Queues[args[0]]
		if !ok {
			return nil, 0, fmt.Errorf("unknown queue %q", args[0])
		}
		v, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("push: %w", err)
		}
		return pushStep(q, v), ctlNone, nil
	case "pop":
		if err := want(1); err != nil {
			return nil, 0, err
		}
		q, ok := objs.Queues[args[0]]
		if !ok {
			return nil, 0, fmt.Errorf("unknown queue %q", args[0])
		}
		return popStep(q), ctlNone, nil
	case "malloc":
		if err := want(1); err != nil {
			return nil, 0, err
		}
		n, err := parseBytes(args[0])
		if err != nil {
			return nil, 0, fmt.Errorf("malloc: %w", err)
		}
		return func(r *run) {
			if ptr := syscall.Malloc(n); ptr != 0 {
				r.ptrs = append(r.ptrs, ptr)
			}
		}, ctlNone, nil
	case "free":
		if err := want(0); err != nil {
			return nil, 0, err
		}
		return func(r *run) {
			if len(r.ptrs) == 0 {
				return
			}
			syscall.Free(r.ptrs[len(r.ptrs)-1])
			r.ptrs = r.ptrs[:len(r.ptrs)-1]
		}, ctlNone, nil
	case "log":
		msg := strings.Join(args, " ")
		return func(r *run) { r.log(msg) }, ctlNone, nil
	case "forever":
		if err := want(0); err != nil {
			return nil, 0, err
		}
		return nil, ctlForever, nil
	case "exit":
		if err := want(0); err != nil {
			return nil, 0, err
		}
		return nil, ctlExit, nil
	default:
		return nil, 0, fmt.Errorf("unknown instruction %q", op)
	}
}

// log prints msg with the task name and scheduler time. $last expands to
// the most recently popped value.
func (r *run) log(msg string) {
	if r.out == nil {
		return
	}
	msg = strings.ReplaceAll(msg, "$last", strconv.FormatInt(r.last, 10))
	fmt.Fprintf(r.out, "[%07d] %s: %s\n", syscall.GetTime(), r.name, msg)
}

// parseBytes accepts a plain byte count or a human size like 2KB.
func parseBytes(s string) (uintptr, error) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return uintptr(n), nil
	}
	b, err := bytesize.Parse(s)
	if err != nil {
		return 0, err
	}
	return uintptr(b), nil
}
