package job

import (
	"fmt"
	"io"

	"github.com/inhies/go-bytesize"

	"krtos/internal/sched"
	"krtos/internal/trace"
)

// Build compiles every task of sc and registers it with s in declaration
// order, which is also the scan order of the first-match policy. Program
// log lines go to out.
func Build(s *sched.Scheduler, sc Scenario, out io.Writer) (trace.Names, *Objects, error) {
	objs := NewObjects(sc)
	names := trace.Names{s.Idle().ID(): "idle"}

	for _, ts := range sc.Tasks {
		prog, err := Compile(ts.Name, ts.Program, objs)
		if err != nil {
			return nil, nil, err
		}
		stack := sc.Sched.StackBytes()
		if ts.StackSize != "" {
			b, err := bytesize.Parse(ts.StackSize)
			if err != nil {
				return nil, nil, fmt.Errorf("task %q: stack_size: %w", ts.Name, err)
			}
			stack = int(b)
		}
		t := sched.NewTask(ts.Priority, stack, prog.Entry(out), nil, nil)
		if err := s.Register(t); err != nil {
			return nil, nil, fmt.Errorf("task %q: %w", ts.Name, err)
		}
		names[t.ID()] = ts.Name
	}
	return names, objs, nil
}
