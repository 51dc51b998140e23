package job

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"

	"krtos/internal/sched"
	"krtos/internal/trace"
)

// TaskSpec declares one task of a scenario.
type TaskSpec struct {
	Name      string   `yaml:"name"`
	Priority  int      `yaml:"priority"`
	StackSize string   `yaml:"stack_size"` // scheduler default when empty
	Program   []string `yaml:"program"`
}

// Scenario is a whole scenario file: scheduler settings, trace sinks, the
// shared objects and the tasks using them.
type Scenario struct {
	Sched      sched.Config      `yaml:"-"`
	Trace      trace.Config      `yaml:"trace"`
	DurationMS int               `yaml:"duration_ms"` // 0 runs until interrupted
	Mutexes    []string          `yaml:"mutexes"`
	Semaphores map[string]uint32 `yaml:"semaphores"` // name -> initial count
	Queues     map[string]int    `yaml:"queues"`     // name -> capacity
	Tasks      []TaskSpec        `yaml:"tasks"`
}

// Load reads a scenario. The scheduler keys live at the top level of the
// same file and are read by sched.Load.
func Load(path string) (Scenario, error) {
	cfg, err := sched.Load(path)
	if err != nil {
		return Scenario{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return Scenario{}, fmt.Errorf("parse %s: %w", path, err)
	}
	sc.Sched = cfg
	if err := sc.validate(); err != nil {
		return Scenario{}, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func (sc Scenario) validate() error {
	if len(sc.Tasks) == 0 {
		return fmt.Errorf("no tasks")
	}
	// idle occupies one slot
	if len(sc.Tasks) > sc.Sched.Capacity-1 {
		return fmt.Errorf("%d tasks do not fit a table of %d", len(sc.Tasks), sc.Sched.Capacity)
	}
	if sc.DurationMS < 0 {
		return fmt.Errorf("negative duration_ms")
	}
	seen := make(map[string]bool)
	for i, t := range sc.Tasks {
		if t.Name == "" {
			return fmt.Errorf("task %d has no name", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate task %q", t.Name)
		}
		seen[t.Name] = true
		if t.Priority < sched.MinPriority || t.Priority > sched.MaxPriority {
			return fmt.Errorf("task %q: priority %d out of range", t.Name, t.Priority)
		}
	}
	for name, n := range sc.Queues {
		if n < 1 {
			return fmt.Errorf("queue %q: capacity must be positive", name)
		}
	}
	return nil
}
