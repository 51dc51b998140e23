package job

import (
	"bytes"
	"strings"
	"testing"

	"krtos/internal/ksync"
	"krtos/internal/syscall"
)

func testObjects() *Objects {
	return &Objects{
		Mutexes:    map[string]*ksync.Mutex{"m": {}},
		Semaphores: map[string]*ksync.Semaphore{"s": ksync.NewSemaphore(1)},
		Queues:     map[string]*ksync.Queue[int64]{"q": ksync.NewQueue[int64](2)},
	}
}

func TestCompile(t *testing.T) {
	p, err := Compile("t", []string{
		"# warm up",
		"",
		"sleep 10",
		"yield",
		"spin 100",
		"lock m",
		"unlock m",
		"wait s",
		"post s",
		"push q -3",
		"pop q",
		"malloc 2KB",
		"malloc 64",
		"free",
		`log "two words" and more`,
		"forever",
	}, testObjects())
	if err != nil {
		t.Fatal(err)
	}
	if p.Len() != 13 {
		t.Errorf("Expected 13 steps, got %d", p.Len())
	}
	if !p.Forever() {
		t.Errorf("Expected a forever program")
	}
}

func TestCompileErrors(t *testing.T) {
	for name, lines := range map[string][]string{
		"unknown op":      {"jump 3"},
		"unknown mutex":   {"lock nope"},
		"unknown sem":     {"post nope"},
		"unknown queue":   {"pop nope"},
		"arity":           {"sleep"},
		"extra args":      {"yield now"},
		"bad number":      {"sleep soon"},
		"negative spin":   {"spin -1"},
		"bad push value":  {"push q x"},
		"bad size":        {"malloc lots"},
		"after forever":   {"forever", "yield"},
		"after exit":      {"exit", "yield"},
		"unclosed quote":  {`log "oops`},
		"forever arity":   {"forever 2"},
		"sleep overflows": {"sleep 99999999999"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := Compile("t", lines, testObjects()); err == nil {
				t.Errorf("Expected %v to fail", lines)
			}
		})
	}
}

func TestCompileErrorNamesLine(t *testing.T) {
	_, err := Compile("worker", []string{"yield", "lock x"}, testObjects())
	if err == nil || !strings.HasPrefix(err.Error(), "worker:2:") {
		t.Errorf("Expected the error to name worker:2, got %v", err)
	}
}

// Without a bound gate every trap is inert, so straight-line programs run
// directly on the test goroutine.
func TestEntryRunsSteps(t *testing.T) {
	syscall.Bind(nil)
	objs := testObjects()
	p, err := Compile("t", []string{
		"push q 7",
		"push q 8",
		"pop q",
		"log popped $last",
		"wait s",
		"log done",
		"exit",
	}, objs)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	p.Entry(&buf)(nil, nil)

	want := "[0000000] t: popped 7\n[0000000] t: done\n"
	if buf.String() != want {
		t.Errorf("Expected %q, got %q", want, buf.String())
	}
	if objs.Queues["q"].Size() != 1 {
		t.Errorf("Expected one element left, got %d", objs.Queues["q"].Size())
	}
	if objs.Semaphores["s"].Count() != 0 {
		t.Errorf("Expected the semaphore taken")
	}
}
