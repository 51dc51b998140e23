// Package trace renders the scheduler's status stream to the console, a CSV
// file and an optional serial line.
package trace

import (
	"context"
	"errors"
	"fmt"
	"os"

	"krtos/internal/sched"
)

// Config mirrors the trace section of a scenario file.
type Config struct {
	CSV    string `yaml:"csv"`    // path of the CSV log, empty to disable
	Serial string `yaml:"serial"` // serial device, empty to disable
	Baud   int    `yaml:"baud"`   // 115200 (by default)
	Color  bool   `yaml:"color"`  // ANSI colours on the console
	Quiet  bool   `yaml:"quiet"`  // no console output
}

const DefaultBaud = 115200

// Sink receives every event the tracer consumes.
type Sink interface {
	Write(ev sched.StatusEvent) error
	Close() error
}

// Names maps task IDs to the labels printed next to them.
type Names map[sched.TaskID]string

func (n Names) label(id sched.TaskID) string {
	if s, ok := n[id]; ok {
		return s
	}
	return fmt.Sprintf("task%d", id)
}

// Tracer fans scheduler events out to its sinks.
type Tracer struct {
	sinks  []Sink
	events int
	errs   int
}

// New opens every sink cfg enables. On error the sinks opened so far are
// closed again.
func New(cfg Config, names Names) (*Tracer, error) {
	t := &Tracer{}
	if !cfg.Quiet {
		t.Add(NewConsole(os.Stdout, cfg.Color, names))
	}
	if cfg.CSV != "" {
		c, err := CreateCSV(cfg.CSV, names)
		if err != nil {
			t.Close()
			return nil, err
		}
		t.Add(c)
	}
	if cfg.Serial != "" {
		baud := cfg.Baud
		if baud <= 0 {
			baud = DefaultBaud
		}
		s, err := OpenSerial(cfg.Serial, baud)
		if err != nil {
			t.Close()
			return nil, err
		}
		t.Add(s)
	}
	return t, nil
}

func (t *Tracer) Add(s Sink) { t.sinks = append(t.sinks, s) }

// Events returns how many events have been handled.
func (t *Tracer) Events() int { return t.events }

// Errors returns how many sink writes failed.
func (t *Tracer) Errors() int { return t.errs }

// Handle writes ev to every sink. A failing sink does not stop the others.
func (t *Tracer) Handle(ev sched.StatusEvent) {
	t.events++
	for _, s := range t.sinks {
		if err := s.Write(ev); err != nil {
			t.errs++
		}
	}
}

// Run consumes events until ctx is done or the channel is closed. Events
// already buffered when ctx ends are still written.
func (t *Tracer) Run(ctx context.Context, events <-chan sched.StatusEvent) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			t.Handle(ev)
		case <-ctx.Done():
			for {
				select {
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					t.Handle(ev)
				default:
					return nil
				}
			}
		}
	}
}

func (t *Tracer) Close() error {
	var errs []error
	for _, s := range t.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	t.sinks = nil
	return errors.Join(errs...)
}
