package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"krtos/internal/job"
	"krtos/internal/port/sim"
	"krtos/internal/sched"
	"krtos/internal/trace"
)

func main() {
	path := flag.String("scenario", "config.yml", "scenario file")
	duration := flag.Duration("duration", 0, "override duration_ms from the scenario")
	quiet := flag.Bool("quiet", false, "no console trace")
	flag.Parse()

	if err := run(*path, *duration, *quiet); err != nil {
		fmt.Fprintln(os.Stderr, "ticksched:", err)
		os.Exit(1)
	}
}

func run(path string, duration time.Duration, quiet bool) error {
	// Read the scenario
	sc, err := job.Load(path)
	if err != nil {
		return err
	}
	if duration > 0 {
		sc.DurationMS = int(duration / time.Millisecond)
	}
	if quiet {
		sc.Trace.Quiet = true
	}

	m := sim.New(sc.Sched.HeapBytes(), sc.Sched.TickMS)
	s := sched.New(m, sc.Sched)
	names, _, err := job.Build(s, sc, os.Stdout)
	if err != nil {
		return err
	}
	tr, err := trace.New(sc.Trace, names)
	if err != nil {
		return err
	}
	defer tr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if sc.DurationMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(sc.DurationMS)*time.Millisecond)
		defer cancel()
	}

	if err := m.Boot(s); err != nil {
		return err
	}

	var clock sim.TickClock
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return clock.Run(ctx, time.Duration(sc.Sched.TickMS)*time.Millisecond, m.Tick)
	})
	g.Go(func() error {
		return tr.Run(ctx, s.StatusChannel())
	})
	err = g.Wait()
	m.Halt()

	fmt.Printf("ran %d ticks, traced %d events", clock.Count(), tr.Events())
	if d := s.Dropped(); d > 0 {
		fmt.Printf(", dropped %d", d)
	}
	fmt.Println()
	return err
}
