package trace

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"krtos/internal/sched"
)

var names = Names{0: "idle", 1: "high", 2: "low"}

func TestConsoleStripsColor(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, false, names)
	if err := c.Write(sched.StatusEvent{Time: 12, Kind: sched.StatusDispatch, TaskID: 1, Priority: 5}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Errorf("Expected no escape sequences, got %q", out)
	}
	for _, want := range []string{"Time: 0000012", "Dispatch", "Task: 0001", "high", "Priority: 005"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in %q", want, out)
		}
	}
}

func TestConsoleKeepsColor(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, true, names)
	c.Write(sched.StatusEvent{Kind: sched.StatusFinish, TaskID: 2})
	if !strings.Contains(buf.String(), ansiRed) {
		t.Errorf("Expected a coloured finish line, got %q", buf.String())
	}
}

func TestCenter(t *testing.T) {
	if got := center("ab", 6); got != "  ab  " {
		t.Errorf("center = %q", got)
	}
	if got := center("abc", 6); got != " abc  " {
		t.Errorf("center = %q", got)
	}
	if got := center("toolong", 3); got != "toolong" {
		t.Errorf("center = %q", got)
	}
}

func TestCSVRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	c, err := CreateCSV(path, names)
	if err != nil {
		t.Fatal(err)
	}
	c.Write(sched.StatusEvent{Time: 0, Kind: sched.StatusDispatch, TaskID: 1, Priority: 5})
	c.Write(sched.StatusEvent{Time: 10, Kind: sched.StatusWake, TaskID: 7, Priority: 2})
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("Expected header and two records, got %d", len(recs))
	}
	if strings.Join(recs[0], ",") != "time_ms,event,task_id,task,priority" {
		t.Errorf("unexpected header %v", recs[0])
	}
	if strings.Join(recs[1], ",") != "0,Dispatch,1,high,5" {
		t.Errorf("unexpected record %v", recs[1])
	}
	if strings.Join(recs[2], ",") != "10,Wake,7,task7,2" {
		t.Errorf("unexpected record %v", recs[2])
	}
}

func TestFrameRoundTrip(t *testing.T) {
	ev := sched.StatusEvent{Time: 1234, Kind: sched.StatusSleep, TaskID: 3, Priority: 4}
	frame := Frame(ev)
	if !bytes.HasPrefix(frame, []byte("$1234,Sleep,3,4*")) || !bytes.HasSuffix(frame, []byte("\r\n")) {
		t.Fatalf("unexpected frame %q", frame)
	}
	payload, err := ParseFrame(frame)
	if err != nil {
		t.Fatal(err)
	}
	if payload != "1234,Sleep,3,4" {
		t.Errorf("unexpected payload %q", payload)
	}
}

func TestParseFrameRejectsCorruption(t *testing.T) {
	frame := Frame(sched.StatusEvent{Time: 1, Kind: sched.StatusBlock, TaskID: 2, Priority: 1})
	frame[2] = '9'
	if _, err := ParseFrame(frame); err == nil {
		t.Errorf("Expected a checksum mismatch")
	}
	for _, bad := range []string{"", "1,Block,2,1*0000\r\n", "$1,Block,2,1\r\n", "$x*12\r\n"} {
		if _, err := ParseFrame([]byte(bad)); err == nil {
			t.Errorf("Expected %q to be rejected", bad)
		}
	}
}

type nopCloser struct{ bytes.Buffer }

func (*nopCloser) Close() error { return nil }

func TestSerialSinkWritesFrames(t *testing.T) {
	var w nopCloser
	s := NewSerial(&w)
	s.Write(sched.StatusEvent{Time: 5, Kind: sched.StatusDispatch, TaskID: 1, Priority: 5})
	s.Write(sched.StatusEvent{Time: 6, Kind: sched.StatusIdle, TaskID: 0, Priority: 0})
	lines := strings.SplitAfter(w.String(), "\r\n")
	if len(lines) != 3 || lines[2] != "" {
		t.Fatalf("Expected two frames, got %q", w.String())
	}
	for _, l := range lines[:2] {
		if _, err := ParseFrame([]byte(l)); err != nil {
			t.Error(err)
		}
	}
}

type failingSink struct{ closed bool }

func (f *failingSink) Write(sched.StatusEvent) error { return errors.New("boom") }
func (f *failingSink) Close() error                  { f.closed = true; return nil }

type memorySink struct{ got []sched.StatusEvent }

func (m *memorySink) Write(ev sched.StatusEvent) error { m.got = append(m.got, ev); return nil }
func (m *memorySink) Close() error                    { return nil }

func TestTracerDrainsOnCancel(t *testing.T) {
	tr, err := New(Config{Quiet: true}, names)
	if err != nil {
		t.Fatal(err)
	}
	bad, mem := &failingSink{}, &memorySink{}
	tr.Add(bad)
	tr.Add(mem)

	ch := make(chan sched.StatusEvent, 8)
	for i := 0; i < 5; i++ {
		ch <- sched.StatusEvent{Time: uint64(i), Kind: sched.StatusDispatch}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tr.Run(ctx, ch); err != nil {
		t.Fatal(err)
	}
	if len(mem.got) != 5 || tr.Events() != 5 {
		t.Errorf("Expected all 5 buffered events, got %d", len(mem.got))
	}
	if tr.Errors() != 5 {
		t.Errorf("Expected 5 failed writes, got %d", tr.Errors())
	}
	tr.Close()
	if !bad.closed {
		t.Errorf("Expected sinks closed")
	}
}

func TestTracerStopsOnClosedChannel(t *testing.T) {
	tr, _ := New(Config{Quiet: true}, names)
	mem := &memorySink{}
	tr.Add(mem)
	ch := make(chan sched.StatusEvent, 1)
	ch <- sched.StatusEvent{Kind: sched.StatusIdle}
	close(ch)
	if err := tr.Run(context.Background(), ch); err != nil {
		t.Fatal(err)
	}
	if len(mem.got) != 1 {
		t.Errorf("Expected one event, got %d", len(mem.got))
	}
}

func TestNewFailsOnBadCSVPath(t *testing.T) {
	_, err := New(Config{Quiet: true, CSV: filepath.Join(t.TempDir(), "missing", "x.csv")}, names)
	if err == nil {
		t.Errorf("Expected an error for an unwritable path")
	}
}
