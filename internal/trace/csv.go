package trace

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"krtos/internal/sched"
)

var csvHeader = []string{"time_ms", "event", "task_id", "task", "priority"}

// CSV logs events as comma separated records, flushed one by one.
type CSV struct {
	c     io.Closer
	w     *csv.Writer
	names Names
}

// CreateCSV truncates path and writes the header.
func CreateCSV(path string, names Names) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	c, err := NewCSV(f, names)
	if err != nil {
		f.Close()
		return nil, err
	}
	return c, nil
}

// NewCSV writes the header to w. If w is an io.Closer it is closed with the
// sink.
func NewCSV(w io.Writer, names Names) (*CSV, error) {
	c := &CSV{w: csv.NewWriter(w), names: names}
	if cl, ok := w.(io.Closer); ok {
		c.c = cl
	}
	c.w.Write(csvHeader)
	c.w.Flush()
	return c, c.w.Error()
}

func (c *CSV) Write(ev sched.StatusEvent) error {
	rec := []string{
		strconv.FormatUint(ev.Time, 10),
		ev.Kind.String(),
		strconv.FormatUint(uint64(ev.TaskID), 10),
		c.names.label(ev.TaskID),
		strconv.Itoa(ev.Priority),
	}
	c.w.Write(rec)
	c.w.Flush()
	return c.w.Error()
}

func (c *CSV) Close() error {
	c.w.Flush()
	if c.c != nil {
		return c.c.Close()
	}
	return c.w.Error()
}
