package trace

import (
	"fmt"
	"io"
	"strings"

	colorable "github.com/mattn/go-colorable"

	"krtos/internal/sched"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiCyan   = "\x1b[36m"
	ansiGrey   = "\x1b[90m"
)

// Console prints one line per event.
type Console struct {
	w     io.Writer
	names Names
}

// NewConsole writes to w. Without color the escape sequences are stripped
// on the way out; with color they are translated where the terminal needs
// it.
func NewConsole(w io.Writer, color bool, names Names) *Console {
	if color {
		if f, ok := w.(interface{ Fd() uintptr }); ok && f.Fd() == 1 {
			w = colorable.NewColorableStdout()
		}
	} else {
		w = colorable.NewNonColorable(w)
	}
	return &Console{w: w, names: names}
}

func (c *Console) Write(ev sched.StatusEvent) error {
	_, err := fmt.Fprintf(c.w, "Time: %07d %s[%s]%s => Task: %04d %-10s Priority: %03d\n",
		ev.Time,
		kindColor(ev.Kind),
		center(ev.Kind.String(), 12),
		ansiReset,
		ev.TaskID,
		c.names.label(ev.TaskID),
		ev.Priority,
	)
	return err
}

func (c *Console) Close() error { return nil }

// center pads str to width with the extra space on the right.
func center(str string, width int) string {
	if len(str) >= width {
		return str
	}
	spaces := (width - len(str)) / 2
	return strings.Repeat(" ", spaces) + str + strings.Repeat(" ", width-(spaces+len(str)))
}

func kindColor(k sched.StatusKind) string {
	switch k {
	case sched.StatusDispatch, sched.StatusWake, sched.StatusUnblock:
		return ansiGreen
	case sched.StatusPreempt, sched.StatusPriorityUpdate:
		return ansiYellow
	case sched.StatusSleep, sched.StatusBlock:
		return ansiBlue
	case sched.StatusFinish:
		return ansiRed
	case sched.StatusEnqueue:
		return ansiCyan
	default:
		return ansiGrey
	}
}
