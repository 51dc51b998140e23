package trace

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sigurn/crc16"
	"go.bug.st/serial"

	"krtos/internal/sched"
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

// Serial streams events as framed text lines: "$" payload "*" CRC "\r\n",
// where CRC is the CRC-16/XMODEM of the payload in four hex digits.
type Serial struct {
	w io.WriteCloser
}

// OpenSerial opens the named device at baud, 8N1.
func OpenSerial(name string, baud int) (*Serial, error) {
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return NewSerial(p), nil
}

func NewSerial(w io.WriteCloser) *Serial { return &Serial{w: w} }

func (s *Serial) Write(ev sched.StatusEvent) error {
	_, err := s.w.Write(Frame(ev))
	return err
}

func (s *Serial) Close() error { return s.w.Close() }

// Frame encodes one event for the serial line.
func Frame(ev sched.StatusEvent) []byte {
	payload := fmt.Sprintf("%d,%s,%d,%d", ev.Time, ev.Kind, ev.TaskID, ev.Priority)
	sum := crc16.Checksum([]byte(payload), crcTable)
	return []byte(fmt.Sprintf("$%s*%04X\r\n", payload, sum))
}

// ParseFrame checks a frame's checksum and returns its payload.
func ParseFrame(b []byte) (string, error) {
	line := strings.TrimRight(string(b), "\r\n")
	star := strings.LastIndexByte(line, '*')
	if !strings.HasPrefix(line, "$") || star < 0 || len(line)-star-1 != 4 {
		return "", fmt.Errorf("malformed frame %q", b)
	}
	payload := line[1:star]
	sum, err := strconv.ParseUint(line[star+1:], 16, 16)
	if err != nil {
		return "", fmt.Errorf("malformed checksum in %q: %w", b, err)
	}
	if got := crc16.Checksum([]byte(payload), crcTable); got != uint16(sum) {
		return "", fmt.Errorf("checksum mismatch: frame %04X, payload %04X", sum, got)
	}
	return payload, nil
}
