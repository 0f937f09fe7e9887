package motorbus

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"drivego/internal/debug"
	"go.bug.st/serial"
)

// SerialDriver drives the bridge board over a serial line. The board
// exposes the CAN-attached motor controllers through a small text
// protocol, one command per line:
//
//	O <id> <value>    set output, value scaled to [-1000, 1000]
//	N <id> C|B        neutral mode coast/brake
//	F <id> <master>   hardware follow relationship
//	Z <id>            tare encoder
//	E <id>            query encoder; board replies "E <id> <ticks>"
//
// The board prints a single "ready" line after reset.
type SerialDriver struct {
	port io.ReadWriteCloser
	out  *bufio.Writer
	in   *bufio.Reader

	// Last commanded output per id, scaled. Re-sending an identical
	// output is skipped to keep the line quiet at high tick rates.
	outCache map[int]int
}

const outputScale = 1000

// OpenSerial connects to the bridge board and waits for its ready banner.
func OpenSerial(portName string, baud int) (*SerialDriver, error) {
	debug.Info("Opening motor bus on %s @ %d", portName, baud)

	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open motor bus port: %w", err)
	}
	port.SetReadTimeout(2 * time.Second)

	d := newSerialDriver(port)
	banner, err := d.in.ReadString('\n')
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("wait for bridge ready: %w", err)
	}
	if strings.TrimSpace(banner) != "ready" {
		port.Close()
		return nil, fmt.Errorf("unexpected bridge banner %q", strings.TrimSpace(banner))
	}

	return d, nil
}

// newSerialDriver wraps an already-open port. Split out so tests can
// drive the protocol through an in-memory pipe.
func newSerialDriver(port io.ReadWriteCloser) *SerialDriver {
	return &SerialDriver{
		port:     port,
		out:      bufio.NewWriter(port),
		in:       bufio.NewReader(port),
		outCache: make(map[int]int),
	}
}

func (d *SerialDriver) send(format string, args ...interface{}) error {
	if _, err := fmt.Fprintf(d.out, format+"\n", args...); err != nil {
		return fmt.Errorf("write motor bus: %w", err)
	}
	if err := d.out.Flush(); err != nil {
		return fmt.Errorf("flush motor bus: %w", err)
	}
	return nil
}

func (d *SerialDriver) SetOutput(id int, value float64) error {
	val := int(value * outputScale)
	if val > outputScale {
		val = outputScale
	} else if val < -outputScale {
		val = -outputScale
	}

	if old, cached := d.outCache[id]; cached && old == val {
		return nil
	}
	d.outCache[id] = val

	debug.Bus("SetOutput", id, val)
	return d.send("O %d %d", id, val)
}

func (d *SerialDriver) SetNeutral(id int, n Neutral) error {
	mode := "C"
	if n == Brake {
		mode = "B"
	}
	debug.Bus("SetNeutral", id, mode)
	return d.send("N %d %s", id, mode)
}

func (d *SerialDriver) Follow(id, masterID int) error {
	debug.Bus("Follow", id, masterID)
	return d.send("F %d %d", id, masterID)
}

func (d *SerialDriver) TareEncoder(id int) error {
	debug.Bus("TareEncoder", id, nil)
	return d.send("Z %d", id)
}

func (d *SerialDriver) ReadEncoder(id int) (int, error) {
	if err := d.send("E %d", id); err != nil {
		return 0, err
	}

	line, err := d.in.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("read encoder reply: %w", err)
	}

	var replyID, ticks int
	if _, err := fmt.Sscanf(strings.TrimSpace(line), "E %d %d", &replyID, &ticks); err != nil {
		return 0, fmt.Errorf("parse encoder reply %q: %w", strings.TrimSpace(line), err)
	}
	if replyID != id {
		return 0, fmt.Errorf("encoder reply for id %d, expected %d", replyID, id)
	}

	debug.Bus("ReadEncoder", id, ticks)
	return ticks, nil
}

func (d *SerialDriver) Close() error {
	debug.Trace("motor bus Close (serial)")
	return d.port.Close()
}
