package gyro

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"drivego/internal/debug"
	"go.bug.st/serial"
)

// SerialIMU reads headings from the IMU coprocessor over a serial line.
// The coprocessor streams one sample per line:
//
//	H <degrees>
//
// Unknown lines are ignored so the coprocessor can interleave other
// sensor channels on the same link.
type SerialIMU struct {
	port   io.ReadCloser
	latest Latest
}

// OpenSerialIMU connects to the IMU coprocessor.
func OpenSerialIMU(portName string, baud int) (*SerialIMU, error) {
	debug.Info("Opening gyro on %s @ %d", portName, baud)

	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open gyro port: %w", err)
	}

	return &SerialIMU{port: port}, nil
}

// newSerialIMU wraps an already-open stream, for tests.
func newSerialIMU(port io.ReadCloser) *SerialIMU {
	return &SerialIMU{port: port}
}

// Run consumes the stream until it ends or ctx is cancelled, publishing
// each sample into the latest-reading cell. Intended to run on its own
// goroutine; the control thread only ever calls Heading.
func (s *SerialIMU) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.port)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		heading, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		s.latest.Store(heading)
		debug.Gyro(heading)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read gyro stream: %w", err)
	}
	return nil
}

// Heading returns the most recent published sample. Implements Sensor.
func (s *SerialIMU) Heading() float64 {
	return s.latest.Heading()
}

func (s *SerialIMU) Close() error {
	return s.port.Close()
}

// parseLine extracts a heading from one stream line. The heading is
// wrapped into [0, 360); malformed lines report !ok.
func parseLine(line string) (float64, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != "H" {
		return 0, false
	}
	deg, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, false
	}
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg, true
}
