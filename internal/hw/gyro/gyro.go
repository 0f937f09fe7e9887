// Package gyro provides the robot's absolute heading source.
package gyro

import (
	"math"
	"sync/atomic"
)

// Sensor produces the current absolute heading in degrees, [0, 360),
// wrapping at 360.
type Sensor interface {
	Heading() float64
}

// Latest is a word-safe cell holding the most recent completed heading
// publish. The serial reader goroutine stores into it; the control
// thread reads from it. No ordering guarantee beyond "most recent
// completed publish".
type Latest struct {
	bits atomic.Uint64
}

func (l *Latest) Store(heading float64) {
	l.bits.Store(math.Float64bits(heading))
}

// Heading returns the last stored value. Implements Sensor.
func (l *Latest) Heading() float64 {
	return math.Float64frombits(l.bits.Load())
}

// Stub is a settable sensor for development mode and tests.
type Stub struct {
	latest Latest
}

func NewStub(heading float64) *Stub {
	s := &Stub{}
	s.latest.Store(heading)
	return s
}

func (s *Stub) Set(heading float64) {
	s.latest.Store(heading)
}

func (s *Stub) Heading() float64 {
	return s.latest.Heading()
}
