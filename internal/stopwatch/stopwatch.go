// Package stopwatch implements the safety timer that bounds every
// control loop in the robot. A loop that misses its exit condition
// (sensor failure, stalled drivetrain) must still terminate.
package stopwatch

import "time"

// Stopwatch accumulates elapsed time across Start/Stop cycles until
// Reset. It is not safe for concurrent use; each control loop owns its
// own instance.
type Stopwatch struct {
	now     func() time.Time
	running bool
	started time.Time
	accum   time.Duration
}

// New returns a stopped, zeroed stopwatch on the wall clock.
func New() *Stopwatch {
	return NewWithClock(time.Now)
}

// NewWithClock takes the time source explicitly so control-loop tests
// never have to sleep.
func NewWithClock(now func() time.Time) *Stopwatch {
	return &Stopwatch{now: now}
}

// Start begins (or resumes) timing. Starting a running stopwatch is a
// no-op.
func (s *Stopwatch) Start() {
	if s.running {
		return
	}
	s.started = s.now()
	s.running = true
}

// Stop pauses timing, keeping the accumulated elapsed time.
func (s *Stopwatch) Stop() {
	if !s.running {
		return
	}
	s.accum += s.now().Sub(s.started)
	s.running = false
}

// Reset zeroes the accumulated time. A running stopwatch keeps running
// from now.
func (s *Stopwatch) Reset() {
	s.accum = 0
	if s.running {
		s.started = s.now()
	}
}

// Elapsed returns the total accumulated time.
func (s *Stopwatch) Elapsed() time.Duration {
	if s.running {
		return s.accum + s.now().Sub(s.started)
	}
	return s.accum
}
