// Package motorbus talks to the motor controllers on the drive bus.
// Each controller is addressed by a small numeric bus ID; the Driver
// interface is the only hardware-facing surface for motor output.
package motorbus

import (
	"drivego/internal/debug"
)

// Neutral selects what a controller does when its commanded output is zero.
type Neutral int

const (
	Coast Neutral = iota // free-spin
	Brake                // resistive stop
)

func (n Neutral) String() string {
	if n == Brake {
		return "brake"
	}
	return "coast"
}

// Driver defines the abstract interface for the motor controller bus.
// A real implementation speaks to a bridge board over serial; the mock
// logs traffic for development on PC.
type Driver interface {
	// SetOutput commands a percent output in [-1, 1] to one controller.
	SetOutput(id int, value float64) error
	// SetNeutral selects coast or brake behavior for one controller.
	SetNeutral(id int, n Neutral) error
	// Follow wires a controller to mirror another at the hardware level.
	// Once wired, the follower needs no further output commands.
	Follow(id, masterID int) error
	// ReadEncoder returns the feedback encoder ticks of one controller.
	ReadEncoder(id int) (int, error)
	// TareEncoder zeroes the feedback encoder of one controller.
	TareEncoder(id int) error
	Close() error
}

// MockDriver is a development implementation that logs bus traffic.
type MockDriver struct{}

func NewMockDriver() *MockDriver {
	debug.Info("Using MOCK motor bus driver (development mode)")
	return &MockDriver{}
}

func (m *MockDriver) SetOutput(id int, value float64) error {
	debug.Bus("SetOutput", id, value)
	return nil
}

func (m *MockDriver) SetNeutral(id int, n Neutral) error {
	debug.Bus("SetNeutral", id, n)
	return nil
}

func (m *MockDriver) Follow(id, masterID int) error {
	debug.Bus("Follow", id, masterID)
	return nil
}

func (m *MockDriver) ReadEncoder(id int) (int, error) {
	debug.Bus("ReadEncoder", id, nil)
	return 0, nil
}

func (m *MockDriver) TareEncoder(id int) error {
	debug.Bus("TareEncoder", id, nil)
	return nil
}

func (m *MockDriver) Close() error {
	debug.Trace("motor bus Close (mock)")
	return nil
}
