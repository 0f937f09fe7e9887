package gpio

import (
	"drivego/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

// Driver defines the abstract interface for driving output GPIOs.
// This allows plugging in a real Raspberry Pi implementation
// or a mock for development on PC. The robot only sources
// outputs (LEDs, debug pin), so there is no read path.
type Driver interface {
	SetupPin(pin int) error
	WritePin(pin int, level Level) error
	Close() error
}

// MockDriver is a test implementation that simply logs actions.
// Used for development on PC or testing.
type MockDriver struct{}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a real RPiDriver (for Raspberry Pi).
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return &MockDriver{}, nil
	}
	return NewRPiRealDriver()
}

func (m *MockDriver) SetupPin(pin int) error {
	debug.Trace("GPIO SetupPin pin=%d", pin)
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.Trace("GPIO WritePin pin=%d level=%v", pin, level)
	return nil
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}
