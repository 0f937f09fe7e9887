// Package statusled drives the robot's indicator pins: an LED lit while
// a directional align is in progress and a heartbeat pin toggled every
// control tick so a scope (or a teammate) can see the loop is alive.
package statusled

import (
	"drivego/internal/hw/gpio"
)

// Panel owns the indicator pins. All methods are driven from the
// periodic control loop; the panel holds no control state of its own.
type Panel struct {
	gpio         gpio.Driver
	alignPin     int
	heartbeatPin int
	hbLevel      gpio.Level
}

// NewPanel sets both pins up as outputs, initially low.
func NewPanel(g gpio.Driver, alignPin, heartbeatPin int) (*Panel, error) {
	p := &Panel{
		gpio:         g,
		alignPin:     alignPin,
		heartbeatPin: heartbeatPin,
	}

	for _, pin := range []int{alignPin, heartbeatPin} {
		if err := g.SetupPin(pin); err != nil {
			return nil, err
		}
		if err := g.WritePin(pin, gpio.Low); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// SetAligning lights the align LED while a directional align runs.
func (p *Panel) SetAligning(active bool) error {
	level := gpio.Low
	if active {
		level = gpio.High
	}
	return p.gpio.WritePin(p.alignPin, level)
}

// Heartbeat toggles the heartbeat pin. Call once per control tick.
func (p *Panel) Heartbeat() error {
	p.hbLevel = !p.hbLevel
	return p.gpio.WritePin(p.heartbeatPin, p.hbLevel)
}

// Off clears both pins, used on shutdown and on disable.
func (p *Panel) Off() error {
	if err := p.gpio.WritePin(p.alignPin, gpio.Low); err != nil {
		return err
	}
	p.hbLevel = gpio.Low
	return p.gpio.WritePin(p.heartbeatPin, gpio.Low)
}
