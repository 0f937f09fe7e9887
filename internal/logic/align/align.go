// Package align implements directional alignment: on a directional-pad
// press, turn the robot to the nearest-sector cardinal heading (0, 90,
// 180 or 270) using gyro feedback, bounded by a safety timer.
package align

import (
	"time"

	"drivego/internal/debug"
	"drivego/internal/hw/gyro"
	"drivego/internal/logic/angle"
	"drivego/internal/logic/drive"
	"drivego/internal/stopwatch"
	"drivego/internal/telemetry"
)

// State is the drive-control regime. At most one regime is active at
// any instant: while DirectionalAlign is active the caller must skip
// its normal manual drive processing.
type State int

const (
	ManualControl State = iota
	DirectionalAlign
)

func (s State) String() string {
	if s == DirectionalAlign {
		return "directional_align"
	}
	return "manual_control"
}

// PovReleased is the directional input value meaning "no press".
const PovReleased = -1

// Config tunes the alignment controller.
type Config struct {
	Speed        float64       // fixed align output (0-1)
	MaxAlignTime time.Duration // safety bound for one align
	ToleranceDeg float64       // heading window around the destination
}

// Controller is the two-state alignment machine. It is driven by a
// single periodic caller; Update must be called once per control tick
// with the current directional-pad value.
type Controller struct {
	train *drive.Train
	gyro  gyro.Sensor
	timer *stopwatch.Stopwatch
	sink  telemetry.Sink
	cfg   Config

	state State

	// Edge detection across ticks: a transition is armed only on the
	// release -> press edge and disarmed once consumed.
	lastPov       int
	changeAllowed bool

	// Pending alignment, live only during DirectionalAlign.
	destination int
	direction   angle.Direction
}

// NewController wires the alignment machine to its collaborators. The
// stopwatch is owned exclusively by this controller.
func NewController(train *drive.Train, g gyro.Sensor, timer *stopwatch.Stopwatch, sink telemetry.Sink, cfg Config) *Controller {
	if sink == nil {
		sink = telemetry.Nop{}
	}
	return &Controller{
		train:       train,
		gyro:        g,
		timer:       timer,
		sink:        sink,
		cfg:         cfg,
		state:       ManualControl,
		lastPov:     PovReleased,
		destination: PovReleased,
	}
}

// State returns the current drive-control regime. Callers gate their
// manual drive output on this.
func (c *Controller) State() State {
	return c.state
}

// Aligning reports whether a directional align is in progress.
func (c *Controller) Aligning() bool {
	return c.state == DirectionalAlign
}

// Destination returns the pending destination heading, or -1 outside
// DirectionalAlign.
func (c *Controller) Destination() int {
	return c.destination
}

// Update runs one tick of the state machine. pov is the directional
// pad value: -1 released, otherwise degrees in 45° increments.
func (c *Controller) Update(pov int) {
	c.detectEdge(pov)

	switch c.state {
	case ManualControl:
		if c.changeAllowed {
			c.startAlign(pov)
		}
	case DirectionalAlign:
		c.checkAlign()
	}

	c.publish()
}

// detectEdge arms a state change on the release -> press edge only, so
// holding the pad can't re-trigger.
func (c *Controller) detectEdge(pov int) {
	if pov != c.lastPov {
		if pov == PovReleased {
			c.changeAllowed = false
		} else if c.lastPov == PovReleased {
			c.changeAllowed = true
		}
		// A change between two pressed values doesn't matter.
	}
	c.lastPov = pov
}

// startAlign consumes the armed press edge and begins the turn.
func (c *Controller) startAlign(pov int) {
	c.destination = angle.DirectionalTarget(pov)

	heading := c.gyro.Heading()
	dir, dist := angle.ShortestTurn(heading, c.destination)
	c.direction = dir

	debug.Live("Align start: pov=%d heading=%.1f destination=%d distance=%.1f dir=%v",
		pov, heading, c.destination, dist, dir)

	if dir == angle.Left {
		c.train.TurnLeft(c.cfg.Speed)
	} else {
		c.train.TurnRight(c.cfg.Speed)
	}

	c.timer.Start()
	c.changeAllowed = false
	c.setState(DirectionalAlign)
}

// checkAlign runs one tick of the active align and exits on any of:
// destination reached, safety timer expired, or the operator pressed
// the pad again (release + re-press).
func (c *Controller) checkAlign() {
	heading := c.gyro.Heading()
	debug.Align(c.destination, heading)

	done := angle.WithinTolerance(heading, c.destination, c.cfg.ToleranceDeg)
	expired := c.timer.Elapsed() > c.cfg.MaxAlignTime
	cancelled := c.changeAllowed

	if !done && !expired && !cancelled {
		return
	}

	if expired {
		debug.Live("Align safety timer expired at heading %.1f", heading)
	}
	c.finishAlign()
}

// finishAlign stops the drivetrain and returns to manual control.
func (c *Controller) finishAlign() {
	c.train.Stop()
	c.timer.Stop()
	c.timer.Reset()
	c.destination = PovReleased
	c.changeAllowed = false
	c.setState(ManualControl)
}

// Cancel unconditionally aborts any align in progress, zeroing the
// drivetrain. Used when the enabling condition drops.
func (c *Controller) Cancel() {
	if c.state != DirectionalAlign {
		return
	}
	debug.Live("Align cancelled")
	c.finishAlign()
}

func (c *Controller) setState(s State) {
	if s == c.state {
		return
	}
	debug.State(c.state.String(), s.String())
	c.state = s
}

func (c *Controller) publish() {
	snap := telemetry.Snapshot{
		Heading:     c.gyro.Heading(),
		Destination: c.destination,
		State:       c.state.String(),
	}
	if c.state == DirectionalAlign {
		snap.TurnDir = c.direction.String()
	}
	c.sink.Publish(snap)
}
