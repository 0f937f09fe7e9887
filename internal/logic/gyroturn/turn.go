// Package gyroturn implements bounded open-loop gyro turns: drive
// toward a target heading at constant speed until the measured heading
// crosses the target or a safety timeout elapses, then counter-rotate
// briefly to cancel drivetrain coast. Used by scripted routines instead
// of the alignment state machine.
package gyroturn

import (
	"context"
	"time"

	"drivego/internal/debug"
	"drivego/internal/hw/gyro"
	"drivego/internal/logic/angle"
	"drivego/internal/logic/drive"
	"drivego/internal/stopwatch"
)

// Config tunes the turn routines.
type Config struct {
	MaxTurnTime    time.Duration // safety bound for one turn
	Poll           time.Duration // yield interval between heading checks
	BackDriveSpeed float64       // counter-rotation pulse output
	BackDriveTime  time.Duration // counter-rotation pulse length
}

// Turner runs bounded turns on the drivetrain. The enabled predicate
// is re-checked on every loop iteration; the instant it reports false
// the turn aborts with the drivetrain zeroed.
type Turner struct {
	train   *drive.Train
	gyro    gyro.Sensor
	timer   *stopwatch.Stopwatch
	enabled func() bool
	cfg     Config

	// sleep is the per-iteration yield, swapped out in tests.
	sleep func(time.Duration)
}

// NewTurner wires the turn routines to their collaborators. The
// stopwatch is owned exclusively by this turner. A nil enabled
// predicate means "always enabled".
func NewTurner(train *drive.Train, g gyro.Sensor, timer *stopwatch.Stopwatch, enabled func() bool, cfg Config) *Turner {
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &Turner{
		train:   train,
		gyro:    g,
		timer:   timer,
		enabled: enabled,
		cfg:     cfg,
		sleep:   time.Sleep,
	}
}

// TurnLeft pivots left until the heading decreases past target.
// Neither variant handles crossing the 0/360 boundary: callers must
// pick targets that don't require wraparound.
func (t *Turner) TurnLeft(ctx context.Context, target, speed float64) bool {
	return t.turn(ctx, angle.Left, target, speed)
}

// TurnRight pivots right until the heading increases past target.
func (t *Turner) TurnRight(ctx context.Context, target, speed float64) bool {
	return t.turn(ctx, angle.Right, target, speed)
}

func (t *Turner) turn(ctx context.Context, dir angle.Direction, target, speed float64) bool {
	debug.Turn(dir.String(), target, t.gyro.Heading())

	if dir == angle.Left {
		t.train.TurnLeft(speed)
	} else {
		t.train.TurnRight(speed)
	}

	t.timer.Reset()
	t.timer.Start()

	// Left turns decrease the gyro angle, right turns increase it.
	// Re-check the enabling condition every iteration so a mid-turn
	// disable aborts promptly, and yield between checks instead of
	// spinning hard.
	for t.crossing(dir, target) && t.timer.Elapsed() <= t.cfg.MaxTurnTime {
		if ctx.Err() != nil || !t.enabled() {
			t.abort()
			return false
		}
		t.sleep(t.cfg.Poll)
	}

	t.train.Stop()
	t.timer.Stop()

	if t.timer.Elapsed() > t.cfg.MaxTurnTime {
		debug.Live("Gyro turn %s timed out at heading %.1f", dir, t.gyro.Heading())
		t.timer.Reset()
		return false
	}
	t.timer.Reset()

	t.backDrive(ctx, dir)
	debug.Turn(dir.String()+" done", target, t.gyro.Heading())
	return true
}

// crossing reports whether the heading has not yet crossed the target
// in the expected direction of change.
func (t *Turner) crossing(dir angle.Direction, target float64) bool {
	if dir == angle.Left {
		return t.gyro.Heading() > target
	}
	return t.gyro.Heading() < target
}

// abort zeroes the drivetrain immediately on loss of the enabling
// condition. No counter-rotation pulse: the robot is being disabled.
func (t *Turner) abort() {
	debug.Live("Gyro turn aborted (disabled)")
	t.train.Stop()
	t.timer.Stop()
	t.timer.Reset()
}

// backDrive counter-rotates briefly to cancel drivetrain coast.
func (t *Turner) backDrive(ctx context.Context, dir angle.Direction) {
	if t.cfg.BackDriveSpeed <= 0 || t.cfg.BackDriveTime <= 0 {
		return
	}
	if ctx.Err() != nil || !t.enabled() {
		return
	}

	if dir == angle.Left {
		t.train.TurnRight(t.cfg.BackDriveSpeed)
	} else {
		t.train.TurnLeft(t.cfg.BackDriveSpeed)
	}
	t.sleep(t.cfg.BackDriveTime)
	t.train.Stop()
}
