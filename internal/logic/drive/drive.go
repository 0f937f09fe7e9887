// Package drive orchestrates the two drivetrain banks. It's the
// intermediate layer between control logic (alignment, gyro turns,
// teleop) and the motor groups.
package drive

import "drivego/internal/logic/motorgroup"

// Drive sign convention, fixed by the drivetrain wiring:
// left bank forward is positive output, right bank forward is negative.
const (
	LeftForwardScalar  = 1.0
	LeftReverseScalar  = -1.0
	RightForwardScalar = -1.0
	RightReverseScalar = 1.0
)

// Train pairs the left and right drivetrain banks.
type Train struct {
	left  *motorgroup.Group
	right *motorgroup.Group
}

func NewTrain(left, right *motorgroup.Group) *Train {
	return &Train{
		left:  left,
		right: right,
	}
}

// Tank commands raw outputs to the two banks. Values follow the sign
// convention above; callers pre-clamp to [-1, 1].
func (t *Train) Tank(left, right float64) {
	t.left.Set(left)
	t.right.Set(right)
}

// Forward drives both banks forward at speed (0-1).
func (t *Train) Forward(speed float64) {
	t.Tank(speed*LeftForwardScalar, speed*RightForwardScalar)
}

// Reverse drives both banks backward at speed (0-1).
func (t *Train) Reverse(speed float64) {
	t.Tank(speed*LeftReverseScalar, speed*RightReverseScalar)
}

// TurnLeft pivots in place to the left: left bank reverse, right bank
// forward.
func (t *Train) TurnLeft(speed float64) {
	t.Tank(speed*LeftReverseScalar, speed*RightForwardScalar)
}

// TurnRight pivots in place to the right: left bank forward, right
// bank reverse.
func (t *Train) TurnRight(speed float64) {
	t.Tank(speed*LeftForwardScalar, speed*RightReverseScalar)
}

// Stop zeroes both banks.
func (t *Train) Stop() {
	t.Tank(0, 0)
}

// SetCoastMode puts both banks in free-spin neutral.
func (t *Train) SetCoastMode() {
	t.left.SetCoastMode()
	t.right.SetCoastMode()
}

// SetBrakeMode puts both banks in resistive-stop neutral.
func (t *Train) SetBrakeMode() {
	t.left.SetBrakeMode()
	t.right.SetBrakeMode()
}
