// Package angle holds the heading arithmetic shared by the alignment
// state machine and the gyro turn routines. Headings are degrees in
// [0, 360), wrapping at 360.
package angle

import "math"

// Direction is a turn direction around the vertical axis.
type Direction int

const (
	Left Direction = iota
	Right
)

func (d Direction) String() string {
	if d == Right {
		return "right"
	}
	return "left"
}

// Invert returns the opposite direction.
func (d Direction) Invert() Direction {
	if d == Left {
		return Right
	}
	return Left
}

// Normalize wraps a heading into [0, 360).
func Normalize(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// DirectionalTarget maps a directional-pad value (degrees, 45° steps)
// to the nearest cardinal destination heading.
//
//	   315      45
//	     \  up  /
//	 left |    | right
//	     / down \
//	   225      135
//
// The pad value is shifted by 45° so that each cardinal owns the 90°
// sector centered on it, then bucketed by integer division:
// 315..44 -> 0, 45..134 -> 90, 135..224 -> 180, 225..314 -> 270.
func DirectionalTarget(pov int) int {
	pov += 45
	if pov >= 360 {
		pov -= 360
	}
	// Integer division is deliberate.
	return (pov / 90) * 90
}

// ShortestTurn picks the turn direction from current to destination
// that covers at most 180°. The returned distance is current minus
// destination, before any wrap correction; a positive distance means
// the destination lies to the left.
func ShortestTurn(current float64, destination int) (Direction, float64) {
	distance := current - float64(destination)

	dir := Right
	if distance > 0 {
		dir = Left
	}

	// More than halfway around: the other way is shorter.
	if math.Abs(distance) > 180 {
		dir = dir.Invert()
	}

	return dir, distance
}

// WithinTolerance reports whether current is inside ±tol of the
// destination, accounting for the 0/360 wrap.
func WithinTolerance(current float64, destination int, tol float64) bool {
	diff := math.Abs(Normalize(current) - float64(destination))
	if diff > 180 {
		diff = 360 - diff
	}
	return diff <= tol
}
