// Package motorgroup drives several motor controllers as one logical
// unit: a drivetrain bank, a two-motor shooter, or any mechanism whose
// motors must move in a fixed relationship.
package motorgroup

import (
	"fmt"

	"drivego/internal/debug"
	"drivego/internal/hw/motorbus"
)

// ControlMode is the rule by which one handle derives its commanded
// value from the group's single logical input.
type ControlMode int

const (
	Master            ControlMode = iota // first motor in a group, gets the value directly
	Follower                             // mirrors the master at the hardware level
	Independent                          // gets the value as-is
	Inverse                              // gets the negated value
	IndependentOffset                    // gets value + offset
	InverseOffset                        // gets -(value + offset)
	Custom                               // placeholder, must be reassigned before use
)

var modeNames = map[ControlMode]string{
	Master:            "master",
	Follower:          "follower",
	Independent:       "independent",
	Inverse:           "inverse",
	IndependentOffset: "independent_offset",
	InverseOffset:     "inverse_offset",
	Custom:            "custom",
}

func (m ControlMode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("ControlMode(%d)", int(m))
}

// ParseControlMode maps a config string to a non-master mode. The empty
// string defaults to Follower, the common drivetrain wiring.
func ParseControlMode(s string) (ControlMode, error) {
	switch s {
	case "", "follower":
		return Follower, nil
	case "independent":
		return Independent, nil
	case "inverse":
		return Inverse, nil
	default:
		return Custom, fmt.Errorf("unknown control mode %q", s)
	}
}

// MaxMotors is the group capacity. Nothing on this robot gangs more
// than four controllers.
const MaxMotors = 4

// handle is one motor controller owned by the group.
type handle struct {
	busID int
	mode  ControlMode
}

// Group owns up to MaxMotors controller handles on a shared bus. The
// first handle is always the master at the base bus ID; handle i lives
// at base+i. An optional feedback encoder attaches to the master only:
// a group models one logical degree of freedom, so one sensor suffices.
type Group struct {
	bus        motorbus.Driver
	handles    []handle
	masterID   int
	hasEncoder bool
}

// New creates a group of count controllers starting at baseID. Every
// non-master handle gets nonMasterMode; Follower handles are wired to
// the master at the hardware level here, once, and never receive
// output commands afterwards. All handles start in coast neutral.
//
// A count outside [1, MaxMotors] is a build-time configuration bug and
// returns an error; callers in cmd/ treat it as fatal.
func New(bus motorbus.Driver, count, baseID int, nonMasterMode ControlMode, withEncoder bool) (*Group, error) {
	if count < 1 || count > MaxMotors {
		return nil, fmt.Errorf("motor group size %d out of range [1, %d]", count, MaxMotors)
	}
	if nonMasterMode == Master {
		return nil, fmt.Errorf("a group has exactly one master, created first")
	}

	g := &Group{
		bus:        bus,
		masterID:   baseID,
		hasEncoder: withEncoder,
	}

	for i := 0; i < count; i++ {
		mode := nonMasterMode
		if i == 0 {
			mode = Master
		}
		if err := g.wire(handle{busID: baseID + i, mode: mode}); err != nil {
			return nil, err
		}
	}

	debug.Info("Motor group: base=%d count=%d non-master=%v encoder=%v",
		baseID, count, nonMasterMode, withEncoder)
	return g, nil
}

// wire appends a handle, registering its hardware relationships.
func (g *Group) wire(h handle) error {
	if h.mode == Follower {
		if err := g.bus.Follow(h.busID, g.masterID); err != nil {
			return fmt.Errorf("wire follower %d -> %d: %w", h.busID, g.masterID, err)
		}
	}
	if err := g.bus.SetNeutral(h.busID, motorbus.Coast); err != nil {
		return fmt.Errorf("set coast on %d: %w", h.busID, err)
	}
	g.handles = append(g.handles, h)
	return nil
}

// AddMotor appends one controller at base + current count. Reports
// false when the group is already at capacity.
func (g *Group) AddMotor(mode ControlMode) bool {
	if len(g.handles) >= MaxMotors || mode == Master {
		return false
	}
	h := handle{busID: g.masterID + len(g.handles), mode: mode}
	if err := g.wire(h); err != nil {
		debug.Error(err)
		return false
	}
	return true
}

// SetControlMode replaces the mode of the handle at busID, wiring the
// follow relationship when the new mode is Follower. Intended to
// promote a Custom handle to a concrete mode after construction.
// Reports false when no handle matches or the change would leave the
// group with a second master.
func (g *Group) SetControlMode(busID int, mode ControlMode) bool {
	if mode == Master && busID != g.masterID {
		return false
	}
	for i := range g.handles {
		if g.handles[i].busID != busID {
			continue
		}
		g.handles[i].mode = mode
		if mode == Follower {
			if err := g.bus.Follow(busID, g.masterID); err != nil {
				debug.Error(err)
				return false
			}
		}
		return true
	}
	return false
}

// Set fans the logical value out to every handle per its mode. This is
// the single authoritative entry point; callers never address handles
// directly.
func (g *Group) Set(value float64) {
	g.SetWithOffset(value, 0)
}

// SetWithOffset is Set for groups containing *Offset handles. The
// offset only affects those handles.
func (g *Group) SetWithOffset(value, offset float64) {
	for _, h := range g.handles {
		var out float64

		switch h.mode {
		case Master, Independent:
			out = value
		case Follower:
			// The hardware relationship propagates the master's
			// command; no bus call at all.
			continue
		case Inverse:
			out = -value
		case IndependentOffset:
			out = value + offset
		case InverseOffset:
			out = -(value + offset)
		case Custom:
			// Still unassigned; calling code should promote it via
			// SetControlMode before driving the group.
			continue
		}

		if err := g.bus.SetOutput(h.busID, out); err != nil {
			debug.Error(err)
		}
	}
}

// SetCoastMode puts every handle in free-spin neutral. Idempotent.
func (g *Group) SetCoastMode() {
	g.setNeutral(motorbus.Coast)
}

// SetBrakeMode puts every handle in resistive-stop neutral. Idempotent.
func (g *Group) SetBrakeMode() {
	g.setNeutral(motorbus.Brake)
}

func (g *Group) setNeutral(n motorbus.Neutral) {
	for _, h := range g.handles {
		if err := g.bus.SetNeutral(h.busID, n); err != nil {
			debug.Error(err)
		}
	}
}

// TareEncoder zeroes the master's feedback encoder. A group without an
// encoder silently no-ops.
func (g *Group) TareEncoder() {
	if !g.hasEncoder {
		return
	}
	if err := g.bus.TareEncoder(g.masterID); err != nil {
		debug.Error(err)
	}
}

// EncoderValue returns the master's feedback encoder ticks, or zero
// for a group without an encoder.
func (g *Group) EncoderValue() int {
	if !g.hasEncoder {
		return 0
	}
	ticks, err := g.bus.ReadEncoder(g.masterID)
	if err != nil {
		debug.Error(err)
		return 0
	}
	return ticks
}

// Size returns the current number of handles.
func (g *Group) Size() int {
	return len(g.handles)
}

// MasterID returns the master's bus ID.
func (g *Group) MasterID() int {
	return g.masterID
}
