package align

import (
	"testing"
	"time"

	"drivego/internal/hw/gyro"
	"drivego/internal/hw/motorbus"
	"drivego/internal/logic/drive"
	"drivego/internal/logic/motorgroup"
	"drivego/internal/stopwatch"
	"drivego/internal/telemetry"
)

// recordingBus keeps the last output per bus ID.
type recordingBus struct {
	last map[int]float64
}

func newRecordingBus() *recordingBus {
	return &recordingBus{last: make(map[int]float64)}
}

func (b *recordingBus) SetOutput(id int, value float64) error {
	b.last[id] = value
	return nil
}

func (b *recordingBus) SetNeutral(id int, n motorbus.Neutral) error { return nil }
func (b *recordingBus) Follow(id, masterID int) error               { return nil }
func (b *recordingBus) ReadEncoder(id int) (int, error)             { return 0, nil }
func (b *recordingBus) TareEncoder(id int) error                    { return nil }
func (b *recordingBus) Close() error                                { return nil }

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

// captureSink keeps the last published snapshot.
type captureSink struct {
	last telemetry.Snapshot
	n    int
}

func (s *captureSink) Publish(snap telemetry.Snapshot) {
	s.last = snap
	s.n++
}

type fixture struct {
	bus  *recordingBus
	imu  *gyro.Stub
	clk  *fakeClock
	sink *captureSink
	ctl  *Controller
}

const testSpeed = 0.55

func newFixture(t *testing.T, heading float64) *fixture {
	t.Helper()

	bus := newRecordingBus()
	left, err := motorgroup.New(bus, 1, 1, motorgroup.Follower, false)
	if err != nil {
		t.Fatal(err)
	}
	right, err := motorgroup.New(bus, 1, 3, motorgroup.Follower, false)
	if err != nil {
		t.Fatal(err)
	}

	clk := &fakeClock{t: time.Unix(0, 0)}
	imu := gyro.NewStub(heading)
	sink := &captureSink{}

	ctl := NewController(
		drive.NewTrain(left, right),
		imu,
		stopwatch.NewWithClock(clk.now),
		sink,
		Config{
			Speed:        testSpeed,
			MaxAlignTime: 3 * time.Second,
			ToleranceDeg: 1,
		},
	)

	return &fixture{bus: bus, imu: imu, clk: clk, sink: sink, ctl: ctl}
}

func (f *fixture) outputs() (left, right float64) {
	return f.bus.last[1], f.bus.last[3]
}

func TestController_InitialState(t *testing.T) {
	f := newFixture(t, 0)
	if f.ctl.State() != ManualControl {
		t.Errorf("initial state = %v, want ManualControl", f.ctl.State())
	}
	if f.ctl.Destination() != PovReleased {
		t.Errorf("initial destination = %d, want -1", f.ctl.Destination())
	}
}

func TestController_NoPressNoTransition(t *testing.T) {
	f := newFixture(t, 45)

	for i := 0; i < 10; i++ {
		f.ctl.Update(PovReleased)
	}
	if f.ctl.State() != ManualControl {
		t.Errorf("state = %v after released updates, want ManualControl", f.ctl.State())
	}
}

func TestController_StartsAlignOnPressEdge(t *testing.T) {
	// Heading 10, pov 90 -> destination 180, distance -170 -> right.
	f := newFixture(t, 10)

	f.ctl.Update(90)

	if f.ctl.State() != DirectionalAlign {
		t.Fatalf("state = %v, want DirectionalAlign", f.ctl.State())
	}
	if f.ctl.Destination() != 180 {
		t.Errorf("destination = %d, want 180", f.ctl.Destination())
	}
	// Right pivot: left bank forward (+), right bank reverse (+).
	left, right := f.outputs()
	if left != testSpeed || right != testSpeed {
		t.Errorf("outputs = (%v, %v), want (%v, %v) for right turn",
			left, right, testSpeed, testSpeed)
	}
}

func TestController_LeftTurnOutputs(t *testing.T) {
	// Heading 45, pov 0 -> destination 0, distance 45 -> left.
	f := newFixture(t, 45)

	f.ctl.Update(0)

	left, right := f.outputs()
	if left != -testSpeed || right != -testSpeed {
		t.Errorf("outputs = (%v, %v), want (%v, %v) for left turn",
			left, right, -testSpeed, -testSpeed)
	}
}

func TestController_ShortestPathInversion(t *testing.T) {
	// Heading 45, pov 270 -> destination 270, distance -225, abs > 180
	// -> inverted to left.
	f := newFixture(t, 45)

	f.ctl.Update(270)

	left, right := f.outputs()
	if left != -testSpeed || right != -testSpeed {
		t.Errorf("outputs = (%v, %v), want left turn after inversion", left, right)
	}
}

func TestController_FinishesOnDestinationReached(t *testing.T) {
	f := newFixture(t, 10)
	f.ctl.Update(90) // destination 180, turning right

	// Not there yet.
	f.imu.Set(120)
	f.ctl.Update(90)
	if f.ctl.State() != DirectionalAlign {
		t.Fatal("align ended early")
	}

	// Within ±1° of 180.
	f.imu.Set(179)
	f.ctl.Update(90)

	if f.ctl.State() != ManualControl {
		t.Fatalf("state = %v, want ManualControl after reaching destination", f.ctl.State())
	}
	if left, right := f.outputs(); left != 0 || right != 0 {
		t.Errorf("outputs = (%v, %v), want (0, 0)", left, right)
	}
	if f.ctl.Destination() != PovReleased {
		t.Errorf("destination = %d, want cleared (-1)", f.ctl.Destination())
	}
}

func TestController_HoldDoesNotRetrigger(t *testing.T) {
	f := newFixture(t, 10)
	f.ctl.Update(90)
	f.imu.Set(179)
	f.ctl.Update(90) // finishes, pad still held

	// Still held: no new align may start.
	f.imu.Set(10)
	f.ctl.Update(90)
	if f.ctl.State() != ManualControl {
		t.Error("held pad re-triggered an align")
	}

	// Release, then press again: new align.
	f.ctl.Update(PovReleased)
	f.ctl.Update(90)
	if f.ctl.State() != DirectionalAlign {
		t.Error("re-press after release did not start an align")
	}
}

func TestController_ReleaseRepressCancelsActiveAlign(t *testing.T) {
	f := newFixture(t, 10)
	f.ctl.Update(90)

	// Heading never reaches destination; operator releases and
	// presses again to cancel.
	f.ctl.Update(PovReleased)
	if f.ctl.State() != DirectionalAlign {
		t.Fatal("release alone must not cancel")
	}
	f.ctl.Update(45)

	if f.ctl.State() != ManualControl {
		t.Errorf("state = %v, want ManualControl after cancel", f.ctl.State())
	}
	if left, right := f.outputs(); left != 0 || right != 0 {
		t.Errorf("outputs = (%v, %v), want (0, 0)", left, right)
	}
}

func TestController_SafetyTimerBoundsAlign(t *testing.T) {
	f := newFixture(t, 10)
	f.ctl.Update(90)

	// Heading stuck; advance past the bound.
	f.clk.advance(3*time.Second + time.Millisecond)
	f.ctl.Update(90)

	if f.ctl.State() != ManualControl {
		t.Fatalf("state = %v, want ManualControl after timeout", f.ctl.State())
	}
	if left, right := f.outputs(); left != 0 || right != 0 {
		t.Errorf("outputs = (%v, %v), want (0, 0) after timeout", left, right)
	}

	// Timer must be reset for the next align.
	f.ctl.Update(PovReleased)
	f.ctl.Update(90)
	f.clk.advance(time.Second)
	f.imu.Set(120)
	f.ctl.Update(90)
	if f.ctl.State() != DirectionalAlign {
		t.Error("stale safety timer terminated the next align early")
	}
}

func TestController_Cancel(t *testing.T) {
	f := newFixture(t, 10)
	f.ctl.Update(90)

	f.ctl.Cancel()

	if f.ctl.State() != ManualControl {
		t.Errorf("state = %v, want ManualControl after Cancel", f.ctl.State())
	}
	if left, right := f.outputs(); left != 0 || right != 0 {
		t.Errorf("outputs = (%v, %v), want (0, 0) after Cancel", left, right)
	}

	// Cancel outside an align is a no-op.
	f.ctl.Cancel()
	if f.ctl.State() != ManualControl {
		t.Error("Cancel in manual control changed state")
	}
}

func TestController_StateGatesManualDrive(t *testing.T) {
	// The mutual-exclusion contract: callers check State() before
	// doing manual drive output.
	f := newFixture(t, 10)

	if f.ctl.Aligning() {
		t.Fatal("Aligning true before any press")
	}
	f.ctl.Update(90)
	if !f.ctl.Aligning() {
		t.Fatal("Aligning false during align")
	}
	f.imu.Set(180)
	f.ctl.Update(90)
	if f.ctl.Aligning() {
		t.Fatal("Aligning true after align finished")
	}
}

func TestController_PublishesTelemetry(t *testing.T) {
	f := newFixture(t, 10)

	f.ctl.Update(90)

	if f.sink.n == 0 {
		t.Fatal("no telemetry published")
	}
	if f.sink.last.State != "directional_align" {
		t.Errorf("snapshot state = %q, want directional_align", f.sink.last.State)
	}
	if f.sink.last.Destination != 180 {
		t.Errorf("snapshot destination = %d, want 180", f.sink.last.Destination)
	}
	if f.sink.last.TurnDir != "right" {
		t.Errorf("snapshot turn_dir = %q, want right", f.sink.last.TurnDir)
	}
	if f.sink.last.Heading != 10 {
		t.Errorf("snapshot heading = %v, want 10", f.sink.last.Heading)
	}
}

func TestController_EndToEndScenario(t *testing.T) {
	// Heading 10, pov 90: destination 180, distance -170 -> right.
	// Sensor later reports 179 -> align ends, manual control, zeroed.
	f := newFixture(t, 10)

	f.ctl.Update(90)
	if f.ctl.State() != DirectionalAlign || f.ctl.Destination() != 180 {
		t.Fatalf("after press: state=%v destination=%d", f.ctl.State(), f.ctl.Destination())
	}
	if left, right := f.outputs(); left != testSpeed || right != testSpeed {
		t.Fatalf("turn outputs = (%v, %v), want right pivot", left, right)
	}

	f.imu.Set(179)
	f.ctl.Update(90)

	if f.ctl.State() != ManualControl {
		t.Errorf("final state = %v, want ManualControl", f.ctl.State())
	}
	if left, right := f.outputs(); left != 0 || right != 0 {
		t.Errorf("final outputs = (%v, %v), want (0, 0)", left, right)
	}
}
