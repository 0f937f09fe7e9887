// Package telemetry defines the one-way, fire-and-forget publish
// surface the control core reports through. Implementations must never
// block the control thread.
package telemetry

// Snapshot is one published control-state sample.
type Snapshot struct {
	Heading     float64 `json:"heading"`
	Destination int     `json:"destination"` // -1 when no align is pending
	State       string  `json:"state"`       // manual_control or directional_align
	TurnDir     string  `json:"turn_dir,omitempty"`
}

// Sink consumes snapshots. Publish must not block.
type Sink interface {
	Publish(Snapshot)
}

// Nop discards everything; the default sink when no dashboard is up.
type Nop struct{}

func (Nop) Publish(Snapshot) {}
