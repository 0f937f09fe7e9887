package web

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"math"
	"net/http"
	"sync"
	"time"

	"drivego/internal/debug"
)

// TurnRequest holds the parameters for a remotely triggered gyro turn.
type TurnRequest struct {
	Direction string  `json:"direction"` // "left" or "right"
	TargetDeg float64 `json:"target_deg"`
	Speed     float64 `json:"speed"`
}

// ValidateTurnRequest checks a turn request before it reaches the
// drivetrain.
func ValidateTurnRequest(req TurnRequest) error {
	if req.Direction != "left" && req.Direction != "right" {
		return errors.New("direction must be left or right")
	}
	if math.IsNaN(req.TargetDeg) || req.TargetDeg < 0 || req.TargetDeg >= 360 {
		return errors.New("target_deg must be in [0, 360)")
	}
	if math.IsNaN(req.Speed) || req.Speed <= 0 || req.Speed > 1 {
		return errors.New("speed must be in (0, 1]")
	}
	return nil
}

// RunTurnFunc runs a bounded gyro turn with the given parameters.
// It is called from the POST /turn handler in a goroutine and reports
// whether the turn reached its target before the safety bound.
type RunTurnFunc func(ctx context.Context, req TurnRequest) (bool, error)

// FormConfig holds default values for the dashboard form (from config).
type FormConfig struct {
	AlignSpeed     float64 `json:"align_speed"`
	AlignTolerance float64 `json:"align_tolerance_deg"`
	TurnSpeed      float64 `json:"turn_speed"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster  *Broadcaster
	RunTurn      RunTurnFunc
	FormDefaults FormConfig
	runningMu    sync.Mutex
	running      bool
	staticFS     fs.FS
}

// NewHandlers creates handlers with the given dependencies.
// If runTurn is nil, POST /turn will return 503 Service Unavailable.
func NewHandlers(broadcaster *Broadcaster, runTurn RunTurnFunc, formDefaults FormConfig, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster:  broadcaster,
		RunTurn:      runTurn,
		FormDefaults: formDefaults,
		staticFS:     staticFS,
	}
}

// HandleConfig returns the form default values (from config) as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.FormDefaults)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleTurn handles POST /turn to start a bounded gyro turn.
func (h *Handlers) HandleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if err := ValidateTurnRequest(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h.RunTurn == nil {
		http.Error(w, "turns not configured", http.StatusServiceUnavailable)
		return
	}

	h.runningMu.Lock()
	if h.running {
		h.runningMu.Unlock()
		http.Error(w, "turn already in progress", http.StatusConflict)
		return
	}
	h.running = true
	h.runningMu.Unlock()

	// Run in goroutine; clear running when done
	go func() {
		defer func() {
			h.runningMu.Lock()
			h.running = false
			h.runningMu.Unlock()
		}()

		reached, err := h.RunTurn(context.Background(), req)
		if err != nil {
			debug.Error(err)
		} else if !reached {
			debug.Live("web turn ended without reaching %.0f", req.TargetDeg)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
