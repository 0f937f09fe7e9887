package web

import (
	"encoding/json"
	"sync"

	"drivego/internal/telemetry"
)

// Broadcaster distributes telemetry snapshots to multiple SSE clients.
// It implements telemetry.Sink; Publish never blocks the control loop.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[chan string]struct{}
	latest  string
	haveOne bool
}

// NewBroadcaster creates a broadcaster with no clients.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[chan string]struct{}),
	}
}

// Subscribe returns a channel that receives snapshot payloads and a
// cleanup function. The caller must call the returned cleanup when done
// (e.g. on client disconnect). The latest snapshot, if any, is queued
// immediately so new clients render current state without waiting for
// the next control tick.
func (b *Broadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 64)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	if b.haveOne {
		ch <- b.latest
	}
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		delete(b.clients, ch)
		b.mu.Unlock()
		close(ch)
	}
	return ch, unsub
}

// Publish sends the snapshot to all subscribed clients as JSON.
// Slow clients may miss snapshots (non-blocking, buffered).
func (b *Broadcaster) Publish(snap telemetry.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	payload := string(data)

	b.mu.Lock()
	b.latest = payload
	b.haveOne = true
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
			// channel full, skip
		}
	}
	b.mu.Unlock()
}
