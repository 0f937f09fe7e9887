// Package input provides the directional-pad source driving the
// alignment state machine. On the real robot this comes from a game
// controller; on the bench a line-oriented stdin reader stands in.
package input

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"drivego/internal/debug"
)

// Released is the pov value meaning "no press".
const Released = -1

// Source reports the current directional-pad value: -1 released,
// otherwise degrees in 45° increments. Pov is called once per control
// tick and must not block.
type Source interface {
	Pov() int
}

// Stub is a settable source for tests and scripted routines.
type Stub struct {
	mu  sync.Mutex
	pov int
}

func NewStub() *Stub {
	return &Stub{pov: Released}
}

func (s *Stub) Set(pov int) {
	s.mu.Lock()
	s.pov = pov
	s.mu.Unlock()
}

func (s *Stub) Pov() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pov
}

// Keypad adapts a line-oriented reader (stdin on the bench) into a
// Source. Each line naming an angle registers a press held for the
// hold duration, then auto-releases; the alignment machine sees the
// same press/release edges a pad would produce.
type Keypad struct {
	hold time.Duration

	mu       sync.Mutex
	pov      int
	deadline time.Time
}

// NewKeypad creates a keypad whose presses last hold.
func NewKeypad(hold time.Duration) *Keypad {
	if hold <= 0 {
		hold = 250 * time.Millisecond
	}
	return &Keypad{hold: hold, pov: Released}
}

// Pov returns the active press, auto-releasing once its hold elapses.
func (k *Keypad) Pov() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.pov != Released && time.Now().After(k.deadline) {
		k.pov = Released
	}
	return k.pov
}

// press registers a new press, restarting the hold window.
func (k *Keypad) press(pov int) {
	k.mu.Lock()
	k.pov = pov
	k.deadline = time.Now().Add(k.hold)
	k.mu.Unlock()
}

// release clears any active press immediately.
func (k *Keypad) release() {
	k.mu.Lock()
	k.pov = Released
	k.mu.Unlock()
}

// Run consumes lines from r until ctx is cancelled or r is exhausted.
// A line is an angle in degrees ("0", "90", "45"), or empty to
// release. Unparseable lines are ignored.
func (k *Keypad) Run(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			k.release()
			continue
		}
		pov, err := strconv.Atoi(line)
		if err != nil || pov < 0 || pov >= 360 || pov%45 != 0 {
			debug.Live("input: ignoring %q", line)
			continue
		}
		k.press(pov)
	}
	return scanner.Err()
}
