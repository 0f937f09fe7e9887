package gyro

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
)

func TestLatest_StoreAndRead(t *testing.T) {
	var l Latest
	if l.Heading() != 0 {
		t.Errorf("zero value Heading = %v, want 0", l.Heading())
	}

	l.Store(184.5)
	if l.Heading() != 184.5 {
		t.Errorf("Heading = %v, want 184.5", l.Heading())
	}

	l.Store(0.25)
	if l.Heading() != 0.25 {
		t.Errorf("Heading = %v, want 0.25", l.Heading())
	}
}

func TestLatest_ConcurrentPublish(t *testing.T) {
	var l Latest
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			l.Store(float64(i % 360))
		}
	}()

	for i := 0; i < 1000; i++ {
		h := l.Heading()
		if h < 0 || h >= 360 {
			t.Fatalf("torn read: %v", h)
		}
	}
	wg.Wait()
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		heading float64
		ok      bool
	}{
		{"H 123.4", 123.4, true},
		{"H 0", 0, true},
		{"H 359.9", 359.9, true},
		{"H 360", 0, true},
		{"H 370.5", 10.5, true},
		{"H -90", 270, true},
		{"T 25.1", 0, false}, // other sensor channel
		{"H", 0, false},
		{"H abc", 0, false},
		{"", 0, false},
		{"H 1 2", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseLine(tt.line)
		if ok != tt.ok {
			t.Errorf("parseLine(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			continue
		}
		if ok && got != tt.heading {
			t.Errorf("parseLine(%q) = %v, want %v", tt.line, got, tt.heading)
		}
	}
}

type stringPort struct {
	io.Reader
}

func (stringPort) Close() error { return nil }

func TestSerialIMU_RunPublishesSamples(t *testing.T) {
	stream := "H 10.0\nT 25.0\nH 45.5\nnoise\nH 180\n"
	imu := newSerialIMU(stringPort{strings.NewReader(stream)})

	if err := imu.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := imu.Heading(); got != 180 {
		t.Errorf("Heading after stream = %v, want 180 (last sample)", got)
	}
}

func TestStub(t *testing.T) {
	s := NewStub(90)
	if s.Heading() != 90 {
		t.Errorf("Heading = %v, want 90", s.Heading())
	}
	s.Set(271.5)
	if s.Heading() != 271.5 {
		t.Errorf("Heading = %v, want 271.5", s.Heading())
	}
}
