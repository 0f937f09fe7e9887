package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// BusConfig describes the serial link to the motor-controller bridge board.
type BusConfig struct {
	Port string `yaml:"port"` // e.g. /dev/ttyACM0
	Baud int    `yaml:"baud"` // default 115200
	Mock bool   `yaml:"mock"` // use mock driver (true=dev/test, false=real hardware)
}

// GyroConfig describes the serial link to the IMU coprocessor.
type GyroConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
	Mock bool   `yaml:"mock"` // use stub sensor (dev/test)
}

// GroupConfig describes one drivetrain motor group.
type GroupConfig struct {
	BaseID  int    `yaml:"base_id"` // bus ID of the master controller
	Count   int    `yaml:"count"`   // total controllers in the group (1-4)
	Mode    string `yaml:"mode"`    // non-master mode: follower, independent, inverse
	Encoder bool   `yaml:"encoder"` // master carries a feedback encoder
}

// AlignConfig tunes the directional alignment state machine.
type AlignConfig struct {
	Speed        float64 `yaml:"speed"`         // fixed align output (0-1)
	MaxTimeMs    int     `yaml:"max_time_ms"`   // safety bound for one align
	ToleranceDeg float64 `yaml:"tolerance_deg"` // heading window around destination
}

// TurnConfig tunes the bounded open-loop gyro turns.
type TurnConfig struct {
	Speed            float64 `yaml:"speed"`              // default turn output (0-1)
	MaxTimeMs        int     `yaml:"max_time_ms"`        // safety bound for one turn
	PollMs           int     `yaml:"poll_ms"`            // loop yield interval
	BackDriveSpeed   float64 `yaml:"back_drive_speed"`   // counter-rotation pulse output
	BackDriveTimeMs  int     `yaml:"back_drive_time_ms"` // counter-rotation pulse length
	ActivePeriodSecs int     `yaml:"active_period_secs"` // enabling window for auto mode; 0 = unlimited
}

// LedConfig describes the status LED panel pins (BCM numbering).
type LedConfig struct {
	Enabled      bool `yaml:"enabled"`
	AlignPin     int  `yaml:"align_pin"`     // lit while a directional align is running
	HeartbeatPin int  `yaml:"heartbeat_pin"` // toggled every loop tick
	Mock         bool `yaml:"mock"`          // use mock GPIO
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel   int `yaml:"debug_level"`    // 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	LoopPeriodMs int `yaml:"loop_period_ms"` // periodic control tick, default 20ms
}

// Config aggregates all application configuration.
type Config struct {
	Bus        BusConfig      `yaml:"bus"`
	Gyro       GyroConfig     `yaml:"gyro"`
	LeftDrive  GroupConfig    `yaml:"left_drive"`
	RightDrive GroupConfig    `yaml:"right_drive"`
	Align      AlignConfig    `yaml:"align"`
	Turn       TurnConfig     `yaml:"turn"`
	Leds       LedConfig      `yaml:"leds"`
	Defaults   DefaultsConfig `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	if err := validateGroup("left_drive", cfg.LeftDrive); err != nil {
		return nil, err
	}
	if err := validateGroup("right_drive", cfg.RightDrive); err != nil {
		return nil, err
	}
	if cfg.Align.Speed < 0 || cfg.Align.Speed > 1 {
		return nil, fmt.Errorf("align.speed must be between 0 and 1, got %.2f", cfg.Align.Speed)
	}
	if cfg.Turn.Speed < 0 || cfg.Turn.Speed > 1 {
		return nil, fmt.Errorf("turn.speed must be between 0 and 1, got %.2f", cfg.Turn.Speed)
	}
	if cfg.Turn.BackDriveSpeed < 0 || cfg.Turn.BackDriveSpeed > 1 {
		return nil, fmt.Errorf("turn.back_drive_speed must be between 0 and 1, got %.2f", cfg.Turn.BackDriveSpeed)
	}

	// Defaults
	if cfg.Bus.Baud <= 0 {
		cfg.Bus.Baud = 115200
	}
	if cfg.Gyro.Baud <= 0 {
		cfg.Gyro.Baud = 115200
	}
	if cfg.Align.Speed == 0 {
		cfg.Align.Speed = 0.55
	}
	if cfg.Align.MaxTimeMs <= 0 {
		cfg.Align.MaxTimeMs = 3000
	}
	if cfg.Align.ToleranceDeg <= 0 {
		cfg.Align.ToleranceDeg = 1.0
	}
	if cfg.Turn.Speed == 0 {
		cfg.Turn.Speed = 0.3
	}
	if cfg.Turn.MaxTimeMs <= 0 {
		cfg.Turn.MaxTimeMs = 5000
	}
	if cfg.Turn.PollMs <= 0 {
		cfg.Turn.PollMs = 5
	}
	if cfg.Turn.BackDriveSpeed == 0 {
		cfg.Turn.BackDriveSpeed = 0.25
	}
	if cfg.Turn.BackDriveTimeMs <= 0 {
		cfg.Turn.BackDriveTimeMs = 200
	}
	if cfg.Defaults.LoopPeriodMs <= 0 {
		cfg.Defaults.LoopPeriodMs = 20
	}

	return &cfg, nil
}

func validateGroup(name string, g GroupConfig) error {
	if g.Count < 1 || g.Count > 4 {
		return fmt.Errorf("%s.count must be between 1 and 4, got %d", name, g.Count)
	}
	if g.BaseID < 0 {
		return fmt.Errorf("%s.base_id must be >= 0, got %d", name, g.BaseID)
	}
	switch g.Mode {
	case "", "follower", "independent", "inverse":
	default:
		return fmt.Errorf("%s.mode must be follower, independent or inverse, got %q", name, g.Mode)
	}
	return nil
}

// LoopPeriod returns the periodic control tick duration.
func (c *Config) LoopPeriod() time.Duration {
	return time.Duration(c.Defaults.LoopPeriodMs) * time.Millisecond
}

// AlignMaxTime returns the alignment safety bound.
func (c *Config) AlignMaxTime() time.Duration {
	return time.Duration(c.Align.MaxTimeMs) * time.Millisecond
}

// TurnMaxTime returns the gyro turn safety bound.
func (c *Config) TurnMaxTime() time.Duration {
	return time.Duration(c.Turn.MaxTimeMs) * time.Millisecond
}

// TurnPoll returns the gyro turn loop yield interval.
func (c *Config) TurnPoll() time.Duration {
	return time.Duration(c.Turn.PollMs) * time.Millisecond
}

// BackDriveTime returns the counter-rotation pulse length.
func (c *Config) BackDriveTime() time.Duration {
	return time.Duration(c.Turn.BackDriveTimeMs) * time.Millisecond
}

// ActivePeriod returns the enabling window for auto mode (0 = unlimited).
func (c *Config) ActivePeriod() time.Duration {
	return time.Duration(c.Turn.ActivePeriodSecs) * time.Second
}
