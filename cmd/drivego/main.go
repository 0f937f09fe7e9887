package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"drivego/internal/config"
	"drivego/internal/debug"
	"drivego/internal/hw/gpio"
	"drivego/internal/hw/gyro"
	"drivego/internal/hw/motorbus"
	"drivego/internal/hw/statusled"
	"drivego/internal/input"
	"drivego/internal/logic/align"
	"drivego/internal/logic/drive"
	"drivego/internal/logic/gyroturn"
	"drivego/internal/logic/motorgroup"
	"drivego/internal/stopwatch"
	"drivego/internal/telemetry"
	"drivego/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web dashboard on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	auto := flag.Bool("auto", false, "run the scripted autonomous routine instead of teleop")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	// Motor bus
	debug.Step(1, "Opening motor bus")
	debug.Value("Mock bus", cfg.Bus.Mock)
	bus, err := newBusFromConfig(cfg)
	if err != nil {
		log.Fatalf("open motor bus failed: %v", err)
	}
	defer func() {
		if err := bus.Close(); err != nil {
			log.Printf("closing motor bus failed: %v", err)
		}
	}()

	// Gyro
	debug.Step(2, "Opening gyro")
	debug.Value("Mock gyro", cfg.Gyro.Mock)
	imu, err := newGyroFromConfig(ctx, cfg)
	if err != nil {
		log.Fatalf("open gyro failed: %v", err)
	}

	// Drivetrain groups
	debug.Step(3, "Building drivetrain groups")
	left, err := newGroupFromConfig(bus, cfg.LeftDrive)
	if err != nil {
		log.Fatalf("left drive group: %v", err)
	}
	right, err := newGroupFromConfig(bus, cfg.RightDrive)
	if err != nil {
		log.Fatalf("right drive group: %v", err)
	}
	train := drive.NewTrain(left, right)
	train.SetCoastMode()
	defer train.Stop()

	// Status LEDs
	debug.Step(4, "Setting up status LEDs")
	leds, closeLeds, err := newLedsFromConfig(cfg)
	if err != nil {
		log.Fatalf("status leds: %v", err)
	}
	defer closeLeds()

	// Telemetry sink and optional web dashboard
	var sink telemetry.Sink = telemetry.Nop{}
	var broadcaster *web.Broadcaster
	if webPort.port() > 0 {
		broadcaster = web.NewBroadcaster()
		sink = broadcaster
	}

	// Controllers
	debug.Step(5, "Creating controllers")
	aligner := align.NewController(train, imu, stopwatch.New(), sink, align.Config{
		Speed:        cfg.Align.Speed,
		MaxAlignTime: cfg.AlignMaxTime(),
		ToleranceDeg: cfg.Align.ToleranceDeg,
	})
	turner := gyroturn.NewTurner(train, imu, stopwatch.New(), enabledFunc(ctx, cfg.ActivePeriod()), gyroturn.Config{
		MaxTurnTime:    cfg.TurnMaxTime(),
		Poll:           cfg.TurnPoll(),
		BackDriveSpeed: cfg.Turn.BackDriveSpeed,
		BackDriveTime:  cfg.BackDriveTime(),
	})

	if broadcaster != nil {
		runTurn := func(ctx context.Context, req web.TurnRequest) (bool, error) {
			if aligner.Aligning() {
				return false, fmt.Errorf("directional align in progress")
			}
			if req.Direction == "left" {
				return turner.TurnLeft(ctx, req.TargetDeg, req.Speed), nil
			}
			return turner.TurnRight(ctx, req.TargetDeg, req.Speed), nil
		}
		srv := web.NewServer(fmt.Sprintf(":%d", webPort.port()), broadcaster, runTurn, web.FormConfig{
			AlignSpeed:     cfg.Align.Speed,
			AlignTolerance: cfg.Align.ToleranceDeg,
			TurnSpeed:      cfg.Turn.Speed,
		})
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Printf("web server: %v", err)
			}
		}()
	}

	if *auto {
		runAuto(ctx, turner, train, cfg)
		return
	}

	runTeleop(ctx, cfg, aligner, leds)
}

// runTeleop drives the periodic control loop: read the pad, tick the
// alignment machine, toggle the heartbeat. Anything issuing manual
// drive output must check aligner.State() first.
func runTeleop(ctx context.Context, cfg *config.Config, aligner *align.Controller, leds *statusled.Panel) {
	debug.Section("Teleop")
	debug.Info("Type an angle (0, 90, 180, 270) and press enter to align; empty line releases")

	pad := input.NewKeypad(cfg.LoopPeriod() * 4)
	go func() {
		if err := pad.Run(ctx, os.Stdin); err != nil {
			debug.Error(err)
		}
	}()

	ticker := time.NewTicker(cfg.LoopPeriod())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			aligner.Cancel()
			if leds != nil {
				leds.Off()
			}
			return
		case <-ticker.C:
			aligner.Update(pad.Pov())
			if leds != nil {
				leds.SetAligning(aligner.Aligning())
				leds.Heartbeat()
			}
		}
	}
}

// runAuto executes a fixed scripted routine: drive out, square the
// robot at 90°, drive again, turn back. The return target is 5°
// rather than 0° because the turns don't handle heading wraparound.
func runAuto(ctx context.Context, turner *gyroturn.Turner, train *drive.Train, cfg *config.Config) {
	debug.Section("Autonomous")
	train.SetBrakeMode()
	defer train.SetCoastMode()

	debug.Step(1, "Driving forward")
	train.Forward(cfg.Turn.Speed)
	sleepCtx(ctx, 1500*time.Millisecond)
	train.Stop()

	debug.Step(2, "Turning right to 90")
	if !turner.TurnRight(ctx, 90, cfg.Turn.Speed) {
		debug.Live("auto: right turn did not reach target")
		return
	}

	debug.Step(3, "Driving forward")
	train.Forward(cfg.Turn.Speed)
	sleepCtx(ctx, 1500*time.Millisecond)
	train.Stop()

	debug.Step(4, "Turning left back to 5")
	if !turner.TurnLeft(ctx, 5, cfg.Turn.Speed) {
		debug.Live("auto: left turn did not reach target")
		return
	}

	debug.Section("Autonomous Complete")
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// enabledFunc builds the gyro-turn enabling predicate: the process is
// live and, when an active period is configured, the window since
// startup has not elapsed.
func enabledFunc(ctx context.Context, activePeriod time.Duration) func() bool {
	start := time.Now()
	return func() bool {
		if ctx.Err() != nil {
			return false
		}
		if activePeriod > 0 && time.Since(start) > activePeriod {
			return false
		}
		return true
	}
}

func newBusFromConfig(cfg *config.Config) (motorbus.Driver, error) {
	if cfg.Bus.Mock {
		return motorbus.NewMockDriver(), nil
	}
	return motorbus.OpenSerial(cfg.Bus.Port, cfg.Bus.Baud)
}

// newGyroFromConfig opens the IMU and starts its reader goroutine, or
// returns a fixed stub when mocked.
func newGyroFromConfig(ctx context.Context, cfg *config.Config) (gyro.Sensor, error) {
	if cfg.Gyro.Mock {
		return gyro.NewStub(0), nil
	}
	imu, err := gyro.OpenSerialIMU(cfg.Gyro.Port, cfg.Gyro.Baud)
	if err != nil {
		return nil, err
	}
	go func() {
		if err := imu.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("gyro reader stopped: %v", err)
		}
	}()
	return imu, nil
}

func newGroupFromConfig(bus motorbus.Driver, gc config.GroupConfig) (*motorgroup.Group, error) {
	mode, err := motorgroup.ParseControlMode(gc.Mode)
	if err != nil {
		return nil, err
	}
	return motorgroup.New(bus, gc.Count, gc.BaseID, mode, gc.Encoder)
}

// newLedsFromConfig returns a nil panel when LEDs are disabled.
func newLedsFromConfig(cfg *config.Config) (*statusled.Panel, func(), error) {
	if !cfg.Leds.Enabled {
		return nil, func() {}, nil
	}
	driver, err := gpio.NewDriver(cfg.Leds.Mock)
	if err != nil {
		return nil, nil, err
	}
	panel, err := statusled.NewPanel(driver, cfg.Leds.AlignPin, cfg.Leds.HeartbeatPin)
	if err != nil {
		driver.Close()
		return nil, nil, err
	}
	closer := func() {
		panel.Off()
		if err := driver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}
	return panel, closer, nil
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
