package debug

import (
	"fmt"
	"log"
	"os"
)

// Debug levels
const (
	LevelOff     = 0 // No output
	LevelInfo    = 1 // Important info (startup, state transitions)
	LevelLive    = 2 // Live info (turns started/finished, align progress)
	LevelVerbose = 3 // Verbose (angle math, loop details)
	LevelTrace   = 4 // Trace (bus traffic, very low level)
)

var (
	level  int
	logger *log.Logger
)

// Init initializes the debug system with a level (0-4).
// 0 = no output
// 1 = important info (startup, state transitions)
// 2 = live info (turn/align progress)
// 3 = verbose (angle math, dispatch details)
// 4 = trace (motor bus traffic, very low level)
func Init(debugLevel int) {
	level = debugLevel
	if level > LevelOff {
		logger = log.New(os.Stdout, "[DriveGo] ", log.LstdFlags|log.Lmicroseconds)
	}
}

// Level returns the current debug level.
func Level() int {
	return level
}

// IsEnabled returns true if debug level is >= the requested level.
func IsEnabled(minLevel int) bool {
	return level >= minLevel
}

// --- Level 1 functions (Info): important info ---

// Info prints a level 1 message (important info).
func Info(format string, args ...interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] "+format, args...)
	}
}

// State prints a drive-state transition (level 1).
func State(from, to string) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO] Drive state: %s -> %s", from, to)
	}
}

// Value prints a named value in formatted form (level 1).
func Value(name string, value interface{}) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[INFO]   %s = %v", name, value)
	}
}

// --- Level 2 functions (Live): real-time info ---

// Live prints a level 2 message (live info).
func Live(format string, args ...interface{}) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] "+format, args...)
	}
}

// Turn prints a gyro turn event (level 2).
func Turn(direction string, target, heading float64) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Gyro turn %s: target=%.1f heading=%.1f", direction, target, heading)
	}
}

// Align prints alignment progress (level 2).
func Align(destination int, heading float64) {
	if level >= LevelLive && logger != nil {
		logger.Printf("[LIVE] Align: destination=%d heading=%.1f", destination, heading)
	}
}

// --- Level 3 functions (Verbose): everything ---

// Verbose prints a level 3 message (verbose).
func Verbose(format string, args ...interface{}) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] "+format, args...)
	}
}

// Printf is an alias for Verbose.
func Printf(format string, args ...interface{}) {
	Verbose(format, args...)
}

// Section prints a section separator (level 3).
func Section(name string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		logger.Printf("  %s", name)
		logger.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step prints a numbered step (level 3).
func Step(num int, description string) {
	if level >= LevelVerbose && logger != nil {
		logger.Printf("[VERBOSE] Step %d: %s", num, description)
	}
}

// --- Level 4 functions (Trace): very low level ---

// Trace prints a level 4 message (trace).
func Trace(format string, args ...interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[TRACE] "+format, args...)
	}
}

// Bus prints a motor bus operation (level 4).
func Bus(operation string, id int, value interface{}) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[BUS] %s id=%d value=%v", operation, id, value)
	}
}

// Gyro prints a heading sample (level 4).
func Gyro(heading float64) {
	if level >= LevelTrace && logger != nil {
		logger.Printf("[GYRO] heading=%.2f", heading)
	}
}

// --- General functions ---

// Error prints a debug error (level 1+).
func Error(err error) {
	if level >= LevelInfo && logger != nil {
		logger.Printf("[ERROR] %v", err)
	}
}

// Fmt is a helper function that returns a formatted string
// only if debug is enabled (to avoid unnecessary allocations).
func Fmt(format string, args ...interface{}) string {
	if level > 0 {
		return fmt.Sprintf(format, args...)
	}
	return ""
}
