package sandbox

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrExecutionInfra means the process could not be run at all. A
	// program's own nonzero exit or crash is never reported this way.
	ErrExecutionInfra = errors.New("sandbox: execution infrastructure failure")
	// ErrBinaryNotFound is returned when the requested executable is not
	// installed. It wraps ErrExecutionInfra.
	ErrBinaryNotFound = fmt.Errorf("%w: binary not found", ErrExecutionInfra)
)

// Limits are applied to each spawned process. Zero disables a limit.
type Limits struct {
	WallClock    time.Duration
	CPUTime      time.Duration
	AddressSpace int64 // bytes
	FileSize     int64 // bytes
}

// DefaultLimits are conservative because the code is untrusted.
func DefaultLimits() Limits {
	return Limits{
		WallClock:    3 * time.Second,
		CPUTime:      2 * time.Second,
		AddressSpace: 256 << 20,
		FileSize:     16 << 20,
	}
}

// Merge overlays the non-zero fields of o onto l.
func (l Limits) Merge(o Limits) Limits {
	if o.WallClock > 0 {
		l.WallClock = o.WallClock
	}
	if o.CPUTime > 0 {
		l.CPUTime = o.CPUTime
	}
	if o.AddressSpace > 0 {
		l.AddressSpace = o.AddressSpace
	}
	if o.FileSize > 0 {
		l.FileSize = o.FileSize
	}
	return l
}

type Command struct {
	// Args[0] is the executable, resolved through PATH.
	Args []string
	Dir  string
	Env  []string
	// Image is the container image used by container backends.
	Image string
}

// Outcome is the complete result of one sandboxed run.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
	// Signal names the signal that terminated the process, e.g. "SIGXCPU".
	Signal string
	// Truncated is set when a stream exceeded the capture cap.
	Truncated bool
	Duration  time.Duration
}

// Failed reports whether the process did not exit cleanly.
func (o *Outcome) Failed() bool {
	return o.TimedOut || o.ExitCode != 0 || o.Signal != ""
}

// CPULimitExceeded reports a kill caused by the CPU-time ceiling.
func (o *Outcome) CPULimitExceeded() bool {
	return o.Signal == "SIGXCPU"
}

// Combined joins stdout and stderr for tools that split reports across both.
func (o *Outcome) Combined() string {
	switch {
	case o.Stdout == "":
		return o.Stderr
	case o.Stderr == "":
		return o.Stdout
	default:
		return o.Stdout + "\n" + o.Stderr
	}
}

// Sandbox runs one command under limits. Implementations hold no mutable
// state between invocations and are safe for concurrent use.
type Sandbox interface {
	Run(ctx context.Context, cmd Command, limits Limits) (*Outcome, error)
	EnsureImage(ctx context.Context, image string) error
	Name() string
}
