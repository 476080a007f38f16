package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ulimitFailure is printed by the rlimit wrapper when it cannot apply a limit.
const (
	ulimitFailure    = "sandbox: ulimit failed"
	ulimitFailureRC  = 125
	defaultWaitDelay = 500 * time.Millisecond
)

// ProcessSandbox runs commands as child processes of the current process.
// Every run gets its own process group, a minimal environment and
// per-process resource limits.
type ProcessSandbox struct {
	logger    *zerolog.Logger
	maxOutput int
	waitDelay time.Duration
	basePath  string
}

type ProcessOption func(*ProcessSandbox)

// WithMaxOutput caps each captured stream at n bytes. n <= 0 keeps the default.
func WithMaxOutput(n int) ProcessOption {
	return func(s *ProcessSandbox) {
		if n > 0 {
			s.maxOutput = n
		}
	}
}

func NewProcessSandbox(logger *zerolog.Logger, opts ...ProcessOption) *ProcessSandbox {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &ProcessSandbox{
		logger:    logger,
		maxOutput: DefaultMaxOutputBytes,
		waitDelay: defaultWaitDelay,
		basePath:  os.Getenv("PATH"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ProcessSandbox) Name() string { return "process" }

// EnsureImage is a no-op: host processes use whatever is installed.
func (s *ProcessSandbox) EnsureImage(context.Context, string) error { return nil }

func (s *ProcessSandbox) Run(ctx context.Context, c Command, limits Limits) (*Outcome, error) {
	if len(c.Args) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrExecutionInfra)
	}
	bin, err := s.resolve(c)
	if err != nil {
		return nil, err
	}

	runCtx := ctx
	if limits.WallClock > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, limits.WallClock)
		defer cancel()
	}

	name, args := wrapLimits(bin, c.Args[1:], limits)
	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = c.Dir
	cmd.Env = s.environ(c)
	cmd.WaitDelay = s.waitDelay
	configureProcess(cmd)

	stdout := newCappedBuffer(s.maxOutput)
	stderr := newCappedBuffer(s.maxOutput)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %w", ErrExecutionInfra, c.Args[0], err)
	}
	waitErr := cmd.Wait()
	killProcessGroup(cmd)

	out := &Outcome{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.truncated || stderr.truncated,
		Duration:  time.Since(start),
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		out.TimedOut = true
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.As(waitErr, &exitErr):
	case out.TimedOut:
	case errors.Is(waitErr, exec.ErrWaitDelay):
		// output pipes held open by a stray grandchild; the process itself exited
	default:
		return nil, fmt.Errorf("%w: wait %s: %w", ErrExecutionInfra, c.Args[0], waitErr)
	}
	if cmd.ProcessState != nil {
		out.ExitCode = cmd.ProcessState.ExitCode()
		out.Signal = terminationSignal(cmd.ProcessState)
	}

	if out.ExitCode == ulimitFailureRC && strings.Contains(out.Stderr, ulimitFailure) {
		return nil, fmt.Errorf("%w: %s", ErrExecutionInfra, ulimitFailure)
	}

	s.logger.Debug().
		Str("cmd", c.Args[0]).
		Int("exit_code", out.ExitCode).
		Str("signal", out.Signal).
		Bool("timed_out", out.TimedOut).
		Dur("duration", out.Duration).
		Msg("process finished")
	return out, nil
}

// resolve turns Args[0] into an absolute path. Names with a separator are
// taken relative to the command's working directory.
func (s *ProcessSandbox) resolve(c Command) (string, error) {
	name := c.Args[0]
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.Dir, path)
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
		}
		return path, nil
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
	}
	return path, nil
}

// environ builds a minimal environment. The parent's variables are not
// inherited apart from PATH.
func (s *ProcessSandbox) environ(c Command) []string {
	env := []string{
		"PATH=" + s.basePath,
		"HOME=" + c.Dir,
		"TMPDIR=" + c.Dir,
		"LANG=C.UTF-8",
		"LC_ALL=C.UTF-8",
	}
	return append(env, c.Env...)
}
