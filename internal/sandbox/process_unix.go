//go:build unix

package sandbox

import (
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"
)

const shell = "/bin/sh"

// wrapLimits prefixes the command with a shell that applies the limits to
// itself and then execs the target, so the limits are in force before the
// first user instruction runs.
func wrapLimits(bin string, args []string, l Limits) (string, []string) {
	var steps []string
	if l.CPUTime > 0 {
		secs := int64(math.Ceil(l.CPUTime.Seconds()))
		if secs < 1 {
			secs = 1
		}
		// The soft limit raises SIGXCPU; the hard limit one second later is a SIGKILL backstop.
		// Soft goes first: a hard limit below the current soft one is rejected with EINVAL.
		steps = append(steps, fmt.Sprintf("ulimit -S -t %d", secs), fmt.Sprintf("ulimit -H -t %d", secs+1))
	}
	if l.AddressSpace > 0 {
		steps = append(steps, fmt.Sprintf("ulimit -v %d", l.AddressSpace/1024))
	}
	if l.FileSize > 0 {
		steps = append(steps, fmt.Sprintf("ulimit -f %d", (l.FileSize+511)/512))
	}
	steps = append(steps, "ulimit -c 0")

	script := fmt.Sprintf("%s || { echo %q >&2; exit %d; }; exec \"$0\" \"$@\"",
		strings.Join(steps, " && "), ulimitFailure, ulimitFailureRC)
	return shell, append([]string{"-c", script, bin}, args...)
}

func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killGroup(cmd)
	}
}

// killProcessGroup reaps anything the child left running in its group.
func killProcessGroup(cmd *exec.Cmd) {
	_ = killGroup(cmd)
}

func killGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	if errors.Is(err, unix.ESRCH) {
		return os.ErrProcessDone
	}
	return err
}

func terminationSignal(state *os.ProcessState) string {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	return unix.SignalName(ws.Signal())
}

// signalFromStatus decodes the 128+N convention used by container runtimes.
func signalFromStatus(code int) string {
	if code <= 128 || code > 128+64 {
		return ""
	}
	return unix.SignalName(syscall.Signal(code - 128))
}
