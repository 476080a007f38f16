//go:build !unix

package sandbox

import (
	"os"
	"os/exec"
)

// Resource limits and process groups are unavailable here; the wall-clock
// timeout is the only protection.
func wrapLimits(bin string, args []string, _ Limits) (string, []string) {
	return bin, args
}

func configureProcess(*exec.Cmd) {}

func killProcessGroup(*exec.Cmd) {}

func terminationSignal(*os.ProcessState) string { return "" }

func signalFromStatus(int) string { return "" }
