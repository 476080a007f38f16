package sandbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCappedBuffer(t *testing.T) {
	b := newCappedBuffer(8)
	n, err := b.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.False(t, b.truncated)

	n, err = b.Write([]byte(" world"))
	assert.NoError(t, err)
	assert.Equal(t, 6, n, "writes always report full length")
	assert.Equal(t, "hello wo", b.String())
	assert.True(t, b.truncated)

	_, _ = b.Write([]byte("more"))
	assert.Equal(t, "hello wo", b.String())
}

func TestCappedBufferUnlimited(t *testing.T) {
	b := newCappedBuffer(0)
	_, _ = b.Write(make([]byte, 4096))
	assert.Len(t, b.String(), 4096)
	assert.False(t, b.truncated)
}

func TestLimitsMerge(t *testing.T) {
	base := DefaultLimits()
	merged := base.Merge(Limits{WallClock: 10 * time.Second, AddressSpace: 0})
	assert.Equal(t, 10*time.Second, merged.WallClock)
	assert.Equal(t, base.CPUTime, merged.CPUTime)
	assert.Equal(t, base.AddressSpace, merged.AddressSpace)
}

func TestOutcomeHelpers(t *testing.T) {
	assert.False(t, (&Outcome{}).Failed())
	assert.True(t, (&Outcome{ExitCode: 1}).Failed())
	assert.True(t, (&Outcome{TimedOut: true}).Failed())
	assert.True(t, (&Outcome{Signal: "SIGXCPU"}).CPULimitExceeded())

	assert.Equal(t, "err", (&Outcome{Stderr: "err"}).Combined())
	assert.Equal(t, "out\nerr", (&Outcome{Stdout: "out", Stderr: "err"}).Combined())
}

func TestContainerConfig(t *testing.T) {
	limits := Limits{WallClock: 3 * time.Second, CPUTime: 1500 * time.Millisecond, FileSize: 1 << 20}
	cfg, host := containerConfig(Command{Args: []string{"python3", "main.py"}, Dir: "/tmp/ws-1", Image: "python:3.12-slim"}, limits, "1000:1000")

	assert.Equal(t, "python:3.12-slim", cfg.Image)
	assert.Equal(t, []string{"python3", "main.py"}, []string(cfg.Cmd))
	assert.Equal(t, ContainerWorkdir, cfg.WorkingDir)
	assert.Equal(t, "1000:1000", cfg.User)
	assert.True(t, cfg.NetworkDisabled)

	assert.Equal(t, []string{"/tmp/ws-1:" + ContainerWorkdir}, host.Binds)
	assert.Equal(t, "none", string(host.NetworkMode))
	assert.Equal(t, []string{"ALL"}, []string(host.CapDrop))
	assert.Equal(t, int64(defaultContainerMemory), host.Memory, "zero address space falls back to the default")
	assert.Equal(t, host.Memory, host.MemorySwap)

	byName := map[string][2]int64{}
	for _, u := range host.Ulimits {
		byName[u.Name] = [2]int64{u.Soft, u.Hard}
	}
	assert.Equal(t, [2]int64{2, 3}, byName["cpu"])
	assert.Equal(t, [2]int64{0, 0}, byName["core"])
	assert.Equal(t, [2]int64{1 << 20, 1 << 20}, byName["fsize"])
}

func TestSandboxOutputOptions(t *testing.T) {
	d, err := NewDockerSandbox(nil, WithContainerMaxOutput(4096))
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, 4096, d.maxOutput)

	d, err = NewDockerSandbox(nil, WithContainerMaxOutput(0))
	require.NoError(t, err)
	defer d.Close()
	assert.Equal(t, DefaultMaxOutputBytes, d.maxOutput)

	assert.Equal(t, 4096, NewProcessSandbox(nil, WithMaxOutput(4096)).maxOutput)
	assert.Equal(t, DefaultMaxOutputBytes, NewProcessSandbox(nil, WithMaxOutput(-1)).maxOutput)
}
