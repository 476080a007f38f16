package sandbox

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-units"
	"github.com/rs/zerolog"

	"github.com/itstheanurag/kodanaliz/internal/metrics"
)

// ContainerWorkdir is where the workspace directory is mounted.
const ContainerWorkdir = "/workspace"

const (
	defaultContainerMemory = 256 << 20
	containerPidsLimit     = 64
)

// DockerSandbox runs each command in a fresh, network-less container with
// the workspace bind-mounted at ContainerWorkdir.
type DockerSandbox struct {
	cli       *client.Client
	logger    *zerolog.Logger
	user      string
	maxOutput int
}

type DockerOption func(*DockerSandbox)

// WithContainerMaxOutput caps each demultiplexed log stream at n bytes.
// n <= 0 keeps the default.
func WithContainerMaxOutput(n int) DockerOption {
	return func(s *DockerSandbox) {
		if n > 0 {
			s.maxOutput = n
		}
	}
}

func NewDockerSandbox(logger *zerolog.Logger, opts ...DockerOption) (*DockerSandbox, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, err
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	s := &DockerSandbox{
		cli:       cli,
		logger:    logger,
		user:      fmt.Sprintf("%d:%d", os.Getuid(), os.Getgid()),
		maxOutput: DefaultMaxOutputBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *DockerSandbox) Name() string { return "docker" }

// Ping checks that the daemon is reachable.
func (s *DockerSandbox) Ping(ctx context.Context) error {
	_, err := s.cli.Ping(ctx)
	return err
}

func (s *DockerSandbox) Close() error {
	return s.cli.Close()
}

func (s *DockerSandbox) Run(ctx context.Context, c Command, limits Limits) (*Outcome, error) {
	if len(c.Args) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrExecutionInfra)
	}
	if c.Image == "" {
		return nil, fmt.Errorf("%w: no image for %s", ErrExecutionInfra, c.Args[0])
	}

	createStart := time.Now()
	config, hostConfig := containerConfig(c, limits, s.user)
	resp, err := s.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("%w: create container: %w", ErrExecutionInfra, err)
	}
	defer func() {
		if err := s.cli.ContainerRemove(context.Background(), resp.ID, container.RemoveOptions{Force: true}); err != nil {
			s.logger.Warn().Err(err).Str("container", resp.ID).Msg("failed to remove container")
		}
	}()
	metrics.ContainerCreationTime.Observe(float64(time.Since(createStart).Milliseconds()))

	runCtx := ctx
	if limits.WallClock > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, limits.WallClock)
		defer cancel()
	}

	start := time.Now()
	if err := s.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		if strings.Contains(err.Error(), "executable file not found") || strings.Contains(err.Error(), "no such file or directory") {
			return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, c.Args[0])
		}
		return nil, fmt.Errorf("%w: start container: %w", ErrExecutionInfra, err)
	}

	out := &Outcome{}
	statusCh, errCh := s.cli.ContainerWait(runCtx, resp.ID, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		out.ExitCode = int(status.StatusCode)
	case err := <-errCh:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if runCtx.Err() == nil {
			return nil, fmt.Errorf("%w: wait container: %w", ErrExecutionInfra, err)
		}
		out.TimedOut = true
	case <-runCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out.TimedOut = true
	}
	out.Duration = time.Since(start)

	if out.TimedOut {
		if err := s.cli.ContainerKill(context.Background(), resp.ID, "SIGKILL"); err != nil {
			s.logger.Debug().Err(err).Str("container", resp.ID).Msg("kill after timeout")
		}
		out.Signal = "SIGKILL"
	} else {
		out.Signal = signalFromStatus(out.ExitCode)
		if inspect, err := s.cli.ContainerInspect(ctx, resp.ID); err == nil && inspect.State != nil && inspect.State.OOMKilled {
			out.Signal = "SIGKILL"
		}
	}

	logs, err := s.cli.ContainerLogs(context.Background(), resp.ID, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return nil, fmt.Errorf("%w: container logs: %w", ErrExecutionInfra, err)
	}
	defer logs.Close()

	stdout := newCappedBuffer(s.maxOutput)
	stderr := newCappedBuffer(s.maxOutput)
	if _, err := stdcopy.StdCopy(stdout, stderr, logs); err != nil {
		return nil, fmt.Errorf("%w: demultiplex logs: %w", ErrExecutionInfra, err)
	}
	out.Stdout = stdout.String()
	out.Stderr = stderr.String()
	out.Truncated = stdout.truncated || stderr.truncated

	if strings.Contains(out.Stderr, "executable file not found") && out.ExitCode == 127 {
		return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, c.Args[0])
	}

	s.logger.Debug().
		Str("container", resp.ID).
		Str("image", c.Image).
		Int("exit_code", out.ExitCode).
		Bool("timed_out", out.TimedOut).
		Dur("duration", out.Duration).
		Msg("container finished")
	return out, nil
}

// containerConfig translates a command and its limits into container settings.
func containerConfig(c Command, limits Limits, user string) (*container.Config, *container.HostConfig) {
	memory := limits.AddressSpace
	if memory <= 0 {
		memory = defaultContainerMemory
	}
	pids := int64(containerPidsLimit)

	ulimits := []*units.Ulimit{
		{Name: "core", Soft: 0, Hard: 0},
		{Name: "nofile", Soft: 64, Hard: 128},
	}
	if limits.CPUTime > 0 {
		secs := int64(math.Ceil(limits.CPUTime.Seconds()))
		ulimits = append(ulimits, &units.Ulimit{Name: "cpu", Soft: secs, Hard: secs + 1})
	}
	if limits.FileSize > 0 {
		ulimits = append(ulimits, &units.Ulimit{Name: "fsize", Soft: limits.FileSize, Hard: limits.FileSize})
	}

	config := &container.Config{
		Image:           c.Image,
		Cmd:             c.Args,
		Env:             append([]string{"HOME=" + ContainerWorkdir, "LANG=C.UTF-8"}, c.Env...),
		WorkingDir:      ContainerWorkdir,
		User:            user,
		NetworkDisabled: true,
		Tty:             false,
	}
	hostConfig := &container.HostConfig{
		Binds: []string{c.Dir + ":" + ContainerWorkdir},
		Resources: container.Resources{
			Memory:     memory,
			MemorySwap: memory,
			NanoCPUs:   1_000_000_000,
			PidsLimit:  &pids,
			Ulimits:    ulimits,
		},
		NetworkMode: "none",
		SecurityOpt: []string{"no-new-privileges"},
		CapDrop:     []string{"ALL"},
		Tmpfs: map[string]string{
			"/tmp": "rw,noexec,nosuid,size=16m,mode=1777",
		},
	}
	return config, hostConfig
}

func (s *DockerSandbox) EnsureImage(ctx context.Context, img string) error {
	if img == "" {
		return nil
	}
	if _, err := s.cli.ImageInspect(ctx, img); err == nil {
		return nil
	}

	s.logger.Info().Str("image", img).Msg("pulling docker image")
	reader, err := s.cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", img, err)
	}
	defer reader.Close()

	// the pull only completes once the progress stream is drained
	_, _ = io.Copy(io.Discard, reader)

	s.logger.Info().Str("image", img).Msg("successfully pulled docker image")
	return nil
}
