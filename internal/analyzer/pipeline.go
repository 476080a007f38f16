package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/languages"
	"github.com/itstheanurag/kodanaliz/internal/metrics"
	"github.com/itstheanurag/kodanaliz/internal/sandbox"
	"github.com/itstheanurag/kodanaliz/internal/workspace"
)

var tracer = otel.Tracer("github.com/itstheanurag/kodanaliz/internal/analyzer")

// Reasons a static-analysis phase is skipped.
const (
	SkipNotConfigured = "not_configured"
	SkipNotInstalled  = "not_installed"
	SkipTimedOut      = "timed_out"
)

// Pipeline implements Analyzer for a languages.Language on top of a Sandbox.
// Check and run share one workspace so compiled artifacts survive between
// them; lint gets a fresh copy of the source.
type Pipeline struct {
	lang       languages.Language
	sandbox    sandbox.Sandbox
	workspaces *workspace.Manager
	logger     *zerolog.Logger
}

func NewPipeline(lang languages.Language, sb sandbox.Sandbox, workspaces *workspace.Manager, logger *zerolog.Logger) *Pipeline {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("language", lang.ID).Logger()
	return &Pipeline{lang: lang, sandbox: sb, workspaces: workspaces, logger: &l}
}

func (p *Pipeline) Language() string { return p.lang.ID }

// Definition returns the language the pipeline was built for.
func (p *Pipeline) Definition() languages.Language { return p.lang }

func (p *Pipeline) Analyze(ctx context.Context, source string) (diagnostic.Result, error) {
	start := time.Now()
	defer func() {
		metrics.PhaseDuration.WithLabelValues(p.lang.ID, "total").Observe(float64(time.Since(start).Milliseconds()))
	}()

	ws, err := p.workspaces.Acquire(p.lang.ID, p.lang.Layout, source)
	if err != nil {
		return diagnostic.Result{}, fmt.Errorf("%w: %w", sandbox.ErrExecutionInfra, err)
	}
	defer p.workspaces.Release(ws)

	check := p.lang.Check
	out, err := p.run(ctx, ws, check)
	if err != nil {
		return diagnostic.Result{}, err
	}
	if out.Failed() {
		return diagnostic.Failed(p.failure(check, out)...), nil
	}

	run := p.lang.Run
	out, err = p.run(ctx, ws, run)
	if err != nil {
		return diagnostic.Result{}, err
	}
	if out.Failed() {
		return diagnostic.Failed(p.failure(run, out)[:1]...), nil
	}
	if out.Truncated {
		p.logger.Warn().Msg("program output truncated")
	}
	output := strings.TrimRight(out.Stdout, "\r\n")

	findings, err := p.lint(ctx, source)
	if err != nil {
		return diagnostic.Result{}, err
	}
	if len(findings) > 0 {
		return diagnostic.Failed(findings...), nil
	}
	return diagnostic.Success(output), nil
}

// failure turns a failed check or run outcome into diagnostics. It never
// returns an empty slice.
func (p *Pipeline) failure(ph languages.Phase, out *sandbox.Outcome) []diagnostic.Diagnostic {
	if out.TimedOut || out.CPULimitExceeded() {
		return []diagnostic.Diagnostic{timeoutDiagnostic(ph, out)}
	}
	raw := ph.Stream.Select(out)
	if diags := ph.Parser.Findings(raw); len(diags) > 0 {
		return diags
	}
	if strings.TrimSpace(raw) == "" {
		raw = out.Combined()
	}
	if strings.TrimSpace(raw) == "" {
		return []diagnostic.Diagnostic{exitDiagnostic(ph, out)}
	}
	return []diagnostic.Diagnostic{ph.Parser.Fallback(raw)}
}

func (p *Pipeline) lint(ctx context.Context, source string) ([]diagnostic.Diagnostic, error) {
	ph := p.lang.Lint
	if ph == nil {
		p.skipLint(SkipNotConfigured, nil)
		return nil, nil
	}

	var findings []diagnostic.Diagnostic
	err := p.workspaces.With(p.lang.ID, p.lang.Layout, source, func(ws *workspace.Workspace) error {
		out, err := p.run(ctx, ws, *ph)
		if errors.Is(err, sandbox.ErrBinaryNotFound) {
			p.skipLint(SkipNotInstalled, err)
			return nil
		}
		if err != nil {
			return err
		}
		if out.TimedOut || out.CPULimitExceeded() {
			p.skipLint(SkipTimedOut, nil)
			return nil
		}
		findings = ph.Parser.Findings(ph.Stream.Select(out))
		if len(findings) == 0 && out.Failed() {
			findings = []diagnostic.Diagnostic{ph.Parser.Fallback(out.Combined())}
		}
		return nil
	})
	switch {
	case err == nil:
		return findings, nil
	case errors.Is(err, sandbox.ErrExecutionInfra), ctx.Err() != nil:
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", sandbox.ErrExecutionInfra, err)
	}
}

func (p *Pipeline) skipLint(reason string, err error) {
	metrics.LintSkipped.WithLabelValues(p.lang.ID, reason).Inc()
	tool := ""
	if p.lang.Lint != nil {
		tool = p.lang.Lint.Tool
	}
	p.logger.Warn().Err(err).Str("phase", string(languages.PhaseLint)).Str("tool", tool).Str("reason", reason).
		Msg("static analysis skipped, reporting no findings")
}

func (p *Pipeline) run(ctx context.Context, ws *workspace.Workspace, ph languages.Phase) (*sandbox.Outcome, error) {
	ctx, span := tracer.Start(ctx, "kodanaliz.phase."+string(ph.Name), trace.WithAttributes(
		attribute.String("language", p.lang.ID),
		attribute.String("tool", ph.Tool),
	))
	defer span.End()

	cmd := sandbox.Command{
		Args:  ph.Args(ws),
		Dir:   ws.Dir,
		Env:   ph.Env,
		Image: p.lang.Image,
	}
	start := time.Now()
	out, err := p.sandbox.Run(ctx, cmd, ph.Limits)
	metrics.PhaseDuration.WithLabelValues(p.lang.ID, string(ph.Name)).Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s %s phase: %w", p.lang.ID, ph.Name, err)
	}

	span.SetAttributes(
		attribute.Int("exit_code", out.ExitCode),
		attribute.Bool("timed_out", out.TimedOut),
		attribute.String("signal", out.Signal),
	)
	if out.TimedOut || out.CPULimitExceeded() {
		metrics.SandboxTimeouts.WithLabelValues(p.lang.ID, string(ph.Name)).Inc()
	}
	p.logger.Debug().
		Str("phase", string(ph.Name)).
		Str("tool", ph.Tool).
		Str("workspace", ws.Dir).
		Int("exit_code", out.ExitCode).
		Bool("timed_out", out.TimedOut).
		Dur("duration", out.Duration).
		Msg("phase finished")
	return out, nil
}

func timeoutDiagnostic(ph languages.Phase, out *sandbox.Outcome) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{Kind: diagnostic.TimeoutError, ToolSource: ph.Tool}
	if out.CPULimitExceeded() && !out.TimedOut {
		d.Category = "cpu_time"
		d.RawMessage = fmt.Sprintf("%s exceeded the CPU time limit of %s", ph.Tool, ph.Limits.CPUTime)
		return d
	}
	d.Category = "wall_clock"
	d.RawMessage = fmt.Sprintf("%s did not finish within %s", ph.Tool, ph.Limits.WallClock)
	return d
}

// exitDiagnostic describes a failure that left no output at all.
func exitDiagnostic(ph languages.Phase, out *sandbox.Outcome) diagnostic.Diagnostic {
	d := diagnostic.Diagnostic{Kind: ph.Parser.Kind, ToolSource: ph.Tool}
	if out.Signal != "" {
		d.Category = out.Signal
		d.RawMessage = "process terminated by signal " + out.Signal
		return d
	}
	d.RawMessage = fmt.Sprintf("process exited with status %d", out.ExitCode)
	return d
}
