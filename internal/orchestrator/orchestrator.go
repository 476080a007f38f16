// Package orchestrator is the entry point of the analysis core. It validates
// requests, picks the analyzer for the requested language and bounds the
// number of analyses running at once.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/itstheanurag/kodanaliz/internal/analyzer"
	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/metrics"
	"github.com/itstheanurag/kodanaliz/internal/sandbox"
)

var (
	// ErrInvalidInput is returned for requests rejected before any phase runs.
	ErrInvalidInput = errors.New("invalid input")
	ErrEmptySource  = fmt.Errorf("%w: source code is empty", ErrInvalidInput)
)

// Request is one analysis call. Locale is carried for the presentation
// layer; the core never reads it.
type Request struct {
	SourceCode string
	Language   string
	Locale     string
}

type Options struct {
	// MaxInFlight bounds concurrent analyses. Zero means 1.
	MaxInFlight int64
	// MaxSourceBytes rejects larger sources. Zero disables the check.
	MaxSourceBytes int
}

type Orchestrator struct {
	registry *analyzer.Registry
	sem      *semaphore.Weighted
	maxBytes int
	logger   *zerolog.Logger
}

func New(registry *analyzer.Registry, opts Options, logger *zerolog.Logger) *Orchestrator {
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 1
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Orchestrator{
		registry: registry,
		sem:      semaphore.NewWeighted(opts.MaxInFlight),
		maxBytes: opts.MaxSourceBytes,
		logger:   logger,
	}
}

// Languages lists the languages that can be analyzed.
func (o *Orchestrator) Languages() []string {
	return o.registry.List()
}

// Analyze returns the analyzer's result unchanged. Errors are either
// ErrInvalidInput, a context error, or an infrastructure fault wrapping
// sandbox.ErrExecutionInfra.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (res diagnostic.Result, err error) {
	lang := strings.ToLower(strings.TrimSpace(req.Language))
	a, err := o.validate(lang, req.SourceCode)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues(o.metricLabel(lang), "invalid").Inc()
		return diagnostic.Result{}, err
	}

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return diagnostic.Result{}, err
	}
	defer o.sem.Release(1)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Str("language", lang).Interface("panic", r).Msg("analyzer panicked")
			res, err = diagnostic.Result{}, fmt.Errorf("%w: analyzer panicked", sandbox.ErrExecutionInfra)
		}
		metrics.AnalysesTotal.WithLabelValues(lang, outcomeLabel(res, err)).Inc()
	}()

	res, err = a.Analyze(ctx, req.SourceCode)
	if err != nil {
		if ctx.Err() == nil {
			o.logger.Error().Err(err).Str("language", lang).Msg("analysis failed")
		}
		return diagnostic.Result{}, err
	}
	o.logger.Debug().
		Str("language", lang).
		Str("status", string(res.Status)).
		Int("diagnostics", len(res.Diagnostics)).
		Dur("duration", time.Since(start)).
		Msg("analysis finished")
	return res, nil
}

func (o *Orchestrator) validate(lang, source string) (analyzer.Analyzer, error) {
	if strings.TrimSpace(source) == "" {
		return nil, ErrEmptySource
	}
	if o.maxBytes > 0 && len(source) > o.maxBytes {
		return nil, fmt.Errorf("%w: source code exceeds %d bytes", ErrInvalidInput, o.maxBytes)
	}
	if lang == "" {
		return nil, fmt.Errorf("%w: language is required", ErrInvalidInput)
	}
	a, err := o.registry.Get(lang)
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported language %q", ErrInvalidInput, lang)
	}
	return a, nil
}

func outcomeLabel(res diagnostic.Result, err error) string {
	if err != nil {
		return "error"
	}
	return string(res.Status)
}

// metricLabel keeps arbitrary user input out of label values.
func (o *Orchestrator) metricLabel(lang string) string {
	if _, err := o.registry.Get(lang); err != nil {
		return "unknown"
	}
	return lang
}
