package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itstheanurag/kodanaliz/internal/analyzer"
	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/sandbox"
)

type stubAnalyzer struct {
	lang  string
	calls atomic.Int32
	fn    func(ctx context.Context, source string) (diagnostic.Result, error)
}

func (s *stubAnalyzer) Language() string { return s.lang }

func (s *stubAnalyzer) Analyze(ctx context.Context, source string) (diagnostic.Result, error) {
	s.calls.Add(1)
	if s.fn == nil {
		return diagnostic.Success(source), nil
	}
	return s.fn(ctx, source)
}

func newOrchestrator(opts Options, analyzers ...analyzer.Analyzer) *Orchestrator {
	r := analyzer.NewRegistry()
	for _, a := range analyzers {
		r.Register(a)
	}
	return New(r, opts, nil)
}

func TestAnalyzeRejectsInvalidInput(t *testing.T) {
	stub := &stubAnalyzer{lang: "python"}
	o := newOrchestrator(Options{MaxSourceBytes: 32}, stub)

	tests := []struct {
		name string
		req  Request
	}{
		{"empty source", Request{SourceCode: "", Language: "python"}},
		{"blank source", Request{SourceCode: " \n\t", Language: "python"}},
		{"unknown language", Request{SourceCode: "x", Language: "cobol"}},
		{"missing language", Request{SourceCode: "x"}},
		{"oversized source", Request{SourceCode: strings.Repeat("x", 33), Language: "python"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := o.Analyze(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Empty(t, res.Diagnostics, "invalid input is not a diagnostic")
		})
	}
	assert.Zero(t, stub.calls.Load(), "no phase may run for invalid input")
}

func TestAnalyzeDelegatesUnchanged(t *testing.T) {
	want := diagnostic.Failed(diagnostic.Diagnostic{Kind: diagnostic.SyntaxError, Line: 1, RawMessage: "boom", ToolSource: "py_compile"})
	stub := &stubAnalyzer{lang: "python", fn: func(context.Context, string) (diagnostic.Result, error) {
		return want, nil
	}}
	o := newOrchestrator(Options{}, stub)

	got, err := o.Analyze(context.Background(), Request{SourceCode: "print(1", Language: " Python ", Locale: "en"})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, []string{"python"}, o.Languages())
}

func TestAnalyzePropagatesInfraErrors(t *testing.T) {
	stub := &stubAnalyzer{lang: "python", fn: func(context.Context, string) (diagnostic.Result, error) {
		return diagnostic.Result{}, sandbox.ErrBinaryNotFound
	}}
	o := newOrchestrator(Options{}, stub)

	_, err := o.Analyze(context.Background(), Request{SourceCode: "x", Language: "python"})
	assert.ErrorIs(t, err, sandbox.ErrExecutionInfra)
	assert.False(t, errors.Is(err, ErrInvalidInput))
}

func TestAnalyzeRecoversPanics(t *testing.T) {
	stub := &stubAnalyzer{lang: "python", fn: func(context.Context, string) (diagnostic.Result, error) {
		panic("boom")
	}}
	o := newOrchestrator(Options{}, stub)

	_, err := o.Analyze(context.Background(), Request{SourceCode: "x", Language: "python"})
	assert.ErrorIs(t, err, sandbox.ErrExecutionInfra)
	assert.NotContains(t, err.Error(), "goroutine")
}

func TestAnalyzeBoundsInFlight(t *testing.T) {
	var running, peak atomic.Int32
	stub := &stubAnalyzer{lang: "python", fn: func(context.Context, string) (diagnostic.Result, error) {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return diagnostic.Success(""), nil
	}}
	o := newOrchestrator(Options{MaxInFlight: 2}, stub)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Analyze(context.Background(), Request{SourceCode: "x", Language: "python"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, int32(10), stub.calls.Load())
}

func TestAnalyzeCancelledWhileWaiting(t *testing.T) {
	release := make(chan struct{})
	stub := &stubAnalyzer{lang: "python", fn: func(context.Context, string) (diagnostic.Result, error) {
		<-release
		return diagnostic.Success(""), nil
	}}
	o := newOrchestrator(Options{MaxInFlight: 1}, stub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.Analyze(context.Background(), Request{SourceCode: "x", Language: "python"})
	}()
	require.Eventually(t, func() bool { return stub.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := o.Analyze(ctx, Request{SourceCode: "x", Language: "python"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	<-done
}
