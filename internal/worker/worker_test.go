package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/itstheanurag/kodanaliz/internal/database"
	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/orchestrator"
	"github.com/itstheanurag/kodanaliz/internal/queue"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type funcAnalyzer func(ctx context.Context, req orchestrator.Request) (diagnostic.Result, error)

func (f funcAnalyzer) Analyze(ctx context.Context, req orchestrator.Request) (diagnostic.Result, error) {
	return f(ctx, req)
}

type memRecorder struct {
	mu   sync.Mutex
	recs []database.AnalysisRecord
	err  error
}

func (m *memRecorder) RecordAnalysis(_ context.Context, rec database.AnalysisRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return m.err
}

func (m *memRecorder) records() []database.AnalysisRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]database.AnalysisRecord(nil), m.recs...)
}

func startWorkers(t *testing.T, n int, a Analyzer, q *queue.Manager, rec Recorder) {
	t.Helper()
	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		w := NewWorker(i, a, q, rec, &logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Start(ctx)
		}()
	}
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
}

func TestWorkersProcessJobs(t *testing.T) {
	q := queue.NewManager(10)
	rec := &memRecorder{}
	a := funcAnalyzer(func(_ context.Context, req orchestrator.Request) (diagnostic.Result, error) {
		if req.SourceCode == "bad" {
			return diagnostic.Failed(diagnostic.Diagnostic{Kind: diagnostic.SyntaxError, Line: 1, RawMessage: "x"}), nil
		}
		return diagnostic.Success("out:" + req.SourceCode), nil
	})
	startWorkers(t, 3, a, q, rec)

	ok := queue.NewJob(context.Background(), "ok", orchestrator.Request{SourceCode: "good", Language: "python", Locale: "en"})
	bad := queue.NewJob(context.Background(), "bad", orchestrator.Request{SourceCode: "bad", Language: "python"})
	require.NoError(t, q.Submit(ok))
	require.NoError(t, q.Submit(bad))

	assert.Equal(t, diagnostic.Success("out:good"), <-ok.Result)
	res := <-bad.Result
	assert.Equal(t, []diagnostic.Kind{diagnostic.SyntaxError}, res.Kinds())

	require.Eventually(t, func() bool { return len(rec.records()) == 2 }, time.Second, 5*time.Millisecond)
	byID := map[string]database.AnalysisRecord{}
	for _, r := range rec.records() {
		byID[r.JobID] = r
	}
	assert.Equal(t, "success", byID["ok"].Status)
	assert.Equal(t, "en", byID["ok"].Locale)
	assert.Equal(t, 4, byID["ok"].SourceSize)
	assert.Equal(t, "failed", byID["bad"].Status)
	assert.Equal(t, 1, byID["bad"].Count)
}

func TestWorkerReportsErrors(t *testing.T) {
	q := queue.NewManager(10)
	rec := &memRecorder{err: errors.New("db down")}
	a := funcAnalyzer(func(context.Context, orchestrator.Request) (diagnostic.Result, error) {
		return diagnostic.Result{}, orchestrator.ErrInvalidInput
	})
	startWorkers(t, 1, a, q, rec)

	job := queue.NewJob(context.Background(), "j", orchestrator.Request{})
	require.NoError(t, q.Submit(job))
	assert.ErrorIs(t, <-job.Err, orchestrator.ErrInvalidInput)

	require.Eventually(t, func() bool { return len(rec.records()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "invalid", rec.records()[0].Status)
}

func TestWorkerSkipsAbandonedJobs(t *testing.T) {
	q := queue.NewManager(10)
	called := false
	a := funcAnalyzer(func(context.Context, orchestrator.Request) (diagnostic.Result, error) {
		called = true
		return diagnostic.Success(""), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	job := queue.NewJob(ctx, "gone", orchestrator.Request{SourceCode: "x", Language: "python"})
	require.NoError(t, q.Submit(job))
	startWorkers(t, 1, a, q, nil)

	assert.ErrorIs(t, <-job.Err, context.Canceled)
	assert.False(t, called)
}
