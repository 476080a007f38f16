package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/itstheanurag/kodanaliz/internal/database"
	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/metrics"
	"github.com/itstheanurag/kodanaliz/internal/orchestrator"
	"github.com/itstheanurag/kodanaliz/internal/queue"
)

// Analyzer is the part of the orchestrator a worker needs.
type Analyzer interface {
	Analyze(ctx context.Context, req orchestrator.Request) (diagnostic.Result, error)
}

// Recorder persists outcome metadata for finished jobs.
type Recorder interface {
	RecordAnalysis(ctx context.Context, rec database.AnalysisRecord) error
}

type Worker struct {
	id       int
	analyzer Analyzer
	manager  *queue.Manager
	recorder Recorder
	logger   *zerolog.Logger
}

// NewWorker creates a worker. recorder may be nil.
func NewWorker(id int, analyzer Analyzer, manager *queue.Manager, recorder Recorder, logger *zerolog.Logger) *Worker {
	return &Worker{
		id:       id,
		analyzer: analyzer,
		manager:  manager,
		recorder: recorder,
		logger:   logger,
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.logger.Info().Int("worker_id", w.id).Msg("worker started")
	for {
		select {
		case job := <-w.manager.NextJob():
			w.manager.UpdateQueueMetric()
			metrics.ActiveWorkers.Inc()
			w.processJob(job)
			metrics.ActiveWorkers.Dec()
		case <-ctx.Done():
			w.logger.Info().Int("worker_id", w.id).Msg("worker stopping")
			return
		}
	}
}

func (w *Worker) processJob(job *queue.Job) {
	log := w.logger.With().Int("worker_id", w.id).Str("job_id", job.ID).Str("language", job.Request.Language).Logger()

	if err := job.Ctx.Err(); err != nil {
		log.Debug().Err(err).Msg("job abandoned before start")
		job.Err <- err
		return
	}

	log.Debug().Dur("queued", time.Since(job.Submitted)).Msg("processing job")
	start := time.Now()
	result, err := w.analyzer.Analyze(job.Ctx, job.Request)
	duration := time.Since(start)

	w.record(job, result, err, duration)

	if err != nil {
		job.Err <- err
		return
	}
	job.Result <- result
}

func (w *Worker) record(job *queue.Job, res diagnostic.Result, err error, duration time.Duration) {
	if w.recorder == nil {
		return
	}
	rec := database.AnalysisRecord{
		JobID:      job.ID,
		Language:   job.Request.Language,
		Locale:     job.Request.Locale,
		Status:     statusOf(res, err),
		Kinds:      res.Kinds(),
		Count:      len(res.Diagnostics),
		SourceSize: len(job.Request.SourceCode),
		Duration:   duration,
	}
	// the job context may already be cancelled; the audit row is still wanted
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.recorder.RecordAnalysis(ctx, rec); err != nil {
		metrics.AuditFailures.Inc()
		w.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to record analysis")
	}
}

func statusOf(res diagnostic.Result, err error) string {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidInput):
		return "invalid"
	case err != nil:
		return "error"
	default:
		return string(res.Status)
	}
}
