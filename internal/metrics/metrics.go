package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kodanaliz_analyses_total",
			Help: "Total number of analyses by final status",
		},
		[]string{"language", "status"}, // status: success, failed, invalid, error
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kodanaliz_phase_duration_ms",
			Help:    "Phase duration in milliseconds",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"language", "phase"}, // phase: check, run, lint, total
	)

	SandboxTimeouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kodanaliz_sandbox_timeouts_total",
			Help: "Sandboxed processes stopped by a wall-clock or CPU limit",
		},
		[]string{"language", "phase"},
	)

	LintSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kodanaliz_lint_skipped_total",
			Help: "Static-analysis phases skipped because the backend was unavailable",
		},
		[]string{"language", "reason"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kodanaliz_queue_depth",
			Help: "Current number of jobs in the queue",
		},
	)

	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kodanaliz_active_workers",
			Help: "Number of workers currently processing jobs",
		},
	)

	WorkspacesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "kodanaliz_workspaces_active",
			Help: "Workspaces currently present on disk",
		},
	)

	ContainerCreationTime = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kodanaliz_container_creation_ms",
			Help:    "Time to create and start a sandbox container",
			Buckets: []float64{50, 100, 200, 500, 1000, 2000},
		},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kodanaliz_rate_limit_hits_total",
			Help: "Total number of requests rejected by rate limiter",
		},
	)

	AuditFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kodanaliz_audit_failures_total",
			Help: "Analysis audit records that could not be written",
		},
	)
)
