package queue

import (
	"context"
	"errors"
	"time"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
	"github.com/itstheanurag/kodanaliz/internal/metrics"
	"github.com/itstheanurag/kodanaliz/internal/orchestrator"
)

// ErrQueueFull is returned by Submit when no slot is free.
var ErrQueueFull = errors.New("analysis queue is full")

type Job struct {
	ID        string
	Request   orchestrator.Request
	Result    chan diagnostic.Result
	Err       chan error
	Ctx       context.Context
	Submitted time.Time
}

// NewJob creates a job with buffered reply channels so a worker never
// blocks on a caller that has gone away.
func NewJob(ctx context.Context, id string, req orchestrator.Request) *Job {
	return &Job{
		ID:        id,
		Request:   req,
		Result:    make(chan diagnostic.Result, 1),
		Err:       make(chan error, 1),
		Ctx:       ctx,
		Submitted: time.Now(),
	}
}

type Manager struct {
	jobQueue chan *Job
}

func NewManager(capacity int) *Manager {
	return &Manager{
		jobQueue: make(chan *Job, capacity),
	}
}

// Submit enqueues job without blocking.
func (m *Manager) Submit(job *Job) error {
	select {
	case m.jobQueue <- job:
		metrics.QueueDepth.Set(float64(len(m.jobQueue)))
		return nil
	default:
		return ErrQueueFull
	}
}

func (m *Manager) NextJob() <-chan *Job {
	return m.jobQueue
}

func (m *Manager) Len() int {
	return len(m.jobQueue)
}

func (m *Manager) UpdateQueueMetric() {
	metrics.QueueDepth.Set(float64(len(m.jobQueue)))
}
