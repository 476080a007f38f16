package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/itstheanurag/kodanaliz/internal/diagnostic"
)

// AnalysisRecord is the outcome metadata of one analysis. Source code is
// never stored.
type AnalysisRecord struct {
	JobID      string
	Language   string
	Locale     string
	Status     string
	Kinds      []diagnostic.Kind
	Count      int
	SourceSize int
	Duration   time.Duration
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS analysis_runs (
	job_id           TEXT PRIMARY KEY,
	language         TEXT NOT NULL,
	locale           TEXT NOT NULL,
	status           TEXT NOT NULL,
	diagnostic_kinds TEXT[] NOT NULL DEFAULT '{}',
	diagnostic_count INTEGER NOT NULL,
	source_bytes     INTEGER NOT NULL,
	duration_ms      BIGINT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertRun = `
INSERT INTO analysis_runs
	(job_id, language, locale, status, diagnostic_kinds, diagnostic_count, source_bytes, duration_ms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (job_id) DO NOTHING`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AuditLog writes AnalysisRecords to the analysis_runs table.
type AuditLog struct {
	db execer
}

func NewAuditLog(db execer) *AuditLog {
	return &AuditLog{db: db}
}

// Migrate creates the table if it does not exist.
func (a *AuditLog) Migrate(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, auditSchema); err != nil {
		return fmt.Errorf("create analysis_runs: %w", err)
	}
	return nil
}

func (a *AuditLog) RecordAnalysis(ctx context.Context, rec AnalysisRecord) error {
	kinds := make([]string, len(rec.Kinds))
	for i, k := range rec.Kinds {
		kinds[i] = string(k)
	}
	_, err := a.db.Exec(ctx, insertRun,
		rec.JobID,
		rec.Language,
		rec.Locale,
		rec.Status,
		kinds,
		rec.Count,
		rec.SourceSize,
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert analysis run %s: %w", rec.JobID, err)
	}
	return nil
}
