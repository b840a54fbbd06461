package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/osmigrate/internal/model"
)

// RunRecord is one entry of the migration run ledger.
type RunRecord struct {
	RunID             string       `json:"run_id"`
	Window            model.Window `json:"window"`
	StartedAt         time.Time    `json:"started_at"`
	FinishedAt        time.Time    `json:"finished_at"`
	SourceDigest      string       `json:"source_digest"`
	Aggregates        int          `json:"aggregates"`
	AggregatesCreated int          `json:"aggregates_created"`
	AggregatesSkipped int          `json:"aggregates_skipped"`
	LineItemsCreated  int          `json:"line_items_created"`
	Errors            int          `json:"errors"`
	Interrupted       bool         `json:"interrupted"`
	ReportPath        string       `json:"report_path,omitempty"`
}

// RunRecordFromReport builds the ledger entry of a finalized report.
func RunRecordFromReport(r *model.MigrationReport, reportPath string) RunRecord {
	return RunRecord{
		RunID:             r.RunID,
		Window:            r.Window,
		StartedAt:         r.StartedAt,
		FinishedAt:        r.FinishedAt,
		SourceDigest:      r.SourceDigest,
		Aggregates:        r.Aggregates,
		AggregatesCreated: r.AggregatesCreated,
		AggregatesSkipped: r.AggregatesSkipped,
		LineItemsCreated:  r.LineItemsCreated,
		Errors:            r.ErrorCount,
		Interrupted:       r.Interrupted,
		ReportPath:        reportPath,
	}
}

// RecordRun writes a run to the ledger. Recording the same run id twice
// replaces the earlier entry, so a report path can be attached afterwards.
func (s *Store) RecordRun(ctx context.Context, r RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO migration_runs
		(run_id, year_start, year_end, started_at, finished_at, source_digest,
		 aggregates, aggregates_created, aggregates_skipped, line_items_created,
		 errors, interrupted, report_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			finished_at = excluded.finished_at,
			aggregates = excluded.aggregates,
			aggregates_created = excluded.aggregates_created,
			aggregates_skipped = excluded.aggregates_skipped,
			line_items_created = excluded.line_items_created,
			errors = excluded.errors,
			interrupted = excluded.interrupted,
			report_path = excluded.report_path
	`,
		r.RunID,
		r.Window.YearStart,
		r.Window.YearEnd,
		r.StartedAt.UTC().Format(time.RFC3339),
		r.FinishedAt.UTC().Format(time.RFC3339),
		r.SourceDigest,
		r.Aggregates,
		r.AggregatesCreated,
		r.AggregatesSkipped,
		r.LineItemsCreated,
		r.Errors,
		r.Interrupted,
		r.ReportPath,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT run_id, year_start, year_end, started_at, finished_at, source_digest,
		       aggregates, aggregates_created, aggregates_skipped, line_items_created,
		       errors, interrupted, report_path
		FROM migration_runs
		ORDER BY started_at DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunRecord{}
	for rows.Next() {
		var (
			r                 RunRecord
			started, finished string
		)
		err := rows.Scan(
			&r.RunID, &r.Window.YearStart, &r.Window.YearEnd, &started, &finished, &r.SourceDigest,
			&r.Aggregates, &r.AggregatesCreated, &r.AggregatesSkipped, &r.LineItemsCreated,
			&r.Errors, &r.Interrupted, &r.ReportPath,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("parse run started_at: %w", err)
		}
		if r.FinishedAt, err = time.Parse(time.RFC3339, finished); err != nil {
			return nil, fmt.Errorf("parse run finished_at: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}
