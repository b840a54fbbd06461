package model

import "time"

// EntityStats counts resolver outcomes for one entity kind during a run.
type EntityStats struct {
	Matched    int `json:"matched"`
	Created    int `json:"created"`
	CacheHits  int `json:"cache_hits"`
	Backfilled int `json:"backfilled,omitempty"`
}

// ReportError is one itemized, non-fatal failure recorded during a run.
type ReportError struct {
	OrderID string `json:"order_id"`
	// Row is the source row position for row and line item failures, -1 otherwise.
	Row     int    `json:"row"`
	Step    string `json:"step"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MigrationReport summarizes one mutating run. It is built by the
// orchestrator and never changed once Finalize has been called.
type MigrationReport struct {
	RunID             string                     `json:"run_id"`
	Window            Window                     `json:"window"`
	StartedAt         time.Time                  `json:"started_at"`
	FinishedAt        time.Time                  `json:"finished_at"`
	SourceDigest      string                     `json:"source_digest"`
	SourceRows        int                        `json:"source_rows"`
	Aggregates        int                        `json:"aggregates"`
	AggregatesCreated int                        `json:"aggregates_created"`
	AggregatesSkipped int                        `json:"aggregates_skipped"`
	LineItemsCreated  int                        `json:"line_items_created"`
	MalformedRows     int                        `json:"malformed_rows"`
	ErrorCount        int                        `json:"errors"`
	Interrupted       bool                       `json:"interrupted"`
	Entities          map[EntityKind]EntityStats `json:"entities"`
	Errors            []ReportError              `json:"error_list"`
}

// NewMigrationReport returns an empty report for the given run.
func NewMigrationReport(runID string, window Window, startedAt time.Time) *MigrationReport {
	return &MigrationReport{
		RunID:     runID,
		Window:    window,
		StartedAt: startedAt,
		Entities:  make(map[EntityKind]EntityStats, len(EntityKinds)),
		Errors:    []ReportError{},
	}
}

// AddError appends an itemized failure.
func (r *MigrationReport) AddError(e ReportError) {
	r.Errors = append(r.Errors, e)
}

// ErrorsFor returns the failures recorded against orderID.
func (r *MigrationReport) ErrorsFor(orderID string) []ReportError {
	var out []ReportError
	for _, e := range r.Errors {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}

// Finalize stamps the finish time and the error total.
func (r *MigrationReport) Finalize(finishedAt time.Time) {
	r.FinishedAt = finishedAt
	r.ErrorCount = len(r.Errors)
}
