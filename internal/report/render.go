package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/osmigrate/internal/model"
)

// RenderMigration writes the operator summary of a migration run.
func RenderMigration(w io.Writer, r *model.MigrationReport) error {
	p := &printer{w: w}

	status := "completed"
	if r.Interrupted {
		status = "interrupted"
	}
	p.printf("Migration Run: %s\n", r.RunID)
	p.printf("Window: %s\n", formatWindow(r.Window))
	p.printf("Status: %s\n", status)
	p.printf("Duration: %s\n", r.FinishedAt.Sub(r.StartedAt))
	p.printf("Source: %d rows, %d orders (digest %s)\n", r.SourceRows, r.Aggregates, shortDigest(r.SourceDigest))
	p.printf("\n")

	p.printf("Orders:\n")
	p.printf("  Created:   %d\n", r.AggregatesCreated)
	p.printf("  Skipped:   %d\n", r.AggregatesSkipped)
	p.printf("  Lines:     %d\n", r.LineItemsCreated)
	p.printf("  Malformed: %d\n", r.MalformedRows)
	p.printf("  Errors:    %d\n", r.ErrorCount)
	p.printf("\n")

	p.printf("Entities:\n")
	p.printf("  %-10s %8s %8s %8s %10s\n", "KIND", "MATCHED", "CREATED", "CACHED", "BACKFILLED")
	for _, k := range model.EntityKinds {
		s := r.Entities[k]
		p.printf("  %-10s %8d %8d %8d %10d\n", k, s.Matched, s.Created, s.CacheHits, s.Backfilled)
	}

	if len(r.Errors) > 0 {
		p.printf("\n")
		p.printf("Errors:\n")
		for _, e := range r.Errors {
			p.printf("  %s %s %s: %s\n", errorLocation(e), e.Step, e.Code, e.Message)
		}
	}
	return p.err
}

// RenderAnalysis writes the operator summary of a dry run.
func RenderAnalysis(w io.Writer, a *model.ImpactAnalysis) error {
	p := &printer{w: w}

	p.printf("Dry Run: %s\n", formatWindow(a.Window))
	p.printf("Source: %d rows, %d orders (digest %s)\n", a.SourceRows, a.Aggregates, shortDigest(a.SourceDigest))
	p.printf("Already migrated: %d\n", a.AlreadyMigrated)
	p.printf("Malformed rows: %d\n", a.MalformedRows)
	p.printf("\n")

	p.printf("Keys:\n")
	p.printf("  %-10s %8s %8s\n", "KIND", "EXISTING", "NEW")
	for _, k := range a.Kinds {
		p.printf("  %-10s %8d %8d\n", k.Kind, len(k.Existing), len(k.New))
	}
	p.printf("  %-10s %8d %8d\n", "total", a.TotalExisting, a.TotalNew)
	p.printf("\n")

	p.printf("Existing: %.1f%%  New: %.1f%%\n", a.ExistingPercent, a.NewPercent)
	p.printf("Recommendation: %s\n", a.Recommendation)

	if len(a.Notes) > 0 {
		p.printf("\n")
		p.printf("Notes:\n")
		for _, n := range a.Notes {
			p.printf("  - %s\n", n)
		}
	}

	if a.TotalNew > 0 {
		p.printf("\n")
		p.printf("New keys:\n")
		for _, k := range a.Kinds {
			if len(k.New) == 0 {
				continue
			}
			p.printf("  %s: %s\n", k.Kind, strings.Join(k.New, ", "))
		}
	}
	return p.err
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func formatWindow(w model.Window) string {
	if w.YearStart == w.YearEnd {
		return fmt.Sprintf("%d", w.YearStart)
	}
	return fmt.Sprintf("%d-%d", w.YearStart, w.YearEnd)
}

func shortDigest(d string) string {
	if d == "" {
		return "none"
	}
	if len(d) > 12 {
		return d[:12]
	}
	return d
}

func errorLocation(e model.ReportError) string {
	switch {
	case e.OrderID != "" && e.Row >= 0:
		return fmt.Sprintf("[%s row %d]", e.OrderID, e.Row)
	case e.OrderID != "":
		return fmt.Sprintf("[%s]", e.OrderID)
	default:
		return fmt.Sprintf("[row %d]", e.Row)
	}
}
