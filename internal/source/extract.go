package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/osmigrate/internal/model"
)

// ErrUnavailable marks failures to reach the external source.
var ErrUnavailable = errors.New("source unavailable")

// Extractor issues range queries against the history view.
type Extractor struct {
	db    *sqlx.DB
	view  string
	query string
}

// Open connects to the source and checks the connection. Connection
// failures wrap ErrUnavailable. There is no retry.
func Open(ctx context.Context, cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open source: %w: %w", ErrUnavailable, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping source: %w: %w", ErrUnavailable, err)
	}

	return &Extractor{
		db:    db,
		view:  cfg.view(),
		query: db.Rebind(rangeQuery(cfg.view())),
	}, nil
}

// Close releases the source connection pool.
func (e *Extractor) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

// View returns the name of the view being read.
func (e *Extractor) View() string {
	return e.view
}

// Extract returns every row whose start date falls in the closed year
// interval, ordered by start date descending, then order id, pabellon
// number and machine id.
func (e *Extractor) Extract(ctx context.Context, w model.Window) ([]model.SourceRow, error) {
	if w.YearStart > w.YearEnd {
		return nil, fmt.Errorf("extract: year_start %d after year_end %d", w.YearStart, w.YearEnd)
	}
	from, until := Bounds(w)

	rows := []model.SourceRow{}
	if err := e.db.SelectContext(ctx, &rows, e.query, from, until); err != nil {
		if isConnError(err) {
			return nil, fmt.Errorf("query %s: %w: %w", e.view, ErrUnavailable, err)
		}
		return nil, fmt.Errorf("query %s: %w", e.view, err)
	}
	return rows, nil
}

// Bounds returns the half-open date range [from, until) covering the
// window, as ISO dates.
func Bounds(w model.Window) (from, until string) {
	return fmt.Sprintf("%04d-01-01", w.YearStart), fmt.Sprintf("%04d-01-01", w.YearEnd+1)
}

func rangeQuery(view string) string {
	return fmt.Sprintf(`SELECT %s FROM %s WHERE date_start >= ? AND date_start < ? ORDER BY date_start DESC, order_id, pabellon_number, machine_id`,
		strings.Join(model.SourceColumns, ", "), view)
}

// isConnError reports driver errors that mean the connection itself is gone.
func isConnError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "bad connection") ||
		strings.Contains(msg, "database is closed") ||
		strings.Contains(msg, "broken pipe")
}
