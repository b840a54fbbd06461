package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/osmigrate/internal/analyze"
	"github.com/roach88/osmigrate/internal/migrate"
	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/normalize"
	"github.com/roach88/osmigrate/internal/resolve"
	"github.com/roach88/osmigrate/internal/source"
	"github.com/roach88/osmigrate/internal/store"
	"github.com/roach88/osmigrate/internal/testutil"
)

// scenarioStart is the fixed clock origin of every scenario.
var scenarioStart = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

// Result holds everything a scenario produced.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool

	// Analysis is the dry-run result, nil unless the scenario set dry_run.
	Analysis *model.ImpactAnalysis

	// Reports holds one report per migration pass, in order.
	Reports []*model.MigrationReport

	// Counts are the target store row counts after the last pass.
	Counts store.Counts

	// SectorZones maps every sector name key to its zone name key, or ""
	// when unlinked, after the last pass.
	SectorZones map[string]string

	// Errors lists failed assertions.
	Errors []string
}

// AddError records a failed assertion.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// Report returns the report of a 1-based pass; zero selects the first.
func (r *Result) Report(pass int) *model.MigrationReport {
	if pass == 0 {
		pass = 1
	}
	if pass > len(r.Reports) {
		return nil
	}
	return r.Reports[pass-1]
}

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and run id.
type Harness struct {
	store  *store.Store
	source *source.Extractor
	clock  *testutil.DeterministicClock
	runIDs *testutil.FixedRunIDGenerator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory target store and a temporary
// SQLite source for isolation.
//
// Execution flow:
// 1. Seed the target store
// 2. Write the rows to the source view
// 3. Analyze the window (dry_run only)
// 4. Run the migration passes
// 5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()
	clock := testutil.NewDeterministicClock(scenarioStart, time.Second)

	st, err := store.Open(":memory:", store.WithClock(clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	dir, err := os.MkdirTemp("", "osmigrate-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create source dir: %w", err)
	}
	defer os.RemoveAll(dir)

	sourcePath := filepath.Join(dir, "source.db")
	if err := testutil.WriteSourceDB(sourcePath, testutil.DefaultView, scenario.Rows); err != nil {
		return nil, err
	}
	src, err := source.Open(ctx, source.Config{Driver: source.DriverSQLite, DSN: sourcePath})
	if err != nil {
		return nil, fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	h := &Harness{
		store:  st,
		source: src,
		clock:  clock,
		runIDs: testutil.NewFixedRunIDGenerator(scenario.RunID),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	if err := h.seed(ctx, scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed target: %w", err)
	}

	result := &Result{Pass: true}
	backfill := scenario.Backfill == nil || *scenario.Backfill

	if scenario.DryRun {
		a := analyze.New(src, st,
			analyze.WithSectorBackfill(backfill),
			analyze.WithLogger(h.logger),
			analyze.WithClock(clock.Now),
		)
		result.Analysis, err = a.Analyze(ctx, scenario.Window)
		if err != nil {
			return nil, fmt.Errorf("failed to analyze: %w", err)
		}
	}

	for i := range scenario.passes() {
		orch := migrate.New(src, st,
			migrate.WithLogger(h.logger),
			migrate.WithClock(clock.Now),
			migrate.WithRunIDGenerator(h.runIDs),
			migrate.WithResolverOptions(resolve.WithSectorBackfill(backfill)),
		)
		rep, err := orch.Run(ctx, scenario.Window)
		if err != nil {
			return nil, fmt.Errorf("pass %d: %w", i+1, err)
		}
		result.Reports = append(result.Reports, rep)
	}

	if result.Counts, err = st.Counts(ctx); err != nil {
		return nil, err
	}
	if result.SectorZones, err = h.sectorZones(ctx); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	return result, nil
}

// seed creates the scenario's pre-existing entities, keyed the way the
// resolver keys them.
func (h *Harness) seed(ctx context.Context, seed Seed) error {
	for _, name := range seed.Supervisors {
		_, err := h.store.CreateSupervisor(ctx, store.Person{
			Name:    normalize.Name(name),
			NameKey: resolve.SupervisorKey(name),
			Email:   "seed@" + resolve.DefaultEmailDomain,
		})
		if err != nil {
			return err
		}
	}

	zoneIDs := make(map[string]int64, len(seed.Zones))
	for _, name := range seed.Zones {
		key := resolve.ZoneKey(name)
		id, err := h.store.CreateZone(ctx, store.Zone{Name: normalize.Name(name), NameKey: key, Type: resolve.DefaultZoneType})
		if err != nil {
			return err
		}
		zoneIDs[key] = id
	}

	for _, sec := range seed.Sectors {
		var zoneID int64
		if sec.Zone != "" {
			id, ok := zoneIDs[resolve.ZoneKey(sec.Zone)]
			if !ok {
				return fmt.Errorf("sector %q: zone %q is not seeded", sec.Name, sec.Zone)
			}
			zoneID = id
		}
		_, err := h.store.CreateSector(ctx, store.Sector{
			Name:    normalize.Name(sec.Name),
			NameKey: resolve.SectorKey(sec.Name),
			ZoneID:  zoneID,
		})
		if err != nil {
			return err
		}
	}

	for _, m := range seed.Machines {
		plate := m.Plate
		if plate == "" {
			plate = fmt.Sprintf("SEED-%d", m.Number)
		}
		if _, err := h.store.CreateMachine(ctx, store.Machine{Number: m.Number, Plate: plate}); err != nil {
			return err
		}
	}

	for _, name := range seed.Operators {
		first, last := normalize.SplitFullName(name)
		if _, err := h.store.CreateOperator(ctx, store.Operator{FirstName: first, LastName: last}); err != nil {
			return err
		}
	}
	return nil
}

// sectorZones reads every sector's zone link.
func (h *Harness) sectorZones(ctx context.Context) (map[string]string, error) {
	rows, err := h.store.DB().QueryContext(ctx, `
		SELECT s.name_key, COALESCE(z.name_key, '')
		FROM sectors s LEFT JOIN zones z ON z.id = s.zone_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query sector zones: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var sector, zone string
		if err := rows.Scan(&sector, &zone); err != nil {
			return nil, fmt.Errorf("scan sector zone: %w", err)
		}
		out[sector] = zone
	}
	return out, rows.Err()
}
