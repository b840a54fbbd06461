package migrate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/store"
	"github.com/roach88/osmigrate/internal/testutil"
)

var (
	testStart  = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	testWindow = model.Window{YearStart: 2024, YearEnd: 2025}
)

func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "target.db"),
		store.WithClock(func() time.Time { return testStart }))
	if err != nil {
		t.Fatalf("store.Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestOrchestrator(src Source, target Target, opts ...Option) *Orchestrator {
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(testutil.NewDeterministicClock(testStart, time.Second).Now),
		WithRunIDGenerator(testutil.NewFixedRunIDGenerator("run-test")),
	}
	return New(src, target, append(base, opts...)...)
}

// sliceSource serves fixed rows.
type sliceSource struct {
	rows []model.SourceRow
	err  error
}

func (s sliceSource) Extract(context.Context, model.Window) ([]model.SourceRow, error) {
	return s.rows, s.err
}

// cancelingSource cancels the run while the query is in flight.
type cancelingSource struct {
	cancel context.CancelFunc
}

func (s cancelingSource) Extract(ctx context.Context, _ model.Window) ([]model.SourceRow, error) {
	s.cancel()
	return nil, fmt.Errorf("query v_history: %w", ctx.Err())
}

func rowsSource(rows ...testutil.Row) sliceSource {
	return sliceSource{rows: testutil.SourceRows(rows...)}
}

// faultyTarget wraps a real store and fails selected operations.
type faultyTarget struct {
	*store.Store

	failSectorKey string
	zoneErr       error
	afterOrder    func()
}

func (f *faultyTarget) CreateSector(ctx context.Context, s store.Sector) (int64, error) {
	if f.failSectorKey != "" && s.NameKey == f.failSectorKey {
		return 0, errors.New("sector insert rejected")
	}
	return f.Store.CreateSector(ctx, s)
}

func (f *faultyTarget) FindZone(ctx context.Context, key string) (int64, bool, error) {
	if f.zoneErr != nil {
		return 0, false, f.zoneErr
	}
	return f.Store.FindZone(ctx, key)
}

func (f *faultyTarget) CreateServiceOrder(ctx context.Context, o store.ServiceOrder) (int64, error) {
	id, err := f.Store.CreateServiceOrder(ctx, o)
	if err == nil && f.afterOrder != nil {
		f.afterOrder()
	}
	return id, err
}

// orderRow builds a complete source row for an order.
func orderRow(orderID, sector string, pabellon, machine int, operator string) testutil.Row {
	return testutil.Row{
		OrderID:           orderID,
		DateStart:         "2024-03-05",
		DateEnd:           "2024-03-06",
		Supervisor:        "Juan Pérez",
		Zone:              "Zona Norte",
		Sector:            sector,
		Comuna:            "Rancagua",
		SectorArea:        "1250,5",
		SectorPabellones:  "12",
		PabellonesCleaned: "10",
		Ticket:            "T-" + orderID,
		Status:            "Completado",
		Pabellon:          fmt.Sprint(pabellon),
		MachineID:         fmt.Sprint(900 + machine),
		MachineNumber:     fmt.Sprint(machine),
		Operator:          operator,
		OdometerStart:     "1000",
		OdometerEnd:       "1012.5",
		FuelLiters:        "40,2",
	}
}
