package migrate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/resolve"
	"github.com/roach88/osmigrate/internal/source"
	"github.com/roach88/osmigrate/internal/store"
	"github.com/roach88/osmigrate/internal/testutil"
)

func TestRun_EndToEnd(t *testing.T) {
	s := createTestStore(t)
	src := rowsSource(
		orderRow("OS-100", "Las Palmas", 1, 7, "Ana Rodríguez"),
		orderRow("OS-100", "Las Palmas", 2, 8, "Pedro Soto"),
		orderRow("OS-100", "Las Palmas", 3, 9, "Luis Díaz"),
		orderRow("OS-101", "Las Palmas", 1, 7, "Ana Rodríguez"),
	)

	rep, err := newTestOrchestrator(src, s).Run(context.Background(), testWindow)
	require.NoError(t, err)

	assert.Equal(t, "run-test", rep.RunID)
	assert.Equal(t, 4, rep.SourceRows)
	assert.Equal(t, 2, rep.Aggregates)
	assert.Equal(t, 2, rep.AggregatesCreated)
	assert.Equal(t, 4, rep.LineItemsCreated)
	assert.Equal(t, 0, rep.ErrorCount)
	assert.Empty(t, rep.Errors)
	assert.False(t, rep.Interrupted)
	assert.Equal(t, testStart, rep.StartedAt)
	assert.True(t, rep.FinishedAt.After(rep.StartedAt))

	c, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.Counts{
		People: 1, Zones: 1, Sectors: 1, Machines: 3, Operators: 3,
		ServiceOrders: 2, ServiceOrderLines: 4,
	}, c)

	assert.Equal(t, model.EntityStats{Created: 1, CacheHits: 1}, rep.Entities[model.KindSupervisor])
	assert.Equal(t, model.EntityStats{Created: 3, CacheHits: 1}, rep.Entities[model.KindMachine])
}

func TestRun_ParentFieldsFromFirstRow(t *testing.T) {
	s := createTestStore(t)
	first := orderRow("OS-100", "Las Palmas", 1, 7, "Ana Rodríguez")
	first.Status = "pendiente"
	second := orderRow("OS-100", "Las Palmas", 2, 8, "Pedro Soto")
	second.Status = "completado"

	_, err := newTestOrchestrator(rowsSource(first, second), s).Run(context.Background(), testWindow)
	require.NoError(t, err)

	var status, area string
	require.NoError(t, s.DB().QueryRow("SELECT status, area FROM service_orders WHERE source_order_id = 'OS-100'").Scan(&status, &area))
	assert.Equal(t, string(model.StatusPending), status)
	assert.Equal(t, "1250.5", area)

	id, found, err := s.FindServiceOrder(context.Background(), "OS-100")
	require.NoError(t, err)
	require.True(t, found)
	lines, err := s.ServiceOrderLines(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, 0, lines[0].SourceRow)
	assert.Equal(t, "40.2", lines[0].FuelLiters.String())
}

func TestRun_ContinueOnError(t *testing.T) {
	s := createTestStore(t)
	target := &faultyTarget{Store: s, failSectorKey: "el olivo"}
	src := rowsSource(
		orderRow("OS-1", "Las Palmas", 1, 7, "Ana Rodríguez"),
		orderRow("OS-2", "El Olivo", 1, 7, "Ana Rodríguez"),
		orderRow("OS-3", "Los Aromos", 1, 7, "Ana Rodríguez"),
	)

	rep, err := newTestOrchestrator(src, target).Run(context.Background(), testWindow)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.AggregatesCreated)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, 1, rep.ErrorCount)
	e := rep.Errors[0]
	assert.Equal(t, "OS-2", e.OrderID)
	assert.Equal(t, StepSector, e.Step)
	assert.Equal(t, string(ErrCodeResolutionFailed), e.Code)
	assert.Equal(t, -1, e.Row)
	assert.Contains(t, e.Message, "sector insert rejected")

	_, found, err := s.FindServiceOrder(context.Background(), "OS-3")
	require.NoError(t, err)
	assert.True(t, found)
	_, found, err = s.FindServiceOrder(context.Background(), "OS-2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRun_LineFailureDoesNotBlockSiblings(t *testing.T) {
	s := createTestStore(t)
	broken := orderRow("OS-1", "Las Palmas", 2, 0, "Pedro Soto")
	broken.MachineNumber = ""
	src := rowsSource(
		orderRow("OS-1", "Las Palmas", 1, 7, "Ana Rodríguez"),
		broken,
		orderRow("OS-1", "Las Palmas", 3, 8, "Luis Díaz"),
	)

	rep, err := newTestOrchestrator(src, s).Run(context.Background(), testWindow)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.AggregatesCreated)
	assert.Equal(t, 2, rep.LineItemsCreated)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, StepMachine, rep.Errors[0].Step)
	assert.Equal(t, 1, rep.Errors[0].Row)
	assert.Contains(t, rep.Errors[0].Message, resolve.ErrEmptyKey.Error())
}

func TestRun_MalformedRowsItemized(t *testing.T) {
	s := createTestStore(t)
	noID := orderRow("", "Las Palmas", 1, 7, "Ana Rodríguez")
	badDate := orderRow("OS-9", "Las Palmas", 1, 7, "Ana Rodríguez")
	badDate.DateStart = "yesterday"
	src := rowsSource(noID, orderRow("OS-1", "Las Palmas", 1, 7, "Ana Rodríguez"), badDate)

	rep, err := newTestOrchestrator(src, s).Run(context.Background(), testWindow)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.MalformedRows)
	assert.Equal(t, 1, rep.AggregatesCreated)
	require.Len(t, rep.Errors, 2)
	assert.Equal(t, model.ReportError{Row: 0, Step: StepGroup, Code: string(ErrCodeMalformedRow), Message: "missing order id"}, rep.Errors[0])
	assert.Equal(t, "OS-9", rep.Errors[1].OrderID)
	assert.Equal(t, 2, rep.Errors[1].Row)
}

func TestRun_RerunSkipsMigratedOrders(t *testing.T) {
	s := createTestStore(t)
	src := rowsSource(
		orderRow("OS-100", "Las Palmas", 1, 7, "Ana Rodríguez"),
		orderRow("OS-101", "Las Palmas", 1, 7, "Ana Rodríguez"),
	)

	_, err := newTestOrchestrator(src, s).Run(context.Background(), testWindow)
	require.NoError(t, err)
	before, err := s.Counts(context.Background())
	require.NoError(t, err)

	rep, err := newTestOrchestrator(src, s).Run(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.AggregatesCreated)
	assert.Equal(t, 2, rep.AggregatesSkipped)
	assert.Zero(t, rep.ErrorCount)

	after, err := s.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRun_SameWindowSameDigest(t *testing.T) {
	src := rowsSource(
		orderRow("OS-100", "Las Palmas", 1, 7, "Ana Rodríguez"),
		orderRow("OS-101", "Las Palmas", 1, 7, "Ana Rodríguez"),
	)
	a, err := newTestOrchestrator(src, createTestStore(t)).Run(context.Background(), testWindow)
	require.NoError(t, err)
	b, err := newTestOrchestrator(src, createTestStore(t)).Run(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Equal(t, a.SourceDigest, b.SourceDigest)
	assert.Len(t, a.SourceDigest, 64)
}

func TestRun_CancelFinishesInFlightAggregate(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	target := &faultyTarget{Store: s, afterOrder: cancel}
	src := rowsSource(
		orderRow("OS-1", "Las Palmas", 1, 7, "Ana Rodríguez"),
		orderRow("OS-1", "Las Palmas", 2, 8, "Pedro Soto"),
		orderRow("OS-2", "Las Palmas", 1, 7, "Ana Rodríguez"),
	)

	rep, err := newTestOrchestrator(src, target).Run(ctx, testWindow)
	require.NoError(t, err)

	assert.True(t, rep.Interrupted)
	assert.Equal(t, 1, rep.AggregatesCreated)
	assert.Equal(t, 2, rep.LineItemsCreated, "the in-flight order keeps all its lines")
	_, found, err := s.FindServiceOrder(context.Background(), "OS-2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRun_SourceUnavailable(t *testing.T) {
	s := createTestStore(t)
	src := sliceSource{err: fmt.Errorf("query v_history: %w: %w", source.ErrUnavailable, errors.New("connection refused"))}

	rep, err := newTestOrchestrator(src, s).Run(context.Background(), testWindow)
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.True(t, IsSourceUnavailable(err))
	assert.True(t, IsFatal(err))
}

func TestRun_ExtractRejected(t *testing.T) {
	s := createTestStore(t)
	src := sliceSource{err: errors.New("invalid window: year_start 2025 after year_end 2024")}

	rep, err := newTestOrchestrator(src, s).Run(context.Background(), testWindow)
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.True(t, IsExtractFailed(err))
	assert.False(t, IsSourceUnavailable(err))
	assert.False(t, IsTargetUnavailable(err))
	assert.True(t, IsFatal(err))
}

func TestRun_CanceledBeforeStart(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src := rowsSource(orderRow("OS-1", "Las Palmas", 1, 7, "Ana Rodríguez"))

	rep, err := newTestOrchestrator(src, s).Run(ctx, testWindow)
	require.NoError(t, err)
	require.NotNil(t, rep)

	assert.True(t, rep.Interrupted)
	assert.Equal(t, "run-test", rep.RunID)
	assert.Zero(t, rep.AggregatesCreated)
	assert.False(t, rep.FinishedAt.IsZero())
	assert.Len(t, rep.Entities, len(model.EntityKinds))
	_, found, err := s.FindServiceOrder(context.Background(), "OS-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRun_CanceledDuringExtract(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	src := cancelingSource{cancel: cancel}

	rep, err := newTestOrchestrator(src, s).Run(ctx, testWindow)
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.True(t, rep.Interrupted)
	assert.Zero(t, rep.SourceRows)
	assert.Empty(t, rep.Errors)
}

func TestRun_TargetUnreachableBeforeStart(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.Close())

	rep, err := newTestOrchestrator(rowsSource(), s).Run(context.Background(), testWindow)
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.True(t, IsTargetUnavailable(err))
}

func TestRun_TargetLostMidRun(t *testing.T) {
	s := createTestStore(t)
	target := &faultyTarget{Store: s, zoneErr: store.ErrUnavailable}
	src := rowsSource(orderRow("OS-1", "Las Palmas", 1, 7, "Ana Rodríguez"))

	rep, err := newTestOrchestrator(src, target).Run(context.Background(), testWindow)
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.True(t, IsTargetUnavailable(err))
	assert.ErrorIs(t, err, store.ErrUnavailable)

	var me *Error
	require.True(t, errors.As(err, &me))
	assert.Equal(t, "OS-1", me.OrderID)
	assert.Equal(t, StepZone, me.Step)
}

func TestRun_BackfillPolicyPassedToResolver(t *testing.T) {
	s := createTestStore(t)
	_, err := s.CreateSector(context.Background(), store.Sector{Name: "Las Palmas", NameKey: "las palmas"})
	require.NoError(t, err)

	src := rowsSource(orderRow("OS-1", "Las Palmas", 1, 7, "Ana Rodríguez"))
	rep, err := newTestOrchestrator(src, s, WithResolverOptions(resolve.WithSectorBackfill(false))).
		Run(context.Background(), testWindow)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Entities[model.KindSector].Matched)
	assert.Zero(t, rep.Entities[model.KindSector].Backfilled)
	sec, _, err := s.FindSectorByName(context.Background(), "las palmas")
	require.NoError(t, err)
	assert.Zero(t, sec.ZoneID)
}

func TestRun_WithSQLiteSource(t *testing.T) {
	path := testutil.CreateSourceDB(t,
		orderRow("OS-100", "Las Palmas", 1, 7, "Ana Rodríguez"),
		orderRow("OS-100", "Las Palmas", 2, 8, "Pedro Soto"),
		testutil.Row{OrderID: "OS-OLD", DateStart: "2019-01-01"},
	)
	src, err := source.Open(context.Background(), source.Config{Driver: source.DriverSQLite, DSN: path})
	require.NoError(t, err)
	defer src.Close()

	rep, err := newTestOrchestrator(src, createTestStore(t)).Run(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.SourceRows)
	assert.Equal(t, 1, rep.AggregatesCreated)
	assert.Equal(t, 2, rep.LineItemsCreated)
}
