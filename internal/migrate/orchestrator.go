package migrate

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/osmigrate/internal/aggregate"
	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/resolve"
	"github.com/roach88/osmigrate/internal/source"
	"github.com/roach88/osmigrate/internal/store"
)

// Source is the read port to the external history view.
type Source interface {
	Extract(ctx context.Context, w model.Window) ([]model.SourceRow, error)
}

// Target is the write port to the target store.
type Target interface {
	resolve.Store
	Ping(ctx context.Context) error
	FindServiceOrder(ctx context.Context, sourceOrderID string) (int64, bool, error)
	CreateServiceOrder(ctx context.Context, o store.ServiceOrder) (int64, error)
	CreateServiceOrderLine(ctx context.Context, l store.ServiceOrderLine) (int64, error)
}

var _ Target = (*store.Store)(nil)

// Orchestrator runs migrations from a Source into a Target.
type Orchestrator struct {
	source       Source
	target       Target
	logger       *slog.Logger
	now          func() time.Time
	runIDs       RunIDGenerator
	resolverOpts []resolve.Option
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger used by the orchestrator and its resolver.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock sets the time source for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithRunIDGenerator sets the run id generator. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(o *Orchestrator) {
		if g != nil {
			o.runIDs = g
		}
	}
}

// WithResolverOptions passes options to the per-run resolver.
func WithResolverOptions(opts ...resolve.Option) Option {
	return func(o *Orchestrator) {
		o.resolverOpts = append(o.resolverOpts, opts...)
	}
}

// New creates an Orchestrator.
func New(src Source, target Target, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source: src,
		target: target,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
		runIDs: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run migrates the window and returns the finalized report.
//
// A fatal error returns a nil report. When ctx is canceled, the aggregate
// in flight is finished, no further aggregate is started, and the report
// is returned with Interrupted set. Cancellation before extraction finishes
// returns an interrupted report with no aggregates.
func (o *Orchestrator) Run(ctx context.Context, w model.Window) (*model.MigrationReport, error) {
	runID := o.runIDs.Generate()
	logger := o.logger.With("run_id", runID)
	rep := model.NewMigrationReport(runID, w, o.now())

	if err := o.target.Ping(ctx); err != nil {
		if ctx.Err() != nil {
			return o.interrupted(logger, rep), nil
		}
		return nil, NewTargetUnavailable(err)
	}

	rows, err := o.source.Extract(ctx, w)
	if err != nil {
		if ctx.Err() != nil {
			return o.interrupted(logger, rep), nil
		}
		if errors.Is(err, source.ErrUnavailable) {
			return nil, NewSourceUnavailable(err)
		}
		return nil, NewExtractError(err)
	}
	aggs, malformed := aggregate.Group(rows)

	rep.SourceRows = len(rows)
	rep.Aggregates = len(aggs)
	rep.MalformedRows = len(malformed)
	rep.SourceDigest = model.SourceDigest(aggs)

	logger.Info("migration started",
		"year_start", w.YearStart,
		"year_end", w.YearEnd,
		"rows", len(rows),
		"aggregates", len(aggs),
		"malformed", len(malformed),
	)

	for _, m := range malformed {
		e := NewMalformedRowError(m)
		logger.Warn("malformed source row", "row", m.Row, "order_id", m.OrderID, "reason", m.Reason)
		rep.AddError(e.ReportError())
	}

	opts := append([]resolve.Option{resolve.WithLogger(logger)}, o.resolverOpts...)
	r := resolve.New(o.target, opts...)
	run := &run{target: o.target, resolver: r, report: rep, logger: logger, runID: runID}

	for i := range aggs {
		if ctx.Err() != nil {
			rep.Interrupted = true
			logger.Warn("migration interrupted",
				"processed", i,
				"remaining", len(aggs)-i,
			)
			break
		}
		if err := run.aggregate(context.WithoutCancel(ctx), &aggs[i]); err != nil {
			return nil, err
		}
	}

	rep.Entities = r.Stats()
	rep.Finalize(o.now())

	logger.Info("migration finished",
		"created", rep.AggregatesCreated,
		"skipped", rep.AggregatesSkipped,
		"lines", rep.LineItemsCreated,
		"errors", rep.ErrorCount,
		"interrupted", rep.Interrupted,
	)
	return rep, nil
}

// interrupted finalizes a report for a run canceled before any aggregate
// was started.
func (o *Orchestrator) interrupted(logger *slog.Logger, rep *model.MigrationReport) *model.MigrationReport {
	rep.Interrupted = true
	for _, k := range model.EntityKinds {
		rep.Entities[k] = model.EntityStats{}
	}
	rep.Finalize(o.now())
	logger.Warn("migration interrupted before extraction finished")
	return rep
}

// run holds the state of one migration run.
type run struct {
	target   Target
	resolver *resolve.Resolver
	report   *model.MigrationReport
	logger   *slog.Logger
	runID    string
}

// aggregate migrates one aggregate. It returns an error only when the
// failure is fatal; everything else is recorded in the report.
func (r *run) aggregate(ctx context.Context, agg *model.ServiceOrderAggregate) error {
	logger := r.logger.With("order_id", agg.OrderID)

	_, exists, err := r.target.FindServiceOrder(ctx, agg.OrderID)
	if err != nil {
		return r.fail(logger, NewPersistenceError(agg.OrderID, StepLookup, -1, err))
	}
	if exists {
		r.report.AggregatesSkipped++
		logger.Info("order already migrated")
		return nil
	}

	supervisorID, err := r.resolver.Supervisor(ctx, agg.SupervisorName)
	if err != nil {
		return r.fail(logger, NewResolutionError(agg.OrderID, StepSupervisor, -1, err))
	}
	zoneID, err := r.resolver.Zone(ctx, agg.ZoneName)
	if err != nil {
		return r.fail(logger, NewResolutionError(agg.OrderID, StepZone, -1, err))
	}
	sectorID, err := r.resolver.Sector(ctx, resolve.SectorInput{
		Name:          agg.SectorName,
		ZoneID:        zoneID,
		Comuna:        agg.Comuna,
		Area:          agg.SectorArea,
		PabellonCount: agg.PabellonTotal,
	})
	if err != nil {
		return r.fail(logger, NewResolutionError(agg.OrderID, StepSector, -1, err))
	}

	orderID, err := r.target.CreateServiceOrder(ctx, store.ServiceOrder{
		SourceOrderID:   agg.OrderID,
		DateStart:       agg.DateStart,
		DateEnd:         agg.DateEnd,
		SupervisorID:    supervisorID,
		ZoneID:          zoneID,
		SectorID:        sectorID,
		Area:            agg.SectorArea,
		PabellonTotal:   agg.PabellonTotal,
		PabellonCleaned: agg.PabellonCleaned,
		Ticket:          agg.Ticket,
		Status:          agg.Status,
		Observation:     agg.Observation,
		RunID:           r.runID,
	})
	if err != nil {
		return r.fail(logger, NewPersistenceError(agg.OrderID, StepServiceOrder, -1, err))
	}
	r.report.AggregatesCreated++

	for i := range agg.Lines {
		if err := r.line(ctx, logger, agg.OrderID, orderID, &agg.Lines[i]); err != nil {
			return err
		}
	}
	logger.Debug("order migrated", "target_id", orderID, "lines", len(agg.Lines))
	return nil
}

// line migrates one line item of a persisted parent.
func (r *run) line(ctx context.Context, logger *slog.Logger, sourceOrderID string, parentID int64, item *model.LineItem) error {
	machineID, err := r.resolver.Machine(ctx, item.MachineNumber, item.MachineSourceID)
	if err != nil {
		return r.fail(logger, NewResolutionError(sourceOrderID, StepMachine, item.Row, err))
	}
	operatorID, err := r.resolver.Operator(ctx, item.OperatorName)
	if err != nil {
		return r.fail(logger, NewResolutionError(sourceOrderID, StepOperator, item.Row, err))
	}

	_, err = r.target.CreateServiceOrderLine(ctx, store.ServiceOrderLine{
		ServiceOrderID: parentID,
		SourceRow:      item.Row,
		PabellonNumber: item.PabellonNumber,
		MachineID:      machineID,
		OperatorID:     operatorID,
		OdometerStart:  item.OdometerStart,
		OdometerEnd:    item.OdometerEnd,
		FuelLiters:     item.FuelLiters,
		Damage:         item.Damage,
	})
	if err != nil {
		return r.fail(logger, NewPersistenceError(sourceOrderID, StepLine, item.Row, err))
	}
	r.report.LineItemsCreated++
	return nil
}

// fail records a non-fatal error in the report and returns nil, or returns
// a fatal error when the target store itself is gone.
func (r *run) fail(logger *slog.Logger, e *Error) error {
	if store.IsUnavailable(e.Err) {
		fatal := NewTargetUnavailable(e.Err)
		fatal.OrderID = e.OrderID
		fatal.Step = e.Step
		logger.Error("target store unavailable", "step", e.Step, "error", e.Err)
		return fatal
	}
	logger.Error("aggregate step failed", "step", e.Step, "code", e.Code, "error", e)
	r.report.AddError(e.ReportError())
	return nil
}
