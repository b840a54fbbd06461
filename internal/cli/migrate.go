package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/osmigrate/internal/analyze"
	"github.com/roach88/osmigrate/internal/config"
	"github.com/roach88/osmigrate/internal/migrate"
	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/report"
	"github.com/roach88/osmigrate/internal/source"
	"github.com/roach88/osmigrate/internal/store"
)

// MigrateOptions holds flags for the migrate command.
type MigrateOptions struct {
	*RootOptions
	From         int
	To           int
	DryRun       bool
	Database     string
	SourceDriver string
	SourceDSN    string
	SourceView   string
	ReportDir    string
	NoBackfill   bool

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to migrate.UUIDv7Generator.
	RunIDs migrate.RunIDGenerator

	// Now overrides the clock (for testing).
	Now func() time.Time
}

// MigrateResult is the JSON payload of a migration run.
type MigrateResult struct {
	ReportPath string                 `json:"report_path"`
	Report     *model.MigrationReport `json:"report"`
}

// AnalyzeResult is the JSON payload of a dry run.
type AnalyzeResult struct {
	ReportPath string                `json:"report_path"`
	Analysis   *model.ImpactAnalysis `json:"analysis"`
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return newMigrateCommand(&MigrateOptions{RootOptions: rootOpts})
}

func newMigrateCommand(opts *MigrateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate a window of historical service orders",
		Long: `Migrate service orders whose start date falls in a year window.

Every order in the window is grouped from its source rows, its supervisor,
zone, sector, machines and operators are matched or created by natural key,
and the order and its line items are written to the target store. Failures
are itemized per order; one bad order never stops the run. Orders migrated
by an earlier run are skipped.

With --dry-run nothing is written: every natural key is classified as
existing or new and a recommendation is printed.

A JSON report is written to the report directory in both modes.

Examples:
  osmigrate migrate --source-dsn "postgres://reader@legacy/hist" --db ./target.db
  osmigrate migrate --from 2024 --to 2024 --dry-run
  osmigrate migrate --config osmigrate.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.From, "from", 0, "first year of the window (default from config, 2024)")
	cmd.Flags().IntVar(&opts.To, "to", 0, "last year of the window (default from config, 2025)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "analyze impact without writing")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to target SQLite database")
	cmd.Flags().StringVar(&opts.SourceDriver, "source-driver", "", "source driver (postgres|mysql|sqlite3)")
	cmd.Flags().StringVar(&opts.SourceDSN, "source-dsn", "", "source connection string")
	cmd.Flags().StringVar(&opts.SourceView, "source-view", "", "source view name")
	cmd.Flags().StringVar(&opts.ReportDir, "report-dir", "", "directory for JSON reports")
	cmd.Flags().BoolVar(&opts.NoBackfill, "no-backfill", false, "do not link existing sectors to zones")

	return cmd
}

// flagConfig returns the configuration layer set by flags.
func (o *MigrateOptions) flagConfig(cmd *cobra.Command) config.Config {
	cfg := config.Config{
		Source: config.SourceConfig{Driver: o.SourceDriver, DSN: o.SourceDSN, View: o.SourceView},
		Target: config.TargetConfig{Path: o.Database},
		Window: config.WindowConfig{YearStart: o.From, YearEnd: o.To},
		Report: config.ReportConfig{Dir: o.ReportDir},
	}
	if cmd.Flags().Changed("no-backfill") {
		backfill := !o.NoBackfill
		cfg.Resolver.BackfillSectorZone = &backfill
	}
	return cfg
}

func (o *MigrateOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

func runMigrate(opts *MigrateOptions, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)
	out := opts.formatter(cmd)

	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return fail(out, WrapExitError(ExitCommandError, "failed to load config", err))
	}
	cfg = cfg.Merge(opts.flagConfig(cmd))
	if err := cfg.Validate(); err != nil {
		return fail(out, WrapExitError(ExitCommandError, "invalid config", err))
	}
	window := cfg.ModelWindow()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, finishing current order", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Info("opening target store", "path", cfg.Target.Path, "read_only", opts.DryRun)
	openStore := store.Open
	if opts.DryRun {
		openStore = store.OpenReadOnly
	}
	st, err := openStore(cfg.Target.Path)
	if err != nil {
		return fail(out, WrapExitError(ExitCommandError, "failed to open target store", err))
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing target store", "error", closeErr)
		}
	}()

	logger.Info("connecting to source", "driver", cfg.Source.Driver, "view", cfg.Source.View)
	src, err := source.Open(ctx, cfg.SourceConfig())
	if err != nil {
		return fail(out, WrapExitError(ExitCommandError, "source unavailable", err))
	}
	defer src.Close()

	if opts.DryRun {
		return runAnalysis(ctx, opts, cfg, window, src, st, logger, out)
	}
	return runMigration(ctx, opts, cfg, window, src, st, logger, out)
}

func runAnalysis(ctx context.Context, opts *MigrateOptions, cfg config.Config, w model.Window,
	src *source.Extractor, st *store.Store, logger *slog.Logger, out *OutputFormatter) error {
	a := analyze.New(src, st,
		analyze.WithThresholds(cfg.Thresholds()),
		analyze.WithSectorBackfill(cfg.Backfill()),
		analyze.WithLogger(logger),
		analyze.WithClock(opts.now),
	)
	res, err := a.Analyze(ctx, w)
	if err != nil {
		return fail(out, WrapExitError(ExitCommandError, "analysis failed", err))
	}

	path, err := report.WriteJSON(cfg.Report.Dir, report.PrefixAnalysis, res, res.GeneratedAt)
	if err != nil {
		return fail(out, WrapExitError(ExitFailure, "failed to write report", err))
	}
	logger.Info("analysis report written", "path", path)

	return out.Success(AnalyzeResult{ReportPath: path, Analysis: res}, func(w io.Writer) error {
		if err := report.RenderAnalysis(w, res); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "\nReport: %s\n", path)
		return err
	})
}

func runMigration(ctx context.Context, opts *MigrateOptions, cfg config.Config, w model.Window,
	src *source.Extractor, st *store.Store, logger *slog.Logger, out *OutputFormatter) error {
	orch := migrate.New(src, st,
		migrate.WithLogger(logger),
		migrate.WithClock(opts.now),
		migrate.WithRunIDGenerator(opts.RunIDs),
		migrate.WithResolverOptions(cfg.ResolverOptions()...),
	)
	rep, err := orch.Run(ctx, w)
	if err != nil {
		if migrate.IsFatal(err) {
			return fail(out, WrapExitError(ExitCommandError, "migration aborted", err))
		}
		return fail(out, WrapExitError(ExitFailure, "migration failed", err))
	}

	path, err := report.WriteJSON(cfg.Report.Dir, report.PrefixMigration, rep, rep.StartedAt)
	if err != nil {
		logger.Error("failed to write report", "error", err)
	} else {
		logger.Info("migration report written", "path", path)
	}

	// The ledger entry outlives a canceled context.
	if err := st.RecordRun(context.WithoutCancel(ctx), store.RunRecordFromReport(rep, path)); err != nil {
		logger.Error("failed to record run", "run_id", rep.RunID, "error", err)
	}

	if err := out.Success(MigrateResult{ReportPath: path, Report: rep}, func(w io.Writer) error {
		if err := report.RenderMigration(w, rep); err != nil {
			return err
		}
		if path == "" {
			return nil
		}
		_, err := fmt.Fprintf(w, "\nReport: %s\n", path)
		return err
	}); err != nil {
		return err
	}

	if rep.Interrupted {
		return NewExitError(ExitFailure, "migration interrupted before all orders were processed")
	}
	return nil
}

// fail writes err in JSON mode and returns it.
func fail(out *OutputFormatter, err *ExitError) error {
	if werr := out.Error(err); werr != nil {
		return werr
	}
	return err
}
