package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/osmigrate/internal/config"
	"github.com/roach88/osmigrate/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Database string
	Limit    int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded migration runs",
		Long: `List the migration runs recorded in the target store, most recent first.

Each entry shows the window, the counters of the run and the path of its
JSON report. Dry runs are not recorded.

Examples:
  osmigrate runs
  osmigrate runs --db ./target.db
  osmigrate runs --db ./target.db --limit 5 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to target SQLite database (default from config)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs (0 for all)")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	cfg, err := config.Load(opts.ConfigPath, opts.EnvFile)
	if err != nil {
		return fail(out, WrapExitError(ExitCommandError, "failed to load config", err))
	}
	cfg = cfg.Merge(config.Config{Target: config.TargetConfig{Path: opts.Database}})

	st, err := store.Open(cfg.Target.Path)
	if err != nil {
		return fail(out, WrapExitError(ExitCommandError, "failed to open target store", err))
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return fail(out, WrapExitError(ExitCommandError, "failed to list runs", err))
	}

	return out.Success(runs, func(w io.Writer) error {
		return outputRunsText(w, runs)
	})
}

func outputRunsText(w io.Writer, runs []store.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	p := &textPrinter{w: w}
	p.printf("%-36s  %-9s  %-20s  %7s  %7s  %5s  %6s  %s\n",
		"RUN", "WINDOW", "STARTED", "CREATED", "SKIPPED", "LINES", "ERRORS", "STATUS")
	for _, r := range runs {
		status := "completed"
		if r.Interrupted {
			status = "interrupted"
		}
		p.printf("%-36s  %-9s  %-20s  %7d  %7d  %5d  %6d  %s\n",
			r.RunID,
			fmt.Sprintf("%d-%d", r.Window.YearStart, r.Window.YearEnd),
			r.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
			r.AggregatesCreated,
			r.AggregatesSkipped,
			r.LineItemsCreated,
			r.Errors,
			status,
		)
		if r.ReportPath != "" {
			p.printf("  report: %s\n", r.ReportPath)
		}
	}
	return p.err
}

// textPrinter keeps the first write error.
type textPrinter struct {
	w   io.Writer
	err error
}

func (p *textPrinter) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
