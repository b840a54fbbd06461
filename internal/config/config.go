// Package config assembles the run configuration from defaults, a YAML
// file, a .env file and OSMIGRATE_* environment variables.
//
// A Config is built once per invocation and passed to constructors. No
// package reads configuration from globals.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/osmigrate/internal/analyze"
	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/resolve"
	"github.com/roach88/osmigrate/internal/source"
)

// Config is the complete run configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Target   TargetConfig   `yaml:"target"`
	Window   WindowConfig   `yaml:"window"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Resolver ResolverConfig `yaml:"resolver"`
	Report   ReportConfig   `yaml:"report"`
}

// SourceConfig describes the external history view.
type SourceConfig struct {
	Driver         string        `yaml:"driver"`
	DSN            string        `yaml:"dsn"`
	View           string        `yaml:"view"`
	MaxOpenConns   int           `yaml:"max_open_conns"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// TargetConfig locates the target SQLite store.
type TargetConfig struct {
	Path string `yaml:"path"`
}

// WindowConfig is the default year window.
type WindowConfig struct {
	YearStart int `yaml:"year_start"`
	YearEnd   int `yaml:"year_end"`
}

// AnalysisConfig holds the dry run recommendation thresholds. Pointers
// distinguish an explicit zero from an unset value.
type AnalysisConfig struct {
	SafeMaxNew   *int `yaml:"safe_max_new"`
	ReviewMaxNew *int `yaml:"review_max_new"`
}

// ResolverConfig holds identity resolution policy.
type ResolverConfig struct {
	BackfillSectorZone    *bool  `yaml:"backfill_sector_zone"`
	SupervisorEmailDomain string `yaml:"supervisor_email_domain"`
}

// ReportConfig locates report output.
type ReportConfig struct {
	Dir string `yaml:"dir"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Source: SourceConfig{
			Driver:         source.DriverPostgres,
			View:           source.DefaultView,
			MaxOpenConns:   4,
			ConnectTimeout: source.DefaultConnectTimeout,
		},
		Target: TargetConfig{Path: "osmigrate.db"},
		Window: WindowConfig{YearStart: 2024, YearEnd: 2025},
		Analysis: AnalysisConfig{
			SafeMaxNew:   intPtr(analyze.DefaultThresholds.SafeMaxNew),
			ReviewMaxNew: intPtr(analyze.DefaultThresholds.ReviewMaxNew),
		},
		Resolver: ResolverConfig{
			BackfillSectorZone:    boolPtr(true),
			SupervisorEmailDomain: resolve.DefaultEmailDomain,
		},
		Report: ReportConfig{Dir: "reports"},
	}
}

// Merge returns c with every non-zero field of override applied.
func (c Config) Merge(override Config) Config {
	result := c
	if v := strings.TrimSpace(override.Source.Driver); v != "" {
		result.Source.Driver = v
	}
	if v := strings.TrimSpace(override.Source.DSN); v != "" {
		result.Source.DSN = v
	}
	if v := strings.TrimSpace(override.Source.View); v != "" {
		result.Source.View = v
	}
	if override.Source.MaxOpenConns > 0 {
		result.Source.MaxOpenConns = override.Source.MaxOpenConns
	}
	if override.Source.ConnectTimeout > 0 {
		result.Source.ConnectTimeout = override.Source.ConnectTimeout
	}
	if v := strings.TrimSpace(override.Target.Path); v != "" {
		result.Target.Path = v
	}
	if override.Window.YearStart != 0 {
		result.Window.YearStart = override.Window.YearStart
	}
	if override.Window.YearEnd != 0 {
		result.Window.YearEnd = override.Window.YearEnd
	}
	if override.Analysis.SafeMaxNew != nil {
		result.Analysis.SafeMaxNew = intPtr(*override.Analysis.SafeMaxNew)
	}
	if override.Analysis.ReviewMaxNew != nil {
		result.Analysis.ReviewMaxNew = intPtr(*override.Analysis.ReviewMaxNew)
	}
	if override.Resolver.BackfillSectorZone != nil {
		result.Resolver.BackfillSectorZone = boolPtr(*override.Resolver.BackfillSectorZone)
	}
	if v := strings.TrimSpace(override.Resolver.SupervisorEmailDomain); v != "" {
		result.Resolver.SupervisorEmailDomain = v
	}
	if v := strings.TrimSpace(override.Report.Dir); v != "" {
		result.Report.Dir = v
	}
	return result
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var errs []error
	if err := c.SourceConfig().Validate(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Target.Path) == "" {
		errs = append(errs, errors.New("target path required"))
	}
	if c.Window.YearStart < 1900 || c.Window.YearEnd > 9998 {
		errs = append(errs, fmt.Errorf("window %d-%d out of range", c.Window.YearStart, c.Window.YearEnd))
	}
	if c.Window.YearStart > c.Window.YearEnd {
		errs = append(errs, fmt.Errorf("year_start %d after year_end %d", c.Window.YearStart, c.Window.YearEnd))
	}
	th := c.Thresholds()
	if th.SafeMaxNew < 0 || th.ReviewMaxNew < 0 {
		errs = append(errs, errors.New("analysis thresholds must not be negative"))
	} else if th.ReviewMaxNew <= th.SafeMaxNew {
		errs = append(errs, fmt.Errorf("review_max_new %d must exceed safe_max_new %d", th.ReviewMaxNew, th.SafeMaxNew))
	}
	if strings.TrimSpace(c.Resolver.SupervisorEmailDomain) == "" {
		errs = append(errs, errors.New("supervisor email domain required"))
	}
	if strings.TrimSpace(c.Report.Dir) == "" {
		errs = append(errs, errors.New("report dir required"))
	}
	return errors.Join(errs...)
}

// SourceConfig returns the extractor configuration.
func (c Config) SourceConfig() source.Config {
	return source.Config{
		Driver:         c.Source.Driver,
		DSN:            c.Source.DSN,
		View:           c.Source.View,
		MaxOpenConns:   c.Source.MaxOpenConns,
		ConnectTimeout: c.Source.ConnectTimeout,
	}
}

// ModelWindow returns the configured window.
func (c Config) ModelWindow() model.Window {
	return model.Window{YearStart: c.Window.YearStart, YearEnd: c.Window.YearEnd}
}

// Thresholds returns the analyzer thresholds, falling back to defaults for
// unset values.
func (c Config) Thresholds() analyze.Thresholds {
	th := analyze.DefaultThresholds
	if c.Analysis.SafeMaxNew != nil {
		th.SafeMaxNew = *c.Analysis.SafeMaxNew
	}
	if c.Analysis.ReviewMaxNew != nil {
		th.ReviewMaxNew = *c.Analysis.ReviewMaxNew
	}
	return th
}

// Backfill reports whether sector zone back-fill is enabled. Default true.
func (c Config) Backfill() bool {
	if c.Resolver.BackfillSectorZone == nil {
		return true
	}
	return *c.Resolver.BackfillSectorZone
}

// ResolverOptions returns the resolver options for this configuration.
func (c Config) ResolverOptions() []resolve.Option {
	return []resolve.Option{
		resolve.WithSectorBackfill(c.Backfill()),
		resolve.WithEmailDomain(c.Resolver.SupervisorEmailDomain),
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
