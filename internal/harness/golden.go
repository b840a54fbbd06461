package harness

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/store"
)

// Snapshot captures the deterministic outcome of a scenario. Timestamps
// and source digests are left out; they are covered by report tests.
type Snapshot struct {
	ScenarioName string            `json:"scenario_name"`
	Analysis     *AnalysisSnapshot `json:"analysis,omitempty"`
	Passes       []PassSnapshot    `json:"passes"`
	Counts       store.Counts      `json:"counts"`
	SectorZones  map[string]string `json:"sector_zones"`
}

// AnalysisSnapshot is the key classification of a dry run.
type AnalysisSnapshot struct {
	Aggregates         int                  `json:"aggregates"`
	MalformedRows      int                  `json:"malformed_rows"`
	AlreadyMigrated    int                  `json:"already_migrated"`
	Kinds              []model.KindImpact   `json:"kinds"`
	TotalExisting      int                  `json:"total_existing"`
	TotalNew           int                  `json:"total_new"`
	SectorsMissingZone []string             `json:"sectors_missing_zone"`
	Recommendation     model.Recommendation `json:"recommendation"`
	Notes              []string             `json:"notes"`
}

// PassSnapshot is the outcome of one migration pass.
type PassSnapshot struct {
	Aggregates        int                                    `json:"aggregates"`
	AggregatesCreated int                                    `json:"aggregates_created"`
	AggregatesSkipped int                                    `json:"aggregates_skipped"`
	LineItemsCreated  int                                    `json:"line_items_created"`
	MalformedRows     int                                    `json:"malformed_rows"`
	Entities          map[model.EntityKind]model.EntityStats `json:"entities"`
	Errors            []model.ReportError                    `json:"errors"`
}

// NewSnapshot builds the snapshot of a scenario result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		ScenarioName: name,
		Passes:       make([]PassSnapshot, len(result.Reports)),
		Counts:       result.Counts,
		SectorZones:  result.SectorZones,
	}
	if a := result.Analysis; a != nil {
		s.Analysis = &AnalysisSnapshot{
			Aggregates:         a.Aggregates,
			MalformedRows:      a.MalformedRows,
			AlreadyMigrated:    a.AlreadyMigrated,
			Kinds:              a.Kinds,
			TotalExisting:      a.TotalExisting,
			TotalNew:           a.TotalNew,
			SectorsMissingZone: a.SectorsMissingZone,
			Recommendation:     a.Recommendation,
			Notes:              a.Notes,
		}
	}
	for i, r := range result.Reports {
		s.Passes[i] = PassSnapshot{
			Aggregates:        r.Aggregates,
			AggregatesCreated: r.AggregatesCreated,
			AggregatesSkipped: r.AggregatesSkipped,
			LineItemsCreated:  r.LineItemsCreated,
			MalformedRows:     r.MalformedRows,
			Entities:          r.Entities,
			Errors:            r.Errors,
		}
	}
	return s
}

// MarshalSnapshot encodes a snapshot as indented JSON with a trailing
// newline. Map keys are sorted by encoding/json.
func MarshalSnapshot(s Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the snapshot of an existing result against a
// golden file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(NewSnapshot(scenarioName, result))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
