package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/testutil"
)

// Scenario defines a migration scenario: a seeded target store, source
// rows and the expected outcome of analyzing and migrating them.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Window is the year window every pass runs over.
	Window model.Window `yaml:"window"`

	// Seed lists entities present in the target store before the first pass.
	Seed Seed `yaml:"seed,omitempty"`

	// Rows are written to the source view in this order. Extraction
	// reorders them.
	Rows []testutil.Row `yaml:"rows"`

	// DryRun runs the analyzer before the first migration pass.
	DryRun bool `yaml:"dry_run,omitempty"`

	// Passes is the number of migration runs. Zero means one; a dry-run
	// only scenario sets dry_run and passes: -1.
	Passes int `yaml:"passes,omitempty"`

	// Backfill overrides the sector zone back-fill policy. Nil keeps the
	// default (enabled).
	Backfill *bool `yaml:"backfill,omitempty"`

	// Assertions validate the results.
	// Supported types: counts, report, entity, error, analysis, sector_zone
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id. If empty, defaults to
	// "test-run-default".
	RunID string `yaml:"run_id,omitempty"`
}

// Seed lists target entities created before the scenario runs. Names are
// stored as given and keyed the way the resolver keys them.
type Seed struct {
	Supervisors []string      `yaml:"supervisors,omitempty"`
	Zones       []string      `yaml:"zones,omitempty"`
	Sectors     []SeedSector  `yaml:"sectors,omitempty"`
	Machines    []SeedMachine `yaml:"machines,omitempty"`
	Operators   []string      `yaml:"operators,omitempty"`
}

// SeedSector is a pre-existing sector. An empty Zone leaves it unlinked;
// otherwise the zone must also be seeded.
type SeedSector struct {
	Name string `yaml:"name"`
	Zone string `yaml:"zone,omitempty"`
}

// SeedMachine is a pre-existing machine.
type SeedMachine struct {
	Number int    `yaml:"number"`
	Plate  string `yaml:"plate"`
}

// Assertion validates one aspect of the results.
type Assertion struct {
	// Type specifies the assertion type:
	// - "counts": row counts of the target store after the last pass
	// - "report": counters of one pass report
	// - "entity": resolver stats of one kind in one pass report
	// - "error": an itemized error of one pass report
	// - "analysis": key classification of one kind in the dry run
	// - "sector_zone": the zone link of a sector after the last pass
	Type string `yaml:"type"`

	// Pass selects the report (1-based) for report, entity and error.
	// Zero means the first pass.
	Pass int `yaml:"pass,omitempty"`

	// Kind is the entity kind (used by entity and analysis).
	Kind model.EntityKind `yaml:"kind,omitempty"`

	// Expect contains expected counter values (used by counts, report,
	// entity and analysis). Subset match - only listed fields are checked.
	Expect map[string]int `yaml:"expect,omitempty"`

	// OrderID, Step and Code identify the error (used by error).
	OrderID string `yaml:"order_id,omitempty"`
	Step    string `yaml:"step,omitempty"`
	Code    string `yaml:"code,omitempty"`

	// Contains is a substring of the error message (used by error).
	Contains string `yaml:"contains,omitempty"`

	// Existing and New are the expected keys (used by analysis). Nil
	// skips the check.
	Existing []string `yaml:"existing,omitempty"`
	New      []string `yaml:"new,omitempty"`

	// Sector and Zone name the link (used by sector_zone). An empty Zone
	// expects no link.
	Sector string `yaml:"sector,omitempty"`
	Zone   string `yaml:"zone,omitempty"`
}

// Assertion type constants.
const (
	AssertCounts     = "counts"
	AssertReport     = "report"
	AssertEntity     = "entity"
	AssertError      = "error"
	AssertAnalysis   = "analysis"
	AssertSectorZone = "sector_zone"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// passes returns the number of migration runs.
func (s *Scenario) passes() int {
	switch {
	case s.Passes < 0:
		return 0
	case s.Passes == 0:
		return 1
	}
	return s.Passes
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Window.YearStart == 0 || s.Window.YearEnd == 0 {
		return fmt.Errorf("window year_start and year_end are required")
	}
	if s.Window.YearStart > s.Window.YearEnd {
		return fmt.Errorf("window year_start %d after year_end %d", s.Window.YearStart, s.Window.YearEnd)
	}

	if s.passes() == 0 && !s.DryRun {
		return fmt.Errorf("scenario runs nothing: set dry_run or passes")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, sec := range s.Seed.Sectors {
		if sec.Name == "" {
			return fmt.Errorf("seed.sectors[%d]: name is required", i)
		}
	}
	for i, m := range s.Seed.Machines {
		if m.Number <= 0 {
			return fmt.Errorf("seed.machines[%d]: number must be positive", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, s); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, s *Scenario) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	if a.Pass < 0 || a.Pass > s.passes() {
		return fmt.Errorf("assertions[%d]: pass %d out of range (scenario runs %d)", index, a.Pass, s.passes())
	}

	switch a.Type {
	case AssertCounts, AssertReport:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertEntity:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for entity", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for entity", index)
		}
	case AssertError:
		if a.OrderID == "" && a.Code == "" {
			return fmt.Errorf("assertions[%d]: order_id or code is required for error", index)
		}
	case AssertAnalysis:
		if !s.DryRun {
			return fmt.Errorf("assertions[%d]: analysis requires dry_run", index)
		}
		if a.Kind == "" && len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: kind or expect is required for analysis", index)
		}
	case AssertSectorZone:
		if a.Sector == "" {
			return fmt.Errorf("assertions[%d]: sector is required for sector_zone", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Kind != "" && !slices.Contains(model.EntityKinds, a.Kind) {
		return fmt.Errorf("assertions[%d]: unknown kind %q", index, a.Kind)
	}

	return nil
}
