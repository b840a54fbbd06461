package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/osmigrate/internal/model"
	"github.com/roach88/osmigrate/internal/resolve"
	"github.com/roach88/osmigrate/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages. An empty slice means all assertions held.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCounts:
		return assertCounters(a.Type, countsFields(result.Counts), a.Expect)
	case AssertReport:
		rep, err := passReport(result, a)
		if err != nil {
			return err
		}
		return assertCounters(a.Type, reportFields(rep), a.Expect)
	case AssertEntity:
		rep, err := passReport(result, a)
		if err != nil {
			return err
		}
		return assertCounters(a.Type+" "+string(a.Kind), entityFields(rep.Entities[a.Kind]), a.Expect)
	case AssertError:
		rep, err := passReport(result, a)
		if err != nil {
			return err
		}
		return assertReportError(rep, a)
	case AssertAnalysis:
		return assertAnalysis(result.Analysis, a)
	case AssertSectorZone:
		return assertSectorZone(result.SectorZones, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func passReport(result *Result, a Assertion) (*model.MigrationReport, error) {
	rep := result.Report(a.Pass)
	if rep == nil {
		return nil, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("report of pass %d", a.Pass),
			Actual:   fmt.Sprintf("%d passes ran", len(result.Reports)),
		}
	}
	return rep, nil
}

// assertCounters compares a subset of named counters.
func assertCounters(typ string, actual, expect map[string]int) error {
	var mismatches []string
	for _, name := range sortedKeys(expect) {
		got, ok := actual[name]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("unknown counter %q", name))
			continue
		}
		if got != expect[name] {
			mismatches = append(mismatches, fmt.Sprintf("%s=%d (want %d)", name, got, expect[name]))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%v", expect),
		Actual:   strings.Join(mismatches, ", "),
	}
}

func assertReportError(rep *model.MigrationReport, a Assertion) error {
	for _, e := range rep.Errors {
		if a.OrderID != "" && e.OrderID != a.OrderID {
			continue
		}
		if a.Step != "" && e.Step != a.Step {
			continue
		}
		if a.Code != "" && e.Code != a.Code {
			continue
		}
		if a.Contains != "" && !strings.Contains(e.Message, a.Contains) {
			continue
		}
		return nil
	}

	actual := make([]string, len(rep.Errors))
	for i, e := range rep.Errors {
		actual[i] = fmt.Sprintf("%s/%s/%s: %s", e.OrderID, e.Step, e.Code, e.Message)
	}
	return &AssertionError{
		Type:     AssertError,
		Expected: fmt.Sprintf("error order=%q step=%q code=%q containing %q", a.OrderID, a.Step, a.Code, a.Contains),
		Actual:   fmt.Sprintf("[%s]", strings.Join(actual, "; ")),
	}
}

func assertAnalysis(res *model.ImpactAnalysis, a Assertion) error {
	if res == nil {
		return &AssertionError{Type: AssertAnalysis, Expected: "dry-run result", Actual: "none"}
	}
	if len(a.Expect) > 0 {
		if err := assertCounters(AssertAnalysis, analysisFields(res), a.Expect); err != nil {
			return err
		}
	}
	if a.Kind == "" {
		return nil
	}

	ki := res.Kind(a.Kind)
	if a.Existing != nil && !sameKeys(ki.Existing, a.Existing) {
		return &AssertionError{
			Type:     AssertAnalysis + " " + string(a.Kind),
			Expected: fmt.Sprintf("existing %v", a.Existing),
			Actual:   fmt.Sprintf("existing %v", ki.Existing),
		}
	}
	if a.New != nil && !sameKeys(ki.New, a.New) {
		return &AssertionError{
			Type:     AssertAnalysis + " " + string(a.Kind),
			Expected: fmt.Sprintf("new %v", a.New),
			Actual:   fmt.Sprintf("new %v", ki.New),
		}
	}
	return nil
}

func assertSectorZone(links map[string]string, a Assertion) error {
	sector := resolve.SectorKey(a.Sector)
	got, ok := links[sector]
	if !ok {
		return &AssertionError{
			Type:     AssertSectorZone,
			Expected: fmt.Sprintf("sector %q", sector),
			Actual:   "not in target store",
		}
	}
	want := ""
	if a.Zone != "" {
		want = resolve.ZoneKey(a.Zone)
	}
	if got != want {
		return &AssertionError{
			Type:     AssertSectorZone,
			Expected: fmt.Sprintf("sector %q linked to %q", sector, want),
			Actual:   fmt.Sprintf("linked to %q", got),
		}
	}
	return nil
}

func countsFields(c store.Counts) map[string]int {
	return map[string]int{
		"people":              c.People,
		"zones":               c.Zones,
		"sectors":             c.Sectors,
		"machines":            c.Machines,
		"operators":           c.Operators,
		"service_orders":      c.ServiceOrders,
		"service_order_lines": c.ServiceOrderLines,
	}
}

func reportFields(r *model.MigrationReport) map[string]int {
	interrupted := 0
	if r.Interrupted {
		interrupted = 1
	}
	return map[string]int{
		"source_rows":        r.SourceRows,
		"aggregates":         r.Aggregates,
		"aggregates_created": r.AggregatesCreated,
		"aggregates_skipped": r.AggregatesSkipped,
		"line_items_created": r.LineItemsCreated,
		"malformed_rows":     r.MalformedRows,
		"errors":             r.ErrorCount,
		"interrupted":        interrupted,
	}
}

func entityFields(s model.EntityStats) map[string]int {
	return map[string]int{
		"matched":    s.Matched,
		"created":    s.Created,
		"cache_hits": s.CacheHits,
		"backfilled": s.Backfilled,
	}
}

func analysisFields(a *model.ImpactAnalysis) map[string]int {
	return map[string]int{
		"source_rows":          a.SourceRows,
		"aggregates":           a.Aggregates,
		"malformed_rows":       a.MalformedRows,
		"already_migrated":     a.AlreadyMigrated,
		"total_keys":           a.TotalKeys,
		"total_existing":       a.TotalExisting,
		"total_new":            a.TotalNew,
		"sectors_missing_zone": len(a.SectorsMissingZone),
	}
}

// sameKeys compares key sets regardless of order.
func sameKeys(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	g := slices.Clone(got)
	w := slices.Clone(want)
	sort.Strings(g)
	sort.Strings(w)
	return slices.Equal(g, w)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
