package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/osmigrate/internal/model"
)

const minimalScenario = `
name: minimal
description: one order
window: {year_start: 2024, year_end: 2024}
rows:
  - order_id: OS-1
    date_start: "2024-01-10"
assertions:
  - type: counts
    expect: {service_orders: 1}
`

func TestParseScenario_Minimal(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, model.Window{YearStart: 2024, YearEnd: 2024}, s.Window)
	require.Len(t, s.Rows, 1)
	assert.Equal(t, "OS-1", s.Rows[0].OrderID)
	assert.Equal(t, 1, s.passes())
	assert.Nil(t, s.Backfill)
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(minimalScenario + "assertion: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "missing name",
			yaml:    "description: d\nwindow: {year_start: 2024, year_end: 2024}\nassertions: [{type: counts, expect: {people: 0}}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing window",
			yaml:    "name: n\ndescription: d\nassertions: [{type: counts, expect: {people: 0}}]\n",
			wantErr: "window year_start and year_end are required",
		},
		{
			name:    "inverted window",
			yaml:    "name: n\ndescription: d\nwindow: {year_start: 2025, year_end: 2024}\nassertions: [{type: counts, expect: {people: 0}}]\n",
			wantErr: "after year_end",
		},
		{
			name:    "runs nothing",
			yaml:    "name: n\ndescription: d\nwindow: {year_start: 2024, year_end: 2024}\npasses: -1\nassertions: [{type: counts, expect: {people: 0}}]\n",
			wantErr: "runs nothing",
		},
		{
			name:    "no assertions",
			yaml:    "name: n\ndescription: d\nwindow: {year_start: 2024, year_end: 2024}\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown assertion type",
			yaml:    "name: n\ndescription: d\nwindow: {year_start: 2024, year_end: 2024}\nassertions: [{type: trace_order}]\n",
			wantErr: `unknown assertion type "trace_order"`,
		},
		{
			name:    "analysis without dry run",
			yaml:    "name: n\ndescription: d\nwindow: {year_start: 2024, year_end: 2024}\nassertions: [{type: analysis, kind: zone}]\n",
			wantErr: "analysis requires dry_run",
		},
		{
			name:    "unknown kind",
			yaml:    "name: n\ndescription: d\nwindow: {year_start: 2024, year_end: 2024}\nassertions: [{type: entity, kind: truck, expect: {created: 1}}]\n",
			wantErr: `unknown kind "truck"`,
		},
		{
			name:    "pass out of range",
			yaml:    "name: n\ndescription: d\nwindow: {year_start: 2024, year_end: 2024}\nassertions: [{type: report, pass: 2, expect: {errors: 0}}]\n",
			wantErr: "pass 2 out of range",
		},
		{
			name:    "seed machine without number",
			yaml:    "name: n\ndescription: d\nwindow: {year_start: 2024, year_end: 2024}\nseed: {machines: [{plate: X}]}\nassertions: [{type: counts, expect: {people: 0}}]\n",
			wantErr: "seed.machines[0]: number must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_Files(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, s.Rows)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
