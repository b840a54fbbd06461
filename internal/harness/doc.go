// Package harness runs migration scenarios described in YAML.
//
// A scenario seeds a fresh target store, writes its rows to a SQLite
// source shaped like the history view, optionally runs a dry-run
// analysis, then runs one or more migration passes over the same window.
// Assertions are evaluated against the results, and RunWithGolden compares
// a deterministic snapshot against testdata/golden/{name}.golden.
//
// Every scenario runs against a fresh in-memory store with a fixed run id
// and clock, so two runs of the same scenario produce identical snapshots.
//
// # Scenario format
//
//	name: sector_backfill
//	description: existing sectors without a zone are linked
//	window: {year_start: 2024, year_end: 2024}
//	seed:
//	  sectors:
//	    - name: Las Palmas
//	rows:
//	  - order_id: OS-1
//	    date_start: "2024-03-05"
//	    sector: Las Palmas
//	    ...
//	dry_run: true
//	passes: 1
//	assertions:
//	  - type: counts
//	    expect: {service_orders: 1}
//	  - type: sector_zone
//	    sector: Las Palmas
//	    zone: Zona Norte
package harness
