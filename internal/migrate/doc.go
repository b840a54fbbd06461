// Package migrate drives a migration run: extract one year window from the
// source view, group it into service order aggregates, resolve every
// referenced entity by natural key and persist parents and line items.
//
// Aggregates are processed one at a time in aggregation order. A failure
// inside an aggregate is itemized in the MigrationReport and processing
// continues with the next aggregate. Only an unreachable source or target
// aborts a run.
package migrate
