// Package model defines the data shapes that flow through a migration run.
//
// SourceRow is the flat, loosely-typed record read from the external
// history view. The aggregator turns rows into ServiceOrderAggregate values,
// which the orchestrator persists and the analyzer inspects. MigrationReport
// and ImpactAnalysis are the outputs of the mutating and read-only paths.
//
// Nothing in this package touches a database.
package model
