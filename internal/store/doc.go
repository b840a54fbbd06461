// Package store provides the SQLite-backed target store for migrated
// service orders and the entities they reference.
//
// The store owns:
//   - People (supervisors), zones, sectors, machines and operators, each
//     with indexed natural-key columns for find-or-create lookups
//   - Service orders (one per source order id, UNIQUE) and their lines
//   - The migration run ledger
//
// # Natural Keys
//
// Find methods take keys that are already normalized by the caller and
// return the lowest matching id, so lookups are deterministic even when a
// store holds duplicates created before the engine existed.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds (configurable)
//   - foreign_keys=ON: Enforce referential integrity
//
// Connection-level failures are reported as ErrUnavailable so callers can
// tell them apart from a single rejected record.
package store
