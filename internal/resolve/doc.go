// Package resolve maps natural keys from historical records to surrogate
// ids in the target store.
//
// Reader is the read path: one lookup per entity kind, never writing.
// Resolver wraps a Reader with the create path (find-or-create), a
// run-scoped cache and per-kind counters. The dry-run analyzer uses a
// Reader directly, so both paths make the same matching decisions.
//
// Natural keys per kind:
//   - Supervisor: normalize.Key(name), among people with the supervisor role
//   - Zone: normalize.Key(name)
//   - Sector: (normalize.Key(name), zone id), falling back to the name alone
//   - Machine: machine number
//   - Operator: (first token, remaining tokens) of the full name, exact
//
// Find-or-create is not safe to run concurrently for the same key against
// the same store. Resolver serializes every call on an internal mutex.
package resolve
