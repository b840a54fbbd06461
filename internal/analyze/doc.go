// Package analyze predicts the effect of a migration run without writing
// to the target store.
//
// The analyzer extracts and groups the same window a run would, walks the
// aggregates in the same order, and classifies every distinct natural key
// through the resolver's read path. It mirrors the run's in-memory cache
// so that a key created earlier in the window is not counted twice.
package analyze
