// Package source reads the external service order history view.
//
// The view is owned by another system and is only ever read. One bounded
// range query per run returns every row of the requested year window in a
// fixed order, so that grouping and persistence order are reproducible.
package source
