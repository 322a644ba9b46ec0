// Package report aggregates resolution outcomes into deterministic
// run artifacts.
//
// The Aggregator pairs ordered slices with membership sets so found
// CatKeys stay deduplicated per list and across lists while preserving
// first-seen order; not-found rows are never deduplicated. Rendering is
// a pure function of the accumulated structures plus an injected
// timestamp, so the same inputs always produce byte-identical artifacts.
package report
