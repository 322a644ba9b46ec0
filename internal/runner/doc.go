// Package runner orchestrates a full resolution run: it fetches the
// configured bestseller lists, resolves every book to a CatKey, writes
// the report artifacts, and records and notifies the results. A file
// lock keeps concurrent runs from sharing a catalog session.
package runner
