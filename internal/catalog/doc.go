// Package catalog searches a SirsiDynix Enterprise library catalog for
// record keys (CatKeys).
//
// The Searcher contract is deliberately narrow: one identifier in, one
// Outcome out, with transport failures kept distinct from deterministic
// misses so callers can retry the former and move on from the latter.
// The bundled Client drives the catalog's public search pages over plain
// HTTP and extracts CatKeys from SD_ILS detail links; swapping in a
// scripted Searcher keeps resolution logic testable without a catalog.
package catalog
