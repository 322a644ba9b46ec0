package catalog

import "context"

// Outcome is the result of one search attempt for one identifier.
// A zero CatKey with a nil error from Search means the catalog holds no
// matching record.
type Outcome struct {
	// CatKey is the catalog-internal record identifier, empty when the
	// search produced no match.
	CatKey string
	// Query is the effective search URL the attempt used, surfaced for
	// debug output only.
	Query string
}

// Found reports whether the attempt located a catalog record.
func (o Outcome) Found() bool { return o.CatKey != "" }

// Searcher performs one search attempt for one identifier against the
// catalog. A non-nil error is always transient: the attempt may be
// repeated for the same identifier without side effects. Deterministic
// misses are expressed as a zero Outcome with a nil error.
type Searcher interface {
	Search(ctx context.Context, identifier string) (Outcome, error)
}
