// Package services defines the shared error taxonomy for external
// collaborators.
//
// Sentinel errors distinguish recoverable transport failures
// (ErrTransient) from deterministic misses (ErrNotFound), malformed input
// (ErrValidation), and fatal setup problems (ErrConfiguration). Callers
// classify wrapped errors with errors.Is rather than string matching.
package services
