// Package resolver turns bestseller rows into terminal found/not-found
// outcomes against the catalog search capability.
//
// Each book moves through an explicit sequence: attempt the ISBN-13 with
// bounded retries on transient failures, then fall back to the derived
// ISBN-10 (for "978" prefixes only) with a fresh retry budget, then
// resolve as not found. The retry wait and the search capability are both
// injected, so the whole machine is testable with scripted outcomes and a
// recorded fake clock.
package resolver
