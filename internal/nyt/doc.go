// Package nyt fetches bestseller lists from the New York Times Books API.
//
// The client returns list rows as immutable Book values with a cleaned
// 13-digit ISBN, preferring primary_isbn13 and falling back to the first
// usable entry in the isbns array. API hiccups are retried with bounded
// exponential backoff; authentication failures surface as configuration
// errors so a bad key aborts the run before any catalog traffic.
package nyt
