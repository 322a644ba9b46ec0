package resolver

import (
	"context"
	"reflect"
	"testing"
	"time"

	"catkeygen/internal/catalog"
	"catkeygen/internal/nyt"
	"catkeygen/internal/services"
)

// scriptedSearcher replays a fixed sequence of outcomes per identifier.
type scriptedSearcher struct {
	script map[string][]scriptStep
	calls  []string
}

type scriptStep struct {
	catKey    string
	transient bool
}

func (s *scriptedSearcher) Search(ctx context.Context, identifier string) (catalog.Outcome, error) {
	s.calls = append(s.calls, identifier)
	steps := s.script[identifier]
	if len(steps) == 0 {
		return catalog.Outcome{}, nil
	}
	step := steps[0]
	s.script[identifier] = steps[1:]
	if step.transient {
		return catalog.Outcome{}, services.Wrap(services.ErrTransient, "catalog", "search", "scripted failure", nil)
	}
	return catalog.Outcome{CatKey: step.catKey, Query: "scripted://" + identifier}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func testBook(isbn13 string) nyt.Book {
	return nyt.Book{ListName: "hardcover-fiction", ISBN13: isbn13, Title: "A Title", Author: "An Author"}
}

func TestResolveFoundAfterTransientRetries(t *testing.T) {
	searcher := &scriptedSearcher{script: map[string][]scriptStep{
		"9780385545969": {{transient: true}, {transient: true}, {catKey: "123456"}},
	}}
	r := New(searcher, Policy{MaxRetries: 3}, WithSleep(noSleep))

	result := r.Resolve(context.Background(), testBook("9780385545969"))
	if !result.Found || result.CatKey != "123456" {
		t.Fatalf("expected Found(123456), got %+v", result)
	}
	if result.Reason != ReasonFound {
		t.Fatalf("expected reason %q, got %q", ReasonFound, result.Reason)
	}
	if want := []string{"9780385545969"}; !reflect.DeepEqual(result.IdentifiersTried, want) {
		t.Fatalf("expected identifiers %v, got %v", want, result.IdentifiersTried)
	}
	// The ISBN-10 fallback must never fire once the ISBN-13 succeeds.
	for _, call := range searcher.calls {
		if call != "9780385545969" {
			t.Fatalf("unexpected search for %q", call)
		}
	}
}

func TestResolveFallsBackToISBN10(t *testing.T) {
	searcher := &scriptedSearcher{script: map[string][]scriptStep{
		"9780385545969": {{}}, // deterministic miss
		"0385545967":    {{catKey: "654321"}},
	}}
	r := New(searcher, Policy{MaxRetries: 3}, WithSleep(noSleep))

	result := r.Resolve(context.Background(), testBook("9780385545969"))
	if !result.Found || result.CatKey != "654321" {
		t.Fatalf("expected Found(654321), got %+v", result)
	}
	want := []string{"9780385545969", "0385545967"}
	if !reflect.DeepEqual(result.IdentifiersTried, want) {
		t.Fatalf("expected identifiers %v, got %v", want, result.IdentifiersTried)
	}
}

func TestResolveNonConvertibleISBNSkipsFallback(t *testing.T) {
	searcher := &scriptedSearcher{script: map[string][]scriptStep{}}
	r := New(searcher, Policy{MaxRetries: 2}, WithSleep(noSleep))

	// Valid ISBN-13 with a 979 prefix: no ISBN-10 form exists.
	book := testBook("9790000000001")
	result := r.Resolve(context.Background(), book)
	if result.Found {
		t.Fatalf("expected NotFound, got %+v", result)
	}
	if result.Reason != ReasonNoMatch {
		t.Fatalf("expected reason %q, got %q", ReasonNoMatch, result.Reason)
	}
	if want := []string{"9790000000001"}; !reflect.DeepEqual(result.IdentifiersTried, want) {
		t.Fatalf("expected identifiers %v, got %v", want, result.IdentifiersTried)
	}
}

func TestResolveInvalidISBNConsumesNoSearchAttempt(t *testing.T) {
	searcher := &scriptedSearcher{script: map[string][]scriptStep{}}
	r := New(searcher, DefaultPolicy(), WithSleep(noSleep))

	result := r.Resolve(context.Background(), testBook("not-an-isbn"))
	if result.Found {
		t.Fatalf("expected NotFound, got %+v", result)
	}
	if result.Reason != ReasonInvalidISBN {
		t.Fatalf("expected reason %q, got %q", ReasonInvalidISBN, result.Reason)
	}
	if len(result.IdentifiersTried) != 0 {
		t.Fatalf("expected no identifiers tried, got %v", result.IdentifiersTried)
	}
	if len(searcher.calls) != 0 {
		t.Fatalf("expected no search calls, got %v", searcher.calls)
	}
}

func TestResolveRetryBudgetIsPerIdentifier(t *testing.T) {
	searcher := &scriptedSearcher{script: map[string][]scriptStep{
		"9780385545969": {{transient: true}, {transient: true}, {transient: true}},
		"0385545967":    {{transient: true}, {transient: true}, {transient: true}},
	}}
	r := New(searcher, Policy{MaxRetries: 2}, WithSleep(noSleep))

	result := r.Resolve(context.Background(), testBook("9780385545969"))
	if result.Found {
		t.Fatalf("expected NotFound, got %+v", result)
	}
	if result.Reason != ReasonExhausted {
		t.Fatalf("expected reason %q, got %q", ReasonExhausted, result.Reason)
	}
	// Three submissions per identifier: the fallback is a fresh budget,
	// not a retry of the ISBN-13.
	counts := map[string]int{}
	for _, call := range searcher.calls {
		counts[call]++
	}
	if counts["9780385545969"] != 3 || counts["0385545967"] != 3 {
		t.Fatalf("expected 3 attempts per identifier, got %v", counts)
	}
}

func TestResolveBackoffDelaysAreObserved(t *testing.T) {
	searcher := &scriptedSearcher{script: map[string][]scriptStep{
		"9780385545969": {{transient: true}, {transient: true}, {catKey: "99"}},
	}}
	var delays []time.Duration
	record := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	r := New(searcher, Policy{MaxRetries: 3, Backoff: DefaultBackoff}, WithSleep(record))

	if result := r.Resolve(context.Background(), testBook("9780385545969")); !result.Found {
		t.Fatalf("expected Found, got %+v", result)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if !reflect.DeepEqual(delays, want) {
		t.Fatalf("expected backoff delays %v, got %v", want, delays)
	}
}

func TestResolveCancellationYieldsTerminalResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	searcher := &cancelingSearcher{cancel: cancel}
	r := New(searcher, Policy{MaxRetries: 5}, WithSleep(noSleep))

	result := r.Resolve(ctx, testBook("9780385545969"))
	if result.Found {
		t.Fatalf("expected NotFound after cancellation, got %+v", result)
	}
	if result.Reason != ReasonCanceled {
		t.Fatalf("expected reason %q, got %q", ReasonCanceled, result.Reason)
	}
	if want := []string{"9780385545969"}; !reflect.DeepEqual(result.IdentifiersTried, want) {
		t.Fatalf("expected identifiers %v, got %v", want, result.IdentifiersTried)
	}
	if searcher.calls != 1 {
		t.Fatalf("expected no further searches after cancellation, got %d", searcher.calls)
	}
}

// cancelingSearcher cancels the run while its first attempt is in flight.
type cancelingSearcher struct {
	cancel context.CancelFunc
	calls  int
}

func (s *cancelingSearcher) Search(ctx context.Context, identifier string) (catalog.Outcome, error) {
	s.calls++
	s.cancel()
	return catalog.Outcome{}, services.Wrap(services.ErrTransient, "catalog", "search", "interrupted", ctx.Err())
}

func TestDefaultBackoffIsBounded(t *testing.T) {
	if got := DefaultBackoff(0); got != time.Second {
		t.Fatalf("DefaultBackoff(0) = %v", got)
	}
	if got := DefaultBackoff(4); got != 16*time.Second {
		t.Fatalf("DefaultBackoff(4) = %v", got)
	}
	if got := DefaultBackoff(40); got != 30*time.Second {
		t.Fatalf("DefaultBackoff(40) = %v", got)
	}
}

func TestBackoffHonorsConfiguredBounds(t *testing.T) {
	backoff := Backoff(2*time.Second, 5*time.Second)
	if got := backoff(0); got != 2*time.Second {
		t.Fatalf("backoff(0) = %v", got)
	}
	if got := backoff(1); got != 4*time.Second {
		t.Fatalf("backoff(1) = %v", got)
	}
	if got := backoff(2); got != 5*time.Second {
		t.Fatalf("backoff(2) = %v", got)
	}
	if got := Backoff(0, 0)(0); got != time.Second {
		t.Fatalf("zero bounds should use defaults, got %v", got)
	}
}

func TestResolveEveryBookGetsExactlyOneTerminalResult(t *testing.T) {
	searcher := &scriptedSearcher{script: map[string][]scriptStep{
		"9780385545969": {{catKey: "1"}},
	}}
	r := New(searcher, DefaultPolicy(), WithSleep(noSleep))

	books := []nyt.Book{
		testBook("9780385545969"),
		testBook("9790000000001"),
		testBook("garbage"),
	}
	terminal := map[Reason]bool{
		ReasonFound: true, ReasonNoMatch: true, ReasonExhausted: true,
		ReasonInvalidISBN: true, ReasonCanceled: true,
	}
	for _, book := range books {
		result := r.Resolve(context.Background(), book)
		if !terminal[result.Reason] {
			t.Fatalf("non-terminal reason %q for %+v", result.Reason, book)
		}
		if result.Found != (result.Reason == ReasonFound) {
			t.Fatalf("found flag inconsistent with reason: %+v", result)
		}
	}
}
