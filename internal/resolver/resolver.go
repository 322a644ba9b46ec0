package resolver

import (
	"context"
	"log/slog"
	"time"

	"catkeygen/internal/catalog"
	"catkeygen/internal/isbn"
	"catkeygen/internal/nyt"
)

// Reason records how a book reached its terminal state. Reports treat
// everything except ReasonFound identically; the distinction is kept for
// history rows and debug output.
type Reason string

const (
	ReasonFound       Reason = "found"
	ReasonNoMatch     Reason = "no_match"
	ReasonExhausted   Reason = "retries_exhausted"
	ReasonInvalidISBN Reason = "invalid_isbn"
	ReasonCanceled    Reason = "canceled"
)

// Result is the single terminal outcome produced for one book.
type Result struct {
	Book   nyt.Book
	CatKey string
	Found  bool
	// IdentifiersTried lists every identifier actually submitted to the
	// catalog, in submission order.
	IdentifiersTried []string
	Reason           Reason
}

// Policy bounds the per-identifier retry loop. Retries apply to one
// identifier at a time; the ISBN-10 fallback restarts the budget.
type Policy struct {
	// MaxRetries is the number of additional attempts after the first,
	// so an identifier is submitted at most MaxRetries+1 times.
	MaxRetries int
	// Backoff returns the wait before retry number attempt+1. Nil uses
	// DefaultBackoff.
	Backoff func(attempt int) time.Duration
}

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// DefaultPolicy returns the retry policy used when none is configured.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: defaultMaxRetries, Backoff: DefaultBackoff}
}

// DefaultBackoff doubles the initial delay per retry and caps the result.
func DefaultBackoff(attempt int) time.Duration {
	return Backoff(defaultInitialBackoff, defaultMaxBackoff)(attempt)
}

// Backoff returns a doubling backoff schedule bounded by max.
// Non-positive bounds fall back to the defaults.
func Backoff(initial, max time.Duration) func(attempt int) time.Duration {
	if initial <= 0 {
		initial = defaultInitialBackoff
	}
	if max <= 0 {
		max = defaultMaxBackoff
	}
	return func(attempt int) time.Duration {
		delay := initial
		for i := 0; i < attempt; i++ {
			delay *= 2
			if delay >= max {
				return max
			}
		}
		if delay > max {
			return max
		}
		return delay
	}
}

// Resolver drives one book at a time to a terminal Found/NotFound state.
type Resolver struct {
	searcher catalog.Searcher
	policy   Policy
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger attaches a logger for per-attempt debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSleep overrides the backoff wait, used by tests to observe delays
// without incurring them.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Resolver) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// New creates a Resolver around the supplied search capability.
func New(searcher catalog.Searcher, policy Policy, opts ...Option) *Resolver {
	if policy.Backoff == nil {
		policy.Backoff = DefaultBackoff
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	r := &Resolver{
		searcher: searcher,
		policy:   policy,
		logger:   slog.New(slog.DiscardHandler),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type attemptState int

const (
	attemptFound attemptState = iota
	attemptNoMatch
	attemptExhausted
	attemptCanceled
)

// Resolve runs the book through the retry/fallback sequence and always
// returns a terminal result. Books with an invalid ISBN-13 resolve as
// not found without consuming a search attempt. The ISBN-10 fallback
// fires only for convertible "978" ISBNs and only after the ISBN-13
// attempts are exhausted.
func (r *Resolver) Resolve(ctx context.Context, book nyt.Book) Result {
	result := Result{Book: book}

	if !isbn.IsValidISBN13(book.ISBN13) {
		r.logger.Debug("skipping search for malformed isbn13",
			"list", book.ListName, "isbn13", book.ISBN13, "title", book.Title)
		result.Reason = ReasonInvalidISBN
		return result
	}

	identifiers := []string{book.ISBN13}
	if isbn10, ok := isbn.ToISBN10(book.ISBN13); ok {
		identifiers = append(identifiers, isbn10)
	}

	for _, identifier := range identifiers {
		if ctx.Err() != nil {
			result.Reason = ReasonCanceled
			return result
		}
		result.IdentifiersTried = append(result.IdentifiersTried, identifier)

		catKey, state := r.tryIdentifier(ctx, book, identifier)
		switch state {
		case attemptFound:
			result.CatKey = catKey
			result.Found = true
			result.Reason = ReasonFound
			return result
		case attemptCanceled:
			result.Reason = ReasonCanceled
			return result
		case attemptNoMatch:
			result.Reason = ReasonNoMatch
		case attemptExhausted:
			result.Reason = ReasonExhausted
		}
	}
	return result
}

// tryIdentifier submits one identifier up to MaxRetries+1 times. A
// deterministic miss ends the loop immediately; only transient failures
// consume the retry budget.
func (r *Resolver) tryIdentifier(ctx context.Context, book nyt.Book, identifier string) (string, attemptState) {
	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", attemptCanceled
		}

		outcome, err := r.searcher.Search(ctx, identifier)
		if err != nil {
			r.logger.Debug("search attempt failed",
				"list", book.ListName, "identifier", identifier,
				"attempt", attempt+1, "error", err)
			if ctx.Err() != nil {
				return "", attemptCanceled
			}
			if attempt < r.policy.MaxRetries {
				if sleepErr := r.sleep(ctx, r.policy.Backoff(attempt)); sleepErr != nil {
					return "", attemptCanceled
				}
			}
			continue
		}

		r.logger.Debug("search attempt",
			"list", book.ListName, "identifier", identifier,
			"attempt", attempt+1, "query", outcome.Query, "catkey", outcome.CatKey)
		if outcome.Found() {
			return outcome.CatKey, attemptFound
		}
		return "", attemptNoMatch
	}
	return "", attemptExhausted
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
