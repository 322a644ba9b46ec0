package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"catkeygen/internal/config"
	"catkeygen/internal/notifications"
	"catkeygen/internal/nyt"
	"catkeygen/internal/resolver"
)

type fakeLists struct {
	books map[string][]nyt.Book
	errs  map[string]error
	calls []string
}

func (f *fakeLists) CurrentList(_ context.Context, listName string) ([]nyt.Book, error) {
	f.calls = append(f.calls, listName)
	if err, ok := f.errs[listName]; ok {
		return nil, err
	}
	return f.books[listName], nil
}

type scriptedResolver struct {
	results map[string]resolver.Result
	resolved []string
}

func (s *scriptedResolver) Resolve(_ context.Context, book nyt.Book) resolver.Result {
	s.resolved = append(s.resolved, book.ISBN13)
	if result, ok := s.results[book.ISBN13]; ok {
		result.Book = book
		return result
	}
	return resolver.Result{Book: book, Reason: resolver.ReasonNoMatch, IdentifiersTried: []string{book.ISBN13}}
}

type memoryHistory struct {
	began    bool
	finished bool
	interrupted bool
	outcomes []resolver.Result
	totals   [2]int
}

func (m *memoryHistory) BeginRun(_ context.Context, runID string, _ []string, _ time.Time) error {
	if runID == "" {
		return errors.New("missing run id")
	}
	m.began = true
	return nil
}

func (m *memoryHistory) RecordOutcome(_ context.Context, _ string, _ int, result resolver.Result) error {
	m.outcomes = append(m.outcomes, result)
	return nil
}

func (m *memoryHistory) FinishRun(_ context.Context, _ string, totalFound, totalNotFound int, interrupted bool, _ time.Time) error {
	m.finished = true
	m.interrupted = interrupted
	m.totals = [2]int{totalFound, totalNotFound}
	return nil
}

type captureNotifier struct {
	reports []notifications.Report
	err     error
}

func (c *captureNotifier) SendRunReport(_ context.Context, report notifications.Report) error {
	c.reports = append(c.reports, report)
	return c.err
}

func (c *captureNotifier) TestNotification(context.Context) error { return nil }

func testConfig(t *testing.T, lists ...string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.NYT.ListNames = lists
	cfg.Catalog.SearchPauseMS = 0
	return &cfg
}

func TestRunResolvesAndWritesReports(t *testing.T) {
	cfg := testConfig(t, "hardcover-fiction", "hardcover-nonfiction", "paperback-trade-fiction")

	lists := &fakeLists{
		books: map[string][]nyt.Book{
			"hardcover-fiction": {
				{ListName: "hardcover-fiction", ISBN13: "9780306406157", Title: "First", Author: "A. Writer"},
				{ListName: "hardcover-fiction", ISBN13: "9780140449136", Title: "Second", Author: "B. Writer"},
			},
			"paperback-trade-fiction": {
				{ListName: "paperback-trade-fiction", ISBN13: "9780385545969", Title: "Third", Author: "C. Writer"},
			},
		},
		errs: map[string]error{
			"hardcover-nonfiction": errors.New("upstream unavailable"),
		},
	}
	resolve := &scriptedResolver{
		results: map[string]resolver.Result{
			"9780306406157": {CatKey: "291337", Found: true, Reason: resolver.ReasonFound, IdentifiersTried: []string{"9780306406157"}},
			"9780385545969": {CatKey: "409125", Found: true, Reason: resolver.ReasonFound, IdentifiersTried: []string{"9780385545969"}},
		},
	}
	history := &memoryHistory{}
	notifier := &captureNotifier{}

	outcome, err := Run(context.Background(), Options{
		Config:   cfg,
		Lists:    lists,
		Resolver: resolve,
		History:  history,
		Notifier: notifier,
		Now:      func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if outcome.Interrupted {
		t.Error("run should not be interrupted")
	}
	if outcome.TotalFound != 2 || outcome.TotalNotFound != 1 {
		t.Errorf("expected totals 2/1, got %d/%d", outcome.TotalFound, outcome.TotalNotFound)
	}
	if len(outcome.Lists) != 2 {
		t.Fatalf("expected 2 list reports, got %d", len(outcome.Lists))
	}
	if len(lists.calls) != 3 {
		t.Errorf("expected all 3 lists fetched, got %v", lists.calls)
	}
	if len(resolve.resolved) != 3 {
		t.Errorf("expected 3 books resolved, got %v", resolve.resolved)
	}

	data, err := os.ReadFile(outcome.FoundReportPath)
	if err != nil {
		t.Fatalf("read found report: %v", err)
	}
	if !strings.Contains(string(data), "291337") || !strings.Contains(string(data), "All CatKeys Combined:") {
		t.Errorf("unexpected found report:\n%s", data)
	}
	notFound, err := os.ReadFile(outcome.NotFoundReportPath)
	if err != nil {
		t.Fatalf("read not-found report: %v", err)
	}
	if !strings.Contains(string(notFound), "9780140449136") {
		t.Errorf("unexpected not-found report:\n%s", notFound)
	}

	if !history.began || !history.finished {
		t.Error("history lifecycle not recorded")
	}
	if len(history.outcomes) != 3 {
		t.Errorf("expected 3 recorded outcomes, got %d", len(history.outcomes))
	}
	if history.totals != [2]int{2, 1} {
		t.Errorf("unexpected history totals: %v", history.totals)
	}

	if len(notifier.reports) != 1 {
		t.Fatalf("expected 1 report email, got %d", len(notifier.reports))
	}
	sent := notifier.reports[0]
	if !strings.Contains(sent.Subject, "2026-03-14") {
		t.Errorf("unexpected subject: %s", sent.Subject)
	}
	if len(sent.Attachments) != 2 {
		t.Errorf("expected both artifacts attached, got %v", sent.Attachments)
	}
}

func TestRunFlushesPartialResultsOnCancel(t *testing.T) {
	cfg := testConfig(t, "hardcover-fiction")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lists := &fakeLists{
		books: map[string][]nyt.Book{
			"hardcover-fiction": {
				{ListName: "hardcover-fiction", ISBN13: "9780306406157", Title: "First", Author: "A. Writer"},
				{ListName: "hardcover-fiction", ISBN13: "9780140449136", Title: "Second", Author: "B. Writer"},
				{ListName: "hardcover-fiction", ISBN13: "9780385545969", Title: "Third", Author: "C. Writer"},
			},
		},
	}
	resolve := &cancelAfterResolver{cancel: cancel, after: 2}
	history := &memoryHistory{}

	outcome, err := Run(ctx, Options{
		Config:   cfg,
		Lists:    lists,
		Resolver: resolve,
		History:  history,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !outcome.Interrupted {
		t.Error("run should be marked interrupted")
	}
	if outcome.TotalFound != 1 {
		t.Errorf("expected 1 found before cancel, got %d", outcome.TotalFound)
	}
	if len(history.outcomes) != 2 {
		t.Errorf("expected 2 recorded outcomes, got %d", len(history.outcomes))
	}
	if !history.finished || !history.interrupted {
		t.Error("interrupted run should still be finalized in history")
	}
	if outcome.FoundReportPath == "" {
		t.Error("partial found report should still be written")
	}
}

// cancelAfterResolver resolves books until the configured count, then
// cancels the run context and reports the last book as canceled.
type cancelAfterResolver struct {
	cancel context.CancelFunc
	after  int
	count  int
}

func (c *cancelAfterResolver) Resolve(_ context.Context, book nyt.Book) resolver.Result {
	c.count++
	if c.count < c.after {
		return resolver.Result{
			Book:             book,
			CatKey:           "100001",
			Found:            true,
			Reason:           resolver.ReasonFound,
			IdentifiersTried: []string{book.ISBN13},
		}
	}
	c.cancel()
	return resolver.Result{Book: book, Reason: resolver.ReasonCanceled, IdentifiersTried: []string{book.ISBN13}}
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	cfg := testConfig(t, "hardcover-fiction")
	lockPath := filepath.Join(t.TempDir(), "catkeygen.lock")

	held := flock.New(lockPath)
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("could not take test lock: ok=%v err=%v", ok, err)
	}
	defer held.Unlock()

	_, err = Run(context.Background(), Options{
		Config:   cfg,
		Lists:    &fakeLists{},
		Resolver: &scriptedResolver{},
		LockPath: lockPath,
	})
	if err == nil {
		t.Fatal("expected error while lock is held")
	}
	if !strings.Contains(err.Error(), "already in progress") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunPacesCatalogSubmissions(t *testing.T) {
	cfg := testConfig(t, "hardcover-fiction")
	cfg.Catalog.SearchPauseMS = 500

	lists := &fakeLists{
		books: map[string][]nyt.Book{
			"hardcover-fiction": {
				{ListName: "hardcover-fiction", ISBN13: "9780306406157", Title: "First", Author: "A. Writer"},
				{ListName: "hardcover-fiction", ISBN13: "9780140449136", Title: "Second", Author: "B. Writer"},
			},
		},
	}
	var pauses []time.Duration
	_, err := Run(context.Background(), Options{
		Config:   cfg,
		Lists:    lists,
		Resolver: &scriptedResolver{},
		Sleep: func(_ context.Context, d time.Duration) error {
			pauses = append(pauses, d)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(pauses) != 2 {
		t.Fatalf("expected a pause after each book, got %d", len(pauses))
	}
	for _, pause := range pauses {
		if pause != 500*time.Millisecond {
			t.Errorf("expected 500ms pause, got %v", pause)
		}
	}
}

func TestRunRequiresDependencies(t *testing.T) {
	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for missing dependencies")
	}
}
