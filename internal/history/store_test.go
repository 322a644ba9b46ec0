package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"catkeygen/internal/nyt"
	"catkeygen/internal/resolver"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	if err := store.BeginRun(ctx, "run-1", []string{"hardcover-fiction", "hardcover-nonfiction"}, started); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	results := []resolver.Result{
		{
			Book:             nyt.Book{ListName: "hardcover-fiction", ISBN13: "9780306406157", Title: "The Example", Author: "A. Writer"},
			CatKey:           "291337",
			Found:            true,
			Reason:           resolver.ReasonFound,
			IdentifiersTried: []string{"9780306406157"},
		},
		{
			Book:             nyt.Book{ListName: "hardcover-fiction", ISBN13: "9780140449136", Title: "Missing Book", Author: "B. Writer"},
			Found:            false,
			Reason:           resolver.ReasonNoMatch,
			IdentifiersTried: []string{"9780140449136", "0140449132"},
		},
	}
	for i, result := range results {
		if err := store.RecordOutcome(ctx, "run-1", i, result); err != nil {
			t.Fatalf("RecordOutcome %d failed: %v", i, err)
		}
	}

	finished := started.Add(4 * time.Minute)
	if err := store.FinishRun(ctx, "run-1", 1, 1, false, finished); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 5)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != "run-1" {
		t.Errorf("expected run ID run-1, got %s", run.ID)
	}
	if run.TotalFound != 1 || run.TotalNotFound != 1 {
		t.Errorf("expected totals 1/1, got %d/%d", run.TotalFound, run.TotalNotFound)
	}
	if run.Interrupted {
		t.Error("run should not be interrupted")
	}
	if len(run.Lists) != 2 || run.Lists[0] != "hardcover-fiction" {
		t.Errorf("unexpected lists: %v", run.Lists)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("expected started %v, got %v", started, run.StartedAt)
	}
	if !run.FinishedAt.Equal(finished) {
		t.Errorf("expected finished %v, got %v", finished, run.FinishedAt)
	}

	outcomes, err := store.RunOutcomes(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunOutcomes failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(outcomes))
	}
	if outcomes[0].CatKey != "291337" || !outcomes[0].Found {
		t.Errorf("unexpected first outcome: %+v", outcomes[0])
	}
	if outcomes[1].CatKey != "" || outcomes[1].Found {
		t.Errorf("unexpected second outcome: %+v", outcomes[1])
	}
	if len(outcomes[1].IdentifiersTried) != 2 || outcomes[1].IdentifiersTried[1] != "0140449132" {
		t.Errorf("unexpected identifiers tried: %v", outcomes[1].IdentifiersTried)
	}
}

func TestRecentRunsOrdersNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		if err := store.BeginRun(ctx, id, []string{"hardcover-fiction"}, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("BeginRun %s failed: %v", id, err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Errorf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	first, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if err := first.BeginRun(context.Background(), "run-1", []string{"hardcover-fiction"}, time.Now()); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer second.Close()

	runs, err := second.RecentRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected persisted run, got %d runs", len(runs))
	}
}
