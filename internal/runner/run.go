package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"catkeygen/internal/config"
	"catkeygen/internal/logging"
	"catkeygen/internal/notifications"
	"catkeygen/internal/nyt"
	"catkeygen/internal/report"
	"catkeygen/internal/resolver"
)

// ListSource supplies the current books for one bestseller list.
type ListSource interface {
	CurrentList(ctx context.Context, listName string) ([]nyt.Book, error)
}

// Resolver resolves one book to a terminal result.
type Resolver interface {
	Resolve(ctx context.Context, book nyt.Book) resolver.Result
}

// History records run outcomes. A nil History disables recording.
type History interface {
	BeginRun(ctx context.Context, runID string, lists []string, startedAt time.Time) error
	RecordOutcome(ctx context.Context, runID string, position int, result resolver.Result) error
	FinishRun(ctx context.Context, runID string, totalFound, totalNotFound int, interrupted bool, finishedAt time.Time) error
}

// Options wires the pipeline dependencies.
type Options struct {
	Config   *config.Config
	Lists    ListSource
	Resolver Resolver
	Notifier notifications.Service
	History  History
	Logger   *slog.Logger

	// Now stamps reports and run records. Nil uses time.Now.
	Now func() time.Time
	// Sleep paces catalog submissions between books. Nil uses a
	// context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// LockPath overrides the single-instance lock file location.
	LockPath string
}

// Outcome summarizes one completed run.
type Outcome struct {
	RunID             string
	Lists             []report.ListReport
	Combined          []string
	TotalFound        int
	TotalNotFound     int
	FoundReportPath   string
	NotFoundReportPath string
	Interrupted       bool
	Duration          time.Duration
}

// Run fetches every configured bestseller list, resolves each book to a
// CatKey, and writes the found and not-found reports. Cancellation is
// honored between books: already classified results are still reported
// and the partial run is marked interrupted.
func Run(ctx context.Context, opts Options) (*Outcome, error) {
	if opts.Config == nil || opts.Lists == nil || opts.Resolver == nil {
		return nil, errors.New("runner requires config, list source, and resolver")
	}
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	lockPath := opts.LockPath
	if lockPath == "" {
		lockPath = filepath.Join(cfg.Paths.LogDir, "catkeygen.lock")
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock directory: %w", err)
	}
	lock := flock.New(lockPath)
	held, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !held {
		return nil, errors.New("another catkeygen run is already in progress")
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			logger.Warn("failed to release run lock", "lock", lockPath, "error", unlockErr)
		}
	}()

	runID := uuid.NewString()
	startedAt := now()
	logger.Info("run started", "run_id", runID, "lists", len(cfg.NYT.ListNames))

	if opts.History != nil {
		if err := opts.History.BeginRun(ctx, runID, cfg.NYT.ListNames, startedAt); err != nil {
			logger.Warn("failed to record run start", "run_id", runID, "error", err)
			opts.History = nil
		}
	}

	pause := time.Duration(cfg.Catalog.SearchPauseMS) * time.Millisecond
	aggregator := report.NewAggregator()
	interrupted := false
	position := 0

lists:
	for _, listName := range cfg.NYT.ListNames {
		if ctx.Err() != nil {
			interrupted = true
			break
		}

		books, err := opts.Lists.CurrentList(ctx, listName)
		if err != nil {
			if ctx.Err() != nil {
				interrupted = true
				break
			}
			logger.Warn("skipping list after fetch failure", "list", listName, "error", err)
			continue
		}
		logger.Info("fetched bestseller list", "list", listName, "books", len(books))

		for _, book := range books {
			result := opts.Resolver.Resolve(ctx, book)
			aggregator.Add(result)
			if opts.History != nil {
				if err := opts.History.RecordOutcome(ctx, runID, position, result); err != nil {
					logger.Warn("failed to record outcome", "run_id", runID, "isbn", book.ISBN13, "error", err)
				}
			}
			position++

			if result.Reason == resolver.ReasonCanceled || ctx.Err() != nil {
				interrupted = true
				break lists
			}
			if pause > 0 {
				if err := sleep(ctx, pause); err != nil {
					interrupted = true
					break lists
				}
			}
		}
	}

	finishedAt := now()
	outcome := &Outcome{
		RunID:         runID,
		Lists:         aggregator.Lists(),
		Combined:      aggregator.Combined(),
		TotalFound:    aggregator.TotalFound(),
		TotalNotFound: aggregator.TotalNotFound(),
		Interrupted:   interrupted,
		Duration:      finishedAt.Sub(startedAt),
	}

	writer := report.NewWriter(cfg.Paths.OutputDir)
	foundPath, err := writer.WriteFound(outcome.Lists, outcome.Combined, finishedAt)
	if err != nil {
		return nil, fmt.Errorf("write found report: %w", err)
	}
	outcome.FoundReportPath = foundPath
	notFoundPath, err := writer.WriteNotFound(outcome.Lists, finishedAt)
	if err != nil {
		return nil, fmt.Errorf("write not-found report: %w", err)
	}
	outcome.NotFoundReportPath = notFoundPath

	if opts.History != nil {
		recordCtx := context.WithoutCancel(ctx)
		if err := opts.History.FinishRun(recordCtx, runID, outcome.TotalFound, outcome.TotalNotFound, interrupted, finishedAt); err != nil {
			logger.Warn("failed to record run completion", "run_id", runID, "error", err)
		}
	}

	if opts.Notifier != nil {
		sendReport(context.WithoutCancel(ctx), opts.Notifier, outcome, finishedAt, logger)
	}

	logger.Info("run finished",
		"run_id", runID,
		"found", outcome.TotalFound,
		"not_found", outcome.TotalNotFound,
		"interrupted", interrupted,
		"duration", outcome.Duration.Round(time.Millisecond))
	return outcome, nil
}

func sendReport(ctx context.Context, notifier notifications.Service, outcome *Outcome, generatedAt time.Time, logger *slog.Logger) {
	subject := fmt.Sprintf("NYT Bestsellers CatKey Results - %s", generatedAt.Format("2006-01-02"))
	if outcome.Interrupted {
		subject += " (interrupted)"
	}

	var attachments []string
	if outcome.FoundReportPath != "" {
		attachments = append(attachments, outcome.FoundReportPath)
	}
	if outcome.NotFoundReportPath != "" {
		attachments = append(attachments, outcome.NotFoundReportPath)
	}

	err := notifier.SendRunReport(ctx, notifications.Report{
		Subject:     subject,
		Body:        report.Summary(outcome.Lists, outcome.Combined, generatedAt),
		Attachments: attachments,
	})
	if err != nil {
		logger.Warn("failed to send report email", "run_id", outcome.RunID, "error", err)
		return
	}
	logger.Info("report email sent", "run_id", outcome.RunID, "attachments", len(attachments))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
