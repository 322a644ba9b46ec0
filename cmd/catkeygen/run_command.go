package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"catkeygen/internal/catalog"
	"catkeygen/internal/config"
	"catkeygen/internal/history"
	"catkeygen/internal/logging"
	"catkeygen/internal/notifications"
	"catkeygen/internal/nyt"
	"catkeygen/internal/report"
	"catkeygen/internal/resolver"
	"catkeygen/internal/runner"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Fetch the configured bestseller lists and resolve CatKeys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			lists, err := nyt.New(cfg.NYT.APIKey, cfg.NYT.BaseURL,
				nyt.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.NYT.RequestTimeout) * time.Second}),
				nyt.WithMaxRetries(cfg.NYT.MaxRetries),
			)
			if err != nil {
				return fmt.Errorf("init bestseller client: %w", err)
			}

			searcher, err := catalog.New(cfg.Catalog.BaseURL,
				catalog.WithPageTimeout(time.Duration(cfg.Catalog.PageTimeout)*time.Second),
			)
			if err != nil {
				return fmt.Errorf("init catalog client: %w", err)
			}

			resolve := resolver.New(searcher, resolverPolicy(cfg), resolver.WithLogger(logger))

			var recorder runner.History
			if cfg.History.Enabled && cfg.History.Path != "" {
				store, openErr := history.Open(cfg.History.Path)
				if openErr != nil {
					logger.Warn("history disabled for this run", "path", cfg.History.Path, "error", openErr)
				} else {
					defer store.Close()
					recorder = store
				}
			}

			outcome, err := runner.Run(signalCtx, runner.Options{
				Config:   cfg,
				Lists:    lists,
				Resolver: resolve,
				Notifier: notifications.NewService(cfg),
				History:  recorder,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, runSummaryTable(outcome))
			fmt.Fprintf(out, "Combined CatKeys: %d\n", len(outcome.Combined))
			if outcome.FoundReportPath != "" {
				fmt.Fprintf(out, "Found report: %s\n", outcome.FoundReportPath)
			}
			if outcome.NotFoundReportPath != "" {
				fmt.Fprintf(out, "Not-found report: %s\n", outcome.NotFoundReportPath)
			}
			if outcome.Interrupted {
				fmt.Fprintln(out, "Run was interrupted; reports cover the books processed before the stop.")
			}
			return nil
		},
	}
}

func resolverPolicy(cfg *config.Config) resolver.Policy {
	return resolver.Policy{
		MaxRetries: cfg.Catalog.MaxRetries,
		Backoff: resolver.Backoff(
			time.Duration(cfg.Catalog.InitialBackoff)*time.Second,
			time.Duration(cfg.Catalog.MaxBackoff)*time.Second,
		),
	}
}

func runSummaryTable(outcome *runner.Outcome) string {
	rows := make([][]string, 0, len(outcome.Lists)+1)
	for _, list := range outcome.Lists {
		rows = append(rows, []string{
			report.DisplayName(list.ListName),
			strconv.Itoa(len(list.Found)),
			strconv.Itoa(len(list.NotFound)),
		})
	}
	rows = append(rows, []string{
		"Total",
		strconv.Itoa(outcome.TotalFound),
		strconv.Itoa(outcome.TotalNotFound),
	})
	return renderTable([]string{"List", "Found", "Not Found"}, rows, 1, 2)
}
