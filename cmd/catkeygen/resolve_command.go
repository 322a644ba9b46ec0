package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"catkeygen/internal/catalog"
	"catkeygen/internal/logging"
	"catkeygen/internal/nyt"
	"catkeygen/internal/resolver"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <isbn13>",
		Short: "Resolve a single ISBN-13 against the library catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			searcher, err := catalog.New(cfg.Catalog.BaseURL,
				catalog.WithPageTimeout(time.Duration(cfg.Catalog.PageTimeout)*time.Second),
			)
			if err != nil {
				return fmt.Errorf("init catalog client: %w", err)
			}

			resolve := resolver.New(searcher, resolverPolicy(cfg), resolver.WithLogger(logger))
			result := resolve.Resolve(cmd.Context(), nyt.Book{ISBN13: strings.TrimSpace(args[0])})

			out := cmd.OutOrStdout()
			if result.Found {
				fmt.Fprintf(out, "CatKey: %s\n", result.CatKey)
			} else {
				fmt.Fprintf(out, "No CatKey found (%s)\n", result.Reason)
			}
			if len(result.IdentifiersTried) > 0 {
				fmt.Fprintf(out, "Identifiers tried: %s\n", strings.Join(result.IdentifiersTried, ", "))
			}
			if !result.Found {
				return fmt.Errorf("no match for %s", args[0])
			}
			return nil
		},
	}
}
