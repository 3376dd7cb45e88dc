package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/dbscrub/pkg/executor"
	"github.com/codeready-toolchain/dbscrub/pkg/runner"
)

func newSanitizeCmd(a *app) *cobra.Command {
	var (
		only            []string
		dryRun          bool
		continueOnError bool
		noPrune         bool
		strict          bool
		strictSet       bool
	)

	cmd := &cobra.Command{
		Use:   "sanitize",
		Short: "Run the sanitizers against the primary database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			opts := executor.Options{
				Strict:          a.cfg.Sanitize.StrictEnabled(),
				DryRun:          a.cfg.Sanitize.DryRun || dryRun,
				ContinueOnError: a.cfg.Sanitize.ContinueOnError || continueOnError,
				BatchSize:       a.cfg.Sanitize.BatchSize,
				DisablePrune:    a.cfg.Sanitize.DisablePrune || noPrune,
			}
			if strictSet = cmd.Flags().Changed("strict"); strictSet {
				opts.Strict = strict
			}

			// --no-prune disables the global pass too, not just the
			// entity-level prune steps.
			r, err := a.buildRunnerWithPrune(client, !opts.DisablePrune)
			if err != nil {
				return err
			}

			summary, err := r.Run(ctx, runner.Request{Names: only, Options: opts})
			if summary != nil {
				printSummary(cmd, summary)
			}
			return err
		},
	}

	cmd.Flags().StringSliceVar(&only, "only", nil, "run only these sanitizers (by name)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute without persisting")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "accumulate per-row errors instead of aborting")
	cmd.Flags().BoolVar(&noPrune, "no-prune", false, "skip all pruning")
	cmd.Flags().BoolVar(&strict, "strict", true, "fail on columns without a declaration")
	return cmd
}

const timeUnit = time.Millisecond

func printSummary(cmd *cobra.Command, s *runner.Summary) {
	out := cmd.OutOrStdout()
	for _, e := range s.Entities {
		fmt.Fprintf(out, "%-20s processed=%d sanitized=%d removed=%d pruned=%d errors=%d (%s)\n",
			e.Entity, e.Processed, e.Sanitized, e.Removed, e.Pruned, e.Errored, e.Duration().Round(timeUnit))
	}
	mode := "run"
	if s.DryRun {
		mode = "dry-run"
	}
	fmt.Fprintf(out, "%s %s: %d processed, %d sanitized, %d removed, %d pruned in %s\n",
		mode, s.RunID, s.Processed, s.Sanitized, s.Removed, s.Pruned, s.Duration().Round(timeUnit))
}
