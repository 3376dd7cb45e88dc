package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/dbscrub/pkg/schema"
)

func newLintCmd(a *app) *cobra.Command {
	var suggest bool

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check sanitizer coverage against the live schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()
			cat := catalogFor(client)

			var total int
			for _, s := range a.registry.All() {
				issues, err := s.Lint(ctx, cat)
				if err != nil {
					return err
				}
				for _, issue := range issues {
					fmt.Fprintln(cmd.OutOrStdout(), issue.String())
					total++
				}
			}

			if suggest {
				candidates, err := schema.PruneCandidates(ctx, cat, a.registry.CoveredTables(), "")
				if err != nil {
					return err
				}
				for _, c := range candidates {
					line := fmt.Sprintf("suggestion: %s has %s but no sanitizer; consider a prune declaration", c.Table, c.Column)
					if len(c.Dependents) > 0 {
						line += " (dependents: " + strings.Join(c.Dependents, ", ") + ")"
					}
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
			}

			if total > 0 {
				return fmt.Errorf("lint found %d issues", total)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "No issues found")
			return nil
		},
	}

	cmd.Flags().BoolVar(&suggest, "suggest", false, "suggest prune candidates for uncovered tables")
	return cmd
}
