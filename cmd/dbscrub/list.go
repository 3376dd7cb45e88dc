package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/dbscrub/pkg/rules"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered sanitizers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range a.registry.Names() {
				s, _ := a.registry.ByName(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s table=%s %s\n", name, s.Table(), describe(s))
			}
			return nil
		},
	}
}

func describe(s *rules.Sanitizer) string {
	var parts []string
	if bulk := s.Bulk(); bulk != nil {
		parts = append(parts, "bulk="+bulk.Kind.String())
	}
	if cols := s.ScrubbedColumns(); len(cols) > 0 {
		parts = append(parts, "scrub="+strings.Join(cols, ","))
	}
	if cols := s.KeptColumns(); len(cols) > 0 {
		parts = append(parts, "keep="+strings.Join(cols, ","))
	}
	if s.PruneScope() != nil {
		parts = append(parts, "prune=yes")
	}
	return strings.Join(parts, " ")
}
