package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/dbscrub/pkg/database"
	"github.com/codeready-toolchain/dbscrub/pkg/validate"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Scan the primary database for leftover PII",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client, err := a.open(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = client.Close() }()

			err = a.newValidator(client).Check(ctx)
			var leaks *validate.LeakError
			if errors.As(err, &leaks) {
				for _, l := range leaks.Leaks {
					fmt.Fprintln(cmd.OutOrStdout(), l.String())
				}
				return fmt.Errorf("found %d leaks", len(leaks.Leaks))
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "No leaks found")
			return nil
		},
	}
}

func (a *app) newValidator(c *database.Client) *validate.Validator {
	return validate.New(c.DB(), c.Dialect(), catalogFor(c), a.registry, validate.Config{
		AllowedDomains: a.cfg.Validation.AllowedDomains,
		TokenColumns:   a.cfg.Validation.TokenColumns,
	})
}
