package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/dbscrub/pkg/database"
	"github.com/codeready-toolchain/dbscrub/pkg/safecopy"
)

func newDumpCmd(a *app) *cobra.Command {
	var (
		source  string
		output  string
		plain   bool
		keepTmp bool
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Produce a scrubbed dump via an ephemeral temporary database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			src := firstNonEmpty(source, a.cfg.SafeCopy.SourceURL, a.cfg.Database.URL)
			out := firstNonEmpty(output, a.cfg.SafeCopy.ExportPath)
			if out == "" {
				return fmt.Errorf("an output path is required (--output or DBSCRUB_EXPORT_PATH)")
			}

			tmpURL, err := tempTargetURL(src)
			if err != nil {
				return err
			}

			provisioner := &safecopy.PGProvisioner{}
			w := safecopy.New(safecopy.Config{
				SourceURL:  src,
				TargetURL:  tmpURL,
				PrimaryURL: a.cfg.Database.URL,
				// The target is a throwaway this command just named; no
				// operator confirmation needed.
				Confirm:    safecopy.ConfirmYes,
				ExportPath: out,
			}, safecopy.Deps{
				Provisioner: provisioner,
				Copier:      safecopy.PGDumpCopier{},
				Exporter:    safecopy.PGDumpExporter{Plain: plain},
				Scrub:       a.scrubTarget,
				Validate: func(ctx context.Context, target *database.Client) error {
					return a.newValidator(target).Check(ctx)
				},
			})

			runErr := w.Run(ctx)
			if !keepTmp {
				if err := dropDatabase(ctx, tmpURL); err != nil {
					slog.Warn("Failed to drop temporary database",
						"database", database.ElideCredentials(tmpURL), "error", err)
				}
			}
			if runErr != nil {
				return runErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scrubbed dump written to %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "source database URL (defaults to the primary database)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "dump file path")
	cmd.Flags().BoolVar(&plain, "plain", false, "write plain SQL instead of pg_dump custom format")
	cmd.Flags().BoolVar(&keepTmp, "keep-temp", false, "keep the temporary database for inspection")
	return cmd
}

// tempTargetURL names the throwaway database next to the source.
func tempTargetURL(sourceURL string) (string, error) {
	name, err := database.DatabaseName(sourceURL)
	if err != nil {
		return "", err
	}
	return database.ReplaceDatabase(sourceURL, name+"_dbscrub_tmp")
}

// dropDatabase removes the temporary database via the maintenance connection.
func dropDatabase(ctx context.Context, dbURL string) error {
	name, err := database.DatabaseName(dbURL)
	if err != nil {
		return err
	}
	adminURL, err := database.ReplaceDatabase(dbURL, "postgres")
	if err != nil {
		return err
	}
	return database.WithConnection(ctx, adminURL, func(c *database.Client) error {
		_, err := c.DB().ExecContext(ctx, "DROP DATABASE IF EXISTS "+c.Dialect().QuoteIdent(name))
		return err
	})
}
