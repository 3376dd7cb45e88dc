package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/dbscrub/pkg/database"
	"github.com/codeready-toolchain/dbscrub/pkg/executor"
	"github.com/codeready-toolchain/dbscrub/pkg/runner"
	"github.com/codeready-toolchain/dbscrub/pkg/safecopy"
)

func newSafeCopyCmd(a *app) *cobra.Command {
	var (
		source          string
		target          string
		yes             bool
		no              bool
		exportPath      string
		enforceReadOnly bool
		plain           bool
	)

	cmd := &cobra.Command{
		Use:   "safecopy",
		Short: "Copy a source database into a fresh target and scrub the copy",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := safecopy.Config{
				SourceURL:             firstNonEmpty(source, a.cfg.SafeCopy.SourceURL),
				TargetURL:             firstNonEmpty(target, a.cfg.SafeCopy.TargetURL),
				PrimaryURL:            a.cfg.Database.URL,
				ExportPath:            firstNonEmpty(exportPath, a.cfg.SafeCopy.ExportPath),
				EnforceReadOnlySource: enforceReadOnly || a.cfg.SafeCopy.EnforceReadOnlySource,
				Input:                 cmd.InOrStdin(),
				Output:                cmd.ErrOrStderr(),
			}
			switch {
			case yes && no:
				return fmt.Errorf("--yes and --no are mutually exclusive")
			case yes:
				cfg.Confirm = safecopy.ConfirmYes
			case no:
				cfg.Confirm = safecopy.ConfirmNo
			}

			w := safecopy.New(cfg, safecopy.Deps{
				Provisioner: &safecopy.PGProvisioner{},
				Copier:      safecopy.PGDumpCopier{},
				Exporter:    safecopy.PGDumpExporter{Plain: plain},
				Scrub:       a.scrubTarget,
				Validate: func(ctx context.Context, target *database.Client) error {
					return a.newValidator(target).Check(ctx)
				},
			})
			return w.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "source database URL (never written to)")
	cmd.Flags().StringVar(&target, "target", "", "target database URL (dropped and recreated)")
	cmd.Flags().BoolVar(&yes, "yes", false, "pre-confirm the destructive target provisioning")
	cmd.Flags().BoolVar(&no, "no", false, "decline confirmation and abort")
	cmd.Flags().StringVar(&exportPath, "export", "", "export the scrubbed target to this path")
	cmd.Flags().BoolVar(&enforceReadOnly, "enforce-readonly", false, "abort if the source accepts writes")
	cmd.Flags().BoolVar(&plain, "plain", false, "export as plain SQL instead of pg_dump custom format")
	return cmd
}

// scrubTarget runs global pruning and the full runner against the safe-copy
// target connection.
func (a *app) scrubTarget(ctx context.Context, target *database.Client) error {
	r, err := a.buildRunner(target)
	if err != nil {
		return err
	}
	_, err = r.Run(ctx, runner.Request{Options: executor.Options{
		Strict:          a.cfg.Sanitize.StrictEnabled(),
		ContinueOnError: a.cfg.Sanitize.ContinueOnError,
		BatchSize:       a.cfg.Sanitize.BatchSize,
	}})
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
