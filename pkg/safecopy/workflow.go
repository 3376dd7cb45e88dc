// Package safecopy implements the copy-then-scrub workflow: validate the
// configuration, probe the source for write access, confirm the target,
// provision it, copy the source into it, scrub it, validate it, and
// optionally export it. Every phase failure aborts the whole workflow; the
// source is never written to after the run starts.
package safecopy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/codeready-toolchain/dbscrub/pkg/config"
	"github.com/codeready-toolchain/dbscrub/pkg/database"
)

// Provisioner prepares the target database: terminate its backends, drop it,
// recreate it fresh. Only reachable after confirmation.
type Provisioner interface {
	Provision(ctx context.Context, targetURL string) error
}

// Copier transfers schema and data from source to the freshly created target.
// Partial failures must surface as errors, never as a silent partial copy.
type Copier interface {
	Copy(ctx context.Context, sourceURL, targetURL string) error
}

// Exporter produces a portable dump of the scrubbed target.
type Exporter interface {
	Export(ctx context.Context, targetURL, path string) error
}

// ScrubFunc runs the sanitization (global pruning plus the runner) against
// the target connection.
type ScrubFunc func(ctx context.Context, target *database.Client) error

// ValidateFunc scans the scrubbed target for leaks; a non-nil error aborts
// the workflow before any export.
type ValidateFunc func(ctx context.Context, target *database.Client) error

// ProbeFunc reports whether the connection at url accepts writes.
type ProbeFunc func(ctx context.Context, url string) (writable bool, err error)

// Deps are the workflow collaborators. Probe defaults to the SQL write probe
// when nil; the rest are required.
type Deps struct {
	Provisioner Provisioner
	Copier      Copier
	Exporter    Exporter
	Scrub       ScrubFunc
	Validate    ValidateFunc
	Probe       ProbeFunc
}

// Workflow is the linear safe-copy pipeline.
type Workflow struct {
	cfg  Config
	deps Deps
}

// New builds a workflow. Config gates are checked at Run, not here, so a
// misconfigured workflow fails loudly instead of at construction.
func New(cfg Config, deps Deps) *Workflow {
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if deps.Probe == nil {
		deps.Probe = ProbeWrite
	}
	return &Workflow{cfg: cfg, deps: deps}
}

// Run executes the phases in order, aborting on the first failure. No phase
// after a failure runs; in particular a failed validation never exports.
func (w *Workflow) Run(ctx context.Context) error {
	if err := w.cfg.Validate(); err != nil {
		return err
	}

	log := slog.With(
		"source", database.ElideCredentials(w.cfg.SourceURL),
		"target", database.ElideCredentials(w.cfg.TargetURL))
	log.Info("Starting safe copy")

	if err := w.checkSourceReadOnly(ctx, log); err != nil {
		return err
	}
	if err := w.confirmTarget(); err != nil {
		return err
	}

	log.Info("Provisioning target database")
	if err := w.deps.Provisioner.Provision(ctx, w.cfg.TargetURL); err != nil {
		return fmt.Errorf("failed to provision target: %w", err)
	}

	log.Info("Copying source into target")
	if err := w.deps.Copier.Copy(ctx, w.cfg.SourceURL, w.cfg.TargetURL); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}

	log.Info("Scrubbing target")
	err := database.WithConnection(ctx, w.cfg.TargetURL, func(target *database.Client) error {
		if err := w.deps.Scrub(ctx, target); err != nil {
			return fmt.Errorf("scrub of target failed: %w", err)
		}
		log.Info("Validating target")
		if err := w.deps.Validate(ctx, target); err != nil {
			return fmt.Errorf("target validation failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if w.cfg.ExportPath != "" {
		log.Info("Exporting scrubbed target", "path", w.cfg.ExportPath)
		if err := w.deps.Exporter.Export(ctx, w.cfg.TargetURL, w.cfg.ExportPath); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
	}

	log.Info("Safe copy complete")
	return nil
}

// checkSourceReadOnly probes the source for write access. Advisory by
// default; enforcement turns a writable source into an abort.
func (w *Workflow) checkSourceReadOnly(ctx context.Context, log *slog.Logger) error {
	writable, err := w.deps.Probe(ctx, w.cfg.SourceURL)
	if err != nil {
		return fmt.Errorf("source write probe failed: %w", err)
	}
	if !writable {
		return nil
	}
	if w.cfg.EnforceReadOnlySource {
		return &SourceWriteAccessError{URL: w.cfg.SourceURL}
	}
	log.Warn("Source accepts writes; continuing because read-only enforcement is off")
	return nil
}

// confirmTarget applies the confirmation gate ahead of the destructive
// provisioning phase.
func (w *Workflow) confirmTarget() error {
	switch w.cfg.Confirm {
	case ConfirmYes:
		return nil
	case ConfirmNo:
		return config.NewConfigurationError("confirm", "target confirmation declined")
	}

	name, err := database.DatabaseName(w.cfg.TargetURL)
	if err != nil {
		return config.NewConfigurationError("target_url", err.Error())
	}

	fmt.Fprintf(w.cfg.Output,
		"About to DROP and recreate database %q. Type the database name to confirm: ", name)
	scanner := bufio.NewScanner(w.cfg.Input)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil && err != io.EOF {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		return config.NewConfigurationError("confirm", "no confirmation input")
	}
	if strings.TrimSpace(scanner.Text()) != name {
		return config.NewConfigurationError("confirm",
			fmt.Sprintf("confirmation %q does not match target database %q", strings.TrimSpace(scanner.Text()), name))
	}
	return nil
}
