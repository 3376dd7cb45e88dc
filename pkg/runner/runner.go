// Package runner orchestrates a multi-entity sanitization run: name
// resolution, the global pruning pass, one executor per entity, and summary
// aggregation, all inside one outer transaction.
package runner

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/dbscrub/pkg/database"
	"github.com/codeready-toolchain/dbscrub/pkg/executor"
	"github.com/codeready-toolchain/dbscrub/pkg/pruning"
	"github.com/codeready-toolchain/dbscrub/pkg/rules"
	"github.com/codeready-toolchain/dbscrub/pkg/schema"
)

// Request selects what one run covers.
type Request struct {
	// Names are friendly sanitizer names; empty means every registered one.
	Names   []string
	Options executor.Options
}

// Summary aggregates one run's outcome across all entities.
type Summary struct {
	RunID    string
	DryRun   bool
	Pruning  []pruning.TableResult
	Entities []*executor.EntityStats
	Started  time.Time
	Finished time.Time

	// Totals across all entities.
	Processed int64
	Sanitized int64
	Removed   int64
	Pruned    int64
	Errored   int64
}

// Duration returns the run's wall-clock time.
func (s *Summary) Duration() time.Duration { return s.Finished.Sub(s.Started) }

// Runner drives whole sanitization runs against one client connection.
type Runner struct {
	client   *database.Client
	catalog  schema.Catalog
	registry *rules.Registry
	pruner   *pruning.Engine
}

// New builds a runner. The pruner carries the global pruning config; pass one
// built with a nil config to disable the global pass.
func New(client *database.Client, catalog schema.Catalog, registry *rules.Registry, pruner *pruning.Engine) *Runner {
	return &Runner{client: client, catalog: catalog, registry: registry, pruner: pruner}
}

// Run resolves the requested sanitizers and executes them after the global
// pruning pass, all inside one transaction: any error rolls the whole run
// back. The returned summary is valid even on error.
func (r *Runner) Run(ctx context.Context, req Request) (*Summary, error) {
	sanitizers, err := r.resolve(req.Names)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:   uuid.NewString(),
		DryRun:  req.Options.DryRun,
		Started: time.Now(),
	}
	defer func() {
		summary.Finished = time.Now()
	}()

	log := slog.With("run_id", summary.RunID)
	log.Info("Starting sanitization run",
		"entities", len(sanitizers), "dry_run", req.Options.DryRun)

	err = database.InTx(ctx, r.client.DB(), func(tx *sql.Tx) error {
		results, err := r.pruner.GlobalPass(ctx, tx, pruning.Options{DryRun: req.Options.DryRun})
		if err != nil {
			return fmt.Errorf("global pruning pass failed: %w", err)
		}
		summary.Pruning = results
		for _, res := range results {
			summary.Pruned += res.Rows
		}

		for _, s := range sanitizers {
			stats, err := executor.New(tx, r.client.Dialect(), r.catalog, r.pruner, s, req.Options).Run(ctx)
			summary.Entities = append(summary.Entities, stats)
			if err != nil {
				return fmt.Errorf("entity %s failed: %w", s.FriendlyName(), err)
			}
			log.Info("Entity sanitized",
				"entity", s.FriendlyName(),
				"table", s.Table(),
				"processed", stats.Processed,
				"sanitized", stats.Sanitized,
				"removed", stats.Removed,
				"pruned", stats.Pruned,
				"duration", stats.Duration())
		}
		return nil
	})

	for _, stats := range summary.Entities {
		summary.Processed += stats.Processed
		summary.Sanitized += stats.Sanitized
		summary.Removed += stats.Removed
		summary.Pruned += stats.Pruned
		summary.Errored += stats.Errored
	}

	if err != nil {
		log.Error("Run aborted, transaction rolled back", "error", err)
		return summary, err
	}
	log.Info("Run complete",
		"processed", summary.Processed,
		"sanitized", summary.Sanitized,
		"removed", summary.Removed,
		"pruned", summary.Pruned)
	return summary, nil
}

// resolve maps requested friendly names to sanitizers; empty means all.
func (r *Runner) resolve(names []string) ([]*rules.Sanitizer, error) {
	if len(names) == 0 {
		return r.registry.All(), nil
	}
	out := make([]*rules.Sanitizer, 0, len(names))
	for _, name := range names {
		s, ok := r.registry.ByName(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownSanitizer, name, r.registry.Names())
		}
		out = append(out, s)
	}
	return out, nil
}
