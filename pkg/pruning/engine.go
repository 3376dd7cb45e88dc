// Package pruning deletes matching rows ahead of scrubbing: a global
// cross-table pass driven by one age predicate, and entity-level passes
// declared on individual sanitizers.
package pruning

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/dbscrub/pkg/database"
	"github.com/codeready-toolchain/dbscrub/pkg/rules"
	"github.com/codeready-toolchain/dbscrub/pkg/schema"
)

// Action classifies what the global pass did with one table.
type Action string

const (
	ActionPruned            Action = "pruned"
	ActionWouldPrune        Action = "would_prune" // dry-run
	ActionSkippedEntity     Action = "skipped: entity-level prune declared"
	ActionSkippedNoColumn   Action = "skipped: timestamp column missing"
	ActionSkippedFiltered   Action = "skipped: excluded by table filter"
	ActionSkippedUnbound    Action = "skipped: no primary key"
	ActionSkippedDependents Action = "skipped: dependencies"
)

// TableResult is the outcome of the global pass for one table.
type TableResult struct {
	Table  string
	Action Action
	Rows   int64
}

// Options adjust a pruning pass.
type Options struct {
	DryRun bool
}

// Engine runs the pruning passes against one connection.
type Engine struct {
	dialect  database.Dialect
	catalog  schema.Catalog
	registry *rules.Registry
	cfg      *GlobalConfig
}

// NewEngine builds a pruning engine. cfg may be nil when no global pruning
// is configured; GlobalPass then returns immediately.
func NewEngine(dialect database.Dialect, catalog schema.Catalog, registry *rules.Registry, cfg *GlobalConfig) *Engine {
	return &Engine{dialect: dialect, catalog: catalog, registry: registry, cfg: cfg}
}

// GlobalPass iterates all schema tables and deletes rows matching the
// configured age predicate. Tables with their own entity-level prune
// declaration are resolved per the conflict policy (entity-level wins under
// warn); unregistered tables without a primary key are skipped. Each table's
// deletion runs in an isolated savepoint when db is a transaction, so one
// table's FK failure does not abort the pass.
func (e *Engine) GlobalPass(ctx context.Context, db database.DBTX, opts Options) ([]TableResult, error) {
	if e.cfg == nil {
		return nil, nil
	}
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	scope, err := e.cfg.scope(time.Now())
	if err != nil {
		return nil, err
	}

	tables, err := e.catalog.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables for pruning: %w", err)
	}

	if err := e.checkConflicts(ctx, tables); err != nil {
		return nil, err
	}

	var results []TableResult
	for _, table := range tables {
		result, err := e.pruneTable(ctx, db, table, scope, opts)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// checkConflicts finds tables both passes would touch and applies the
// conflict policy. Raise and rollback abort before any deletion; warn logs
// and defers to the entity-level declaration (handled in pruneTable).
func (e *Engine) checkConflicts(ctx context.Context, tables []string) error {
	var overlap []string
	for _, table := range tables {
		if !e.cfg.includes(table) {
			continue
		}
		s, ok := e.registry.ByTable(table)
		if !ok || s.PruneScope() == nil {
			continue
		}
		has, err := e.catalog.HasColumn(ctx, table, e.cfg.Column)
		if err != nil {
			return err
		}
		if has {
			overlap = append(overlap, table)
		}
	}
	if len(overlap) == 0 {
		return nil
	}

	switch e.cfg.OnConflict {
	case Raise, Rollback:
		return &ConflictError{Tables: overlap, Policy: e.cfg.OnConflict}
	default:
		slog.Warn("Global and entity-level pruning overlap; entity-level declarations take precedence",
			"tables", overlap)
		return nil
	}
}

func (e *Engine) pruneTable(ctx context.Context, db database.DBTX, table string, scope rules.Scope, opts Options) (TableResult, error) {
	if !e.cfg.includes(table) {
		return TableResult{Table: table, Action: ActionSkippedFiltered}, nil
	}

	if s, ok := e.registry.ByTable(table); ok && s.PruneScope() != nil {
		slog.Info("Skipping global prune, entity-level prune declared", "table", table)
		return TableResult{Table: table, Action: ActionSkippedEntity}, nil
	}

	has, err := e.catalog.HasColumn(ctx, table, e.cfg.Column)
	if err != nil {
		return TableResult{}, err
	}
	if !has {
		return TableResult{Table: table, Action: ActionSkippedNoColumn}, nil
	}

	// Tables without a registered sanitizer must carry a primary key to be
	// treated as an entity; keyless join and bookkeeping tables are left
	// alone.
	if _, bound := e.registry.ByTable(table); !bound {
		pk, err := e.catalog.PrimaryKey(ctx, table)
		if err != nil {
			return TableResult{}, err
		}
		if pk == "" {
			slog.Info("Skipping global prune, table has no primary key", "table", table)
			return TableResult{Table: table, Action: ActionSkippedUnbound}, nil
		}
	}

	if opts.DryRun {
		n, err := e.countScope(ctx, db, table, scope)
		if err != nil {
			return TableResult{}, err
		}
		slog.Info("Would prune", "table", table, "rows", n)
		return TableResult{Table: table, Action: ActionWouldPrune, Rows: n}, nil
	}

	var rows int64
	del := func() error {
		var err error
		rows, err = e.deleteScope(ctx, db, table, scope)
		return err
	}

	// Isolate each table so an FK violation only skips that table.
	if tx, ok := db.(*sql.Tx); ok {
		err = database.InSubTx(ctx, tx, del)
	} else {
		err = del()
	}
	if err != nil {
		slog.Warn("Pruning skipped table with dependent rows", "table", table, "error", err)
		return TableResult{Table: table, Action: ActionSkippedDependents}, nil
	}

	if rows > 0 {
		slog.Info("Pruned", "table", table, "rows", rows)
	}
	return TableResult{Table: table, Action: ActionPruned, Rows: rows}, nil
}

// EntityPrune executes one sanitizer's own prune scope as a bulk delete.
// Invoked by the executor as a pre-step; runs unconditionally when declared,
// with no dependency checking.
func (e *Engine) EntityPrune(ctx context.Context, db database.DBTX, s *rules.Sanitizer, dryRun bool) (int64, error) {
	scope := s.PruneScope()
	if scope == nil {
		return 0, nil
	}
	if dryRun {
		n, err := e.countScope(ctx, db, s.Table(), *scope)
		if err != nil {
			return 0, err
		}
		slog.Info("Would prune (entity)", "table", s.Table(), "rows", n)
		return n, nil
	}
	n, err := e.deleteScope(ctx, db, s.Table(), *scope)
	if err != nil {
		return 0, fmt.Errorf("entity prune of %s failed: %w", s.Table(), err)
	}
	if n > 0 {
		slog.Info("Pruned (entity)", "table", s.Table(), "rows", n)
	}
	return n, nil
}

func (e *Engine) countScope(ctx context.Context, db database.DBTX, table string, scope rules.Scope) (int64, error) {
	q := e.dialect.Rebind(fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE %s", e.dialect.QuoteIdent(table), scope.Where))
	var n int64
	if err := db.QueryRowContext(ctx, q, scope.Args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count prunable rows in %s: %w", table, err)
	}
	return n, nil
}

func (e *Engine) deleteScope(ctx context.Context, db database.DBTX, table string, scope rules.Scope) (int64, error) {
	q := e.dialect.Rebind(fmt.Sprintf(
		"DELETE FROM %s WHERE %s", e.dialect.QuoteIdent(table), scope.Where))
	res, err := db.ExecContext(ctx, q, scope.Args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
