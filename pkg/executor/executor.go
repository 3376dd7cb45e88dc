// Package executor runs one entity's sanitization pipeline: coverage check,
// then either the declared bulk operation or the prune-step plus
// record-by-record transformation, then verification.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/dbscrub/pkg/database"
	"github.com/codeready-toolchain/dbscrub/pkg/pruning"
	"github.com/codeready-toolchain/dbscrub/pkg/rules"
	"github.com/codeready-toolchain/dbscrub/pkg/schema"
)

// DefaultBatchSize bounds how many rows the record loop holds in memory.
const DefaultBatchSize = 500

// Options adjust a pipeline run.
type Options struct {
	// Strict fails the run when non-protected columns lack a disposition.
	Strict bool
	// DryRun computes without persisting and skips verification.
	DryRun bool
	// ContinueOnError accumulates per-row errors instead of aborting.
	ContinueOnError bool
	// BatchSize overrides DefaultBatchSize.
	BatchSize int
	// DisablePrune skips the entity-level prune step.
	DisablePrune bool
}

// EntityStats summarizes one entity's run.
type EntityStats struct {
	Entity    string
	Table     string
	Processed int64
	Sanitized int64
	Skipped   int64
	Errored   int64
	Pruned    int64
	Removed   int64 // rows removed by the bulk operation
	Errors    []error
	Started   time.Time
	Finished  time.Time
}

// Duration returns the entity's wall-clock run time.
func (s *EntityStats) Duration() time.Duration { return s.Finished.Sub(s.Started) }

// Executor drives one sanitizer's pipeline against one connection surface
// (a bare connection or an enclosing transaction).
type Executor struct {
	db      database.DBTX
	dialect database.Dialect
	catalog schema.Catalog
	pruner  *pruning.Engine
	s       *rules.Sanitizer
	opts    Options
}

// New builds an executor for one sanitizer.
func New(db database.DBTX, dialect database.Dialect, catalog schema.Catalog, pruner *pruning.Engine, s *rules.Sanitizer, opts Options) *Executor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &Executor{db: db, dialect: dialect, catalog: catalog, pruner: pruner, s: s, opts: opts}
}

// Run executes the pipeline. The returned stats are valid even on error.
func (e *Executor) Run(ctx context.Context) (*EntityStats, error) {
	stats := &EntityStats{
		Entity:  e.s.FriendlyName(),
		Table:   e.s.Table(),
		Started: time.Now(),
	}
	defer func() { stats.Finished = time.Now() }()

	if e.s.WantsDefaultVerification() && e.s.Bulk() == nil {
		return stats, fmt.Errorf("%w: table %s", ErrDefaultVerifyWithoutBulk, e.s.Table())
	}

	if bulk := e.s.Bulk(); bulk != nil {
		if err := e.runBulk(ctx, bulk, stats); err != nil {
			return stats, err
		}
		return stats, e.verify(ctx)
	}

	if err := e.checkCoverage(ctx); err != nil {
		return stats, err
	}

	if !e.opts.DisablePrune && e.s.PruneScope() != nil {
		pruned, err := e.pruner.EntityPrune(ctx, e.db, e.s, e.opts.DryRun)
		if err != nil {
			return stats, err
		}
		stats.Pruned = pruned
	}

	if err := e.recordLoop(ctx, stats); err != nil {
		return stats, err
	}
	return stats, e.verify(ctx)
}

// checkCoverage fails the run in strict mode when undeclared non-protected
// columns exist. Skipped entirely for bulk entities.
func (e *Executor) checkCoverage(ctx context.Context) error {
	if !e.opts.Strict {
		return nil
	}
	undefined, err := e.s.UndefinedColumns(ctx, e.catalog)
	if err != nil {
		return fmt.Errorf("coverage check for %s failed: %w", e.s.Table(), err)
	}
	if len(undefined) > 0 {
		return &rules.CoverageError{Table: e.s.Table(), Columns: undefined}
	}
	return nil
}

func (e *Executor) runBulk(ctx context.Context, bulk *rules.BulkOp, stats *EntityStats) error {
	table := e.dialect.QuoteIdent(e.s.Table())

	if e.opts.DryRun {
		n, err := e.countBulk(ctx, bulk)
		if err != nil {
			return err
		}
		stats.Removed = n
		slog.Info("Would run bulk operation", "table", e.s.Table(), "op", bulk.Kind.String(), "rows", n)
		return nil
	}

	switch bulk.Kind {
	case rules.BulkTruncate:
		stmts := e.dialect.TruncateStmts(e.s.Table())
		if _, err := e.db.ExecContext(ctx, stmts[0]); err != nil {
			return fmt.Errorf("truncate of %s failed: %w", e.s.Table(), err)
		}
		// Identity-reset statements past the first are best effort.
		for _, stmt := range stmts[1:] {
			_, _ = e.db.ExecContext(ctx, stmt)
		}
		slog.Info("Truncated", "table", e.s.Table())
		return nil

	case rules.BulkDelete:
		q := "DELETE FROM " + table
		var args []any
		if bulk.Scope != nil {
			q += " WHERE " + bulk.Scope.Where
			args = bulk.Scope.Args
		}
		res, err := e.db.ExecContext(ctx, e.dialect.Rebind(q), args...)
		if err != nil {
			return fmt.Errorf("bulk delete of %s failed: %w", e.s.Table(), err)
		}
		stats.Removed, _ = res.RowsAffected()
		slog.Info("Bulk deleted", "table", e.s.Table(), "rows", stats.Removed)
		return nil

	case rules.BulkDestroy:
		return e.destroyRows(ctx, bulk, stats)
	}
	return fmt.Errorf("unknown bulk operation %v for %s", bulk.Kind, e.s.Table())
}

// destroyRows deletes rows one at a time in primary-key order so per-row
// cascades fire, honoring an optional scope.
func (e *Executor) destroyRows(ctx context.Context, bulk *rules.BulkOp, stats *EntityStats) error {
	pk := e.dialect.QuoteIdent(e.s.PrimaryKeyColumn())
	q := fmt.Sprintf("SELECT %s FROM %s", pk, e.dialect.QuoteIdent(e.s.Table()))
	var args []any
	if bulk.Scope != nil {
		q += " WHERE " + bulk.Scope.Where
		args = bulk.Scope.Args
	}
	q += " ORDER BY " + pk

	rows, err := e.db.QueryContext(ctx, e.dialect.Rebind(q), args...)
	if err != nil {
		return fmt.Errorf("destroy scan of %s failed: %w", e.s.Table(), err)
	}
	var ids []any
	for rows.Next() {
		var id any
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return fmt.Errorf("destroy scan of %s failed: %w", e.s.Table(), err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_ = rows.Close()

	del := e.dialect.Rebind(fmt.Sprintf(
		"DELETE FROM %s WHERE %s = ?", e.dialect.QuoteIdent(e.s.Table()), pk))
	for _, id := range ids {
		if _, err := e.db.ExecContext(ctx, del, id); err != nil {
			return fmt.Errorf("destroy of %s row %v failed: %w", e.s.Table(), id, err)
		}
		stats.Removed++
	}
	slog.Info("Destroyed", "table", e.s.Table(), "rows", stats.Removed)
	return nil
}

func (e *Executor) countBulk(ctx context.Context, bulk *rules.BulkOp) (int64, error) {
	q := "SELECT COUNT(*) FROM " + e.dialect.QuoteIdent(e.s.Table())
	var args []any
	if bulk.Scope != nil {
		q += " WHERE " + bulk.Scope.Where
		args = bulk.Scope.Args
	}
	var n int64
	if err := e.db.QueryRowContext(ctx, e.dialect.Rebind(q), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows of %s: %w", e.s.Table(), err)
	}
	return n, nil
}

// recordLoop iterates the table in primary-key order in batches, computes
// every scrub value per row, persists them as a single update, and runs the
// per-record verification against the re-fetched row.
func (e *Executor) recordLoop(ctx context.Context, stats *EntityStats) error {
	scrubbed := e.s.ScrubbedColumns()
	if len(scrubbed) == 0 {
		slog.Info("No scrub rules declared, nothing to do", "table", e.s.Table())
		return nil
	}

	cols, err := e.catalog.Columns(ctx, e.s.Table())
	if err != nil {
		return fmt.Errorf("failed to resolve columns of %s: %w", e.s.Table(), err)
	}

	var lastPK any
	for {
		batch, err := e.fetchBatch(ctx, cols, lastPK)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		for _, row := range batch {
			lastPK = row[e.s.PrimaryKeyColumn()]
			stats.Processed++

			if err := e.processRow(ctx, row, stats); err != nil {
				stats.Errored++
				stats.Errors = append(stats.Errors, err)
				slog.Error("Row sanitization failed",
					"table", e.s.Table(), "id", lastPK, "error", err)
				if !e.opts.ContinueOnError {
					return err
				}
			}
		}
	}
}

func (e *Executor) processRow(ctx context.Context, row map[string]any, stats *EntityStats) error {
	id := row[e.s.PrimaryKeyColumn()]

	values, err := e.s.Sanitize(row)
	if err != nil {
		return &RowError{Table: e.s.Table(), ID: id, Err: err}
	}

	if e.opts.DryRun {
		stats.Skipped++
		return nil
	}

	if err := e.persist(ctx, id, values); err != nil {
		return &RowError{Table: e.s.Table(), ID: id, Err: err}
	}
	stats.Sanitized++

	if check := e.s.RecordVerification(); check != nil {
		fresh, err := e.fetchRow(ctx, id)
		if err != nil {
			return &RowError{Table: e.s.Table(), ID: id, Err: err}
		}
		if !check.Fn(fresh) {
			msg := check.Message
			if msg == "" {
				msg = fmt.Sprintf("record check failed for row %v", id)
			}
			return &VerificationError{Table: e.s.Table(), Message: msg}
		}
	}
	return nil
}

// persist writes all computed scrub values as one update.
func (e *Executor) persist(ctx context.Context, id any, values map[string]any) error {
	set := ""
	args := make([]any, 0, len(values)+1)
	for _, col := range e.s.ScrubbedColumns() {
		if set != "" {
			set += ", "
		}
		set += e.dialect.QuoteIdent(col) + " = ?"
		args = append(args, values[col])
	}
	args = append(args, id)

	q := e.dialect.Rebind(fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?",
		e.dialect.QuoteIdent(e.s.Table()), set, e.dialect.QuoteIdent(e.s.PrimaryKeyColumn())))
	if _, err := e.db.ExecContext(ctx, q, args...); err != nil {
		return err
	}
	return nil
}

func (e *Executor) fetchBatch(ctx context.Context, cols []string, afterPK any) ([]map[string]any, error) {
	pk := e.dialect.QuoteIdent(e.s.PrimaryKeyColumn())
	selectList := ""
	for _, col := range cols {
		if selectList != "" {
			selectList += ", "
		}
		selectList += e.dialect.QuoteIdent(col)
	}

	q := fmt.Sprintf("SELECT %s FROM %s", selectList, e.dialect.QuoteIdent(e.s.Table()))
	var args []any
	if afterPK != nil {
		q += fmt.Sprintf(" WHERE %s > ?", pk)
		args = append(args, afterPK)
	}
	q += fmt.Sprintf(" ORDER BY %s LIMIT %d", pk, e.opts.BatchSize)

	rows, err := e.db.QueryContext(ctx, e.dialect.Rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch batch of %s: %w", e.s.Table(), err)
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		row, err := scanRowMap(rows, cols)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (e *Executor) fetchRow(ctx context.Context, id any) (map[string]any, error) {
	cols, err := e.catalog.Columns(ctx, e.s.Table())
	if err != nil {
		return nil, err
	}
	selectList := ""
	for _, col := range cols {
		if selectList != "" {
			selectList += ", "
		}
		selectList += e.dialect.QuoteIdent(col)
	}
	q := e.dialect.Rebind(fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?",
		selectList, e.dialect.QuoteIdent(e.s.Table()), e.dialect.QuoteIdent(e.s.PrimaryKeyColumn())))

	rows, err := e.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, fmt.Errorf("row %v of %s vanished during verification", id, e.s.Table())
	}
	return scanRowMap(rows, cols)
}

// verify runs the table-level check: the declared predicate, or the default
// derived from the bulk operation when requested. Skipped in dry-run.
func (e *Executor) verify(ctx context.Context) error {
	if e.opts.DryRun {
		return nil
	}

	check := e.s.TableVerification()
	if check == nil && e.s.WantsDefaultVerification() {
		check = e.defaultCheck()
	}
	if check == nil {
		return nil
	}

	q := "SELECT COUNT(*) FROM " + e.dialect.QuoteIdent(e.s.Table())
	if check.Where != "" {
		q += " WHERE " + check.Where
	}
	var n int64
	if err := e.db.QueryRowContext(ctx, e.dialect.Rebind(q), check.Args...).Scan(&n); err != nil {
		return fmt.Errorf("verification query for %s failed: %w", e.s.Table(), err)
	}
	if n > 0 {
		msg := check.Message
		if msg == "" {
			msg = fmt.Sprintf("%d rows still match the verification predicate", n)
		}
		return &VerificationError{Table: e.s.Table(), Message: msg}
	}
	return nil
}

// defaultCheck derives the operation-specific default: truncate and
// untargeted delete/destroy must leave zero rows; scoped variants must leave
// no rows matching the scope.
func (e *Executor) defaultCheck() *rules.TableCheck {
	bulk := e.s.Bulk()
	if bulk.Scope != nil {
		return &rules.TableCheck{
			Where:   bulk.Scope.Where,
			Args:    bulk.Scope.Args,
			Message: "scoped " + bulk.Kind.String() + " left matching rows behind",
		}
	}
	return &rules.TableCheck{
		Message: bulk.Kind.String() + " left rows behind",
	}
}
