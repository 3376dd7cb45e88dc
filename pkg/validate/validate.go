// Package validate scans a scrubbed database for leftover PII: real-looking
// email addresses outside the allowed fake domains, and token columns that
// still carry values. A non-empty result aborts the flows that call it.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codeready-toolchain/dbscrub/pkg/database"
	"github.com/codeready-toolchain/dbscrub/pkg/generators"
	"github.com/codeready-toolchain/dbscrub/pkg/rules"
	"github.com/codeready-toolchain/dbscrub/pkg/schema"
)

// LeakKind classifies a finding.
type LeakKind string

const (
	// LeakRealEmail marks addresses outside the allowed fake domains.
	LeakRealEmail LeakKind = "real_email"
	// LeakUnclearedToken marks secret columns still holding values.
	LeakUnclearedToken LeakKind = "uncleared_token"
)

// Leak is one finding: a column of a scrubbed table still carrying data that
// should have been removed or replaced.
type Leak struct {
	Table  string
	Column string
	Kind   LeakKind
	Count  int64
	Sample string
}

func (l Leak) String() string {
	switch l.Kind {
	case LeakRealEmail:
		return fmt.Sprintf("%s.%s: %d addresses outside the allowed domains (e.g. %s)",
			l.Table, l.Column, l.Count, l.Sample)
	case LeakUnclearedToken:
		return fmt.Sprintf("%s.%s: %d rows still carry a token value", l.Table, l.Column, l.Count)
	}
	return fmt.Sprintf("%s.%s: %s (%d rows)", l.Table, l.Column, l.Kind, l.Count)
}

// LeakError aggregates findings for callers that need a hard failure.
type LeakError struct {
	Leaks []Leak
}

func (e *LeakError) Error() string {
	lines := make([]string, len(e.Leaks))
	for i, l := range e.Leaks {
		lines[i] = l.String()
	}
	return fmt.Sprintf("validation found %d leaks: %s", len(e.Leaks), strings.Join(lines, "; "))
}

// Config selects what counts as a leak.
type Config struct {
	// AllowedDomains are email domains considered safe. Defaults to the
	// generator's fake domain.
	AllowedDomains []string
	// TokenColumns are column names treated as secrets that must be empty
	// after a run wherever they appear on a covered table.
	TokenColumns []string
}

func (c *Config) applyDefaults() {
	if len(c.AllowedDomains) == 0 {
		c.AllowedDomains = []string{generators.DefaultEmailDomain}
	}
}

// Validator scans the tables covered by registered sanitizers.
type Validator struct {
	db       database.DBTX
	dialect  database.Dialect
	catalog  schema.Catalog
	registry *rules.Registry
	cfg      Config
}

// New builds a validator over one connection surface.
func New(db database.DBTX, dialect database.Dialect, catalog schema.Catalog, registry *rules.Registry, cfg Config) *Validator {
	cfg.applyDefaults()
	return &Validator{db: db, dialect: dialect, catalog: catalog, registry: registry, cfg: cfg}
}

// Run scans every covered table and returns all findings. A nil slice means
// the database looks clean.
func (v *Validator) Run(ctx context.Context) ([]Leak, error) {
	var leaks []Leak
	for _, s := range v.registry.All() {
		found, err := v.scanTable(ctx, s)
		if err != nil {
			return leaks, err
		}
		leaks = append(leaks, found...)
	}
	for _, l := range leaks {
		slog.Warn("Leak detected", "table", l.Table, "column", l.Column, "kind", string(l.Kind), "rows", l.Count)
	}
	return leaks, nil
}

// Check is Run with a hard failure: any finding becomes a LeakError.
func (v *Validator) Check(ctx context.Context) error {
	leaks, err := v.Run(ctx)
	if err != nil {
		return err
	}
	if len(leaks) > 0 {
		return &LeakError{Leaks: leaks}
	}
	return nil
}

func (v *Validator) scanTable(ctx context.Context, s *rules.Sanitizer) ([]Leak, error) {
	cols, err := v.catalog.Columns(ctx, s.Table())
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", s.Table(), err)
	}

	var leaks []Leak
	for _, col := range s.ScrubbedColumns() {
		leak, err := v.scanEmails(ctx, s.Table(), col)
		if err != nil {
			return nil, err
		}
		if leak != nil {
			leaks = append(leaks, *leak)
		}
	}
	for _, col := range cols {
		if !v.isTokenColumn(col) {
			continue
		}
		leak, err := v.scanToken(ctx, s.Table(), col)
		if err != nil {
			return nil, err
		}
		if leak != nil {
			leaks = append(leaks, *leak)
		}
	}
	return leaks, nil
}

// scanEmails finds address-shaped values whose domain is not allowed.
func (v *Validator) scanEmails(ctx context.Context, table, col string) (*Leak, error) {
	// Cast so non-text columns compare as their textual form instead of
	// failing the query; any remaining error is a real scan failure and
	// must abort the run rather than report a clean database.
	qcol := "CAST(" + v.dialect.QuoteIdent(col) + " AS TEXT)"
	where := "LOWER(" + qcol + ") LIKE ?"
	args := []any{"%@%.%"}
	for _, domain := range v.cfg.AllowedDomains {
		where += " AND LOWER(" + qcol + ") NOT LIKE ?"
		args = append(args, "%@"+strings.ToLower(domain))
	}

	q := v.dialect.Rebind(fmt.Sprintf("SELECT COUNT(*), MIN(%s) FROM %s WHERE %s",
		qcol, v.dialect.QuoteIdent(table), where))
	var count int64
	var sample *string
	if err := v.db.QueryRowContext(ctx, q, args...).Scan(&count, &sample); err != nil {
		return nil, fmt.Errorf("failed to scan %s.%s: %w", table, col, err)
	}
	if count == 0 {
		return nil, nil
	}
	leak := &Leak{Table: table, Column: col, Kind: LeakRealEmail, Count: count}
	if sample != nil {
		leak.Sample = *sample
	}
	return leak, nil
}

// scanToken counts rows whose secret column is still populated.
func (v *Validator) scanToken(ctx context.Context, table, col string) (*Leak, error) {
	qcol := v.dialect.QuoteIdent(col)
	q := v.dialect.Rebind(fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE %s IS NOT NULL AND %s <> ''",
		v.dialect.QuoteIdent(table), qcol, qcol))
	var count int64
	if err := v.db.QueryRowContext(ctx, q).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to scan %s.%s: %w", table, col, err)
	}
	if count == 0 {
		return nil, nil
	}
	return &Leak{Table: table, Column: col, Kind: LeakUnclearedToken, Count: count}, nil
}

func (v *Validator) isTokenColumn(col string) bool {
	for _, t := range v.cfg.TokenColumns {
		if strings.EqualFold(t, col) {
			return true
		}
	}
	return false
}
