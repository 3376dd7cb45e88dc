package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codeready-toolchain/dbscrub/pkg/schema"
)

// IssueKind classifies a lint finding.
type IssueKind string

const (
	// IssueUndefinedColumns marks non-protected columns without a disposition.
	IssueUndefinedColumns IssueKind = "undefined_columns"
	// IssueStaleColumns marks declared columns absent from the live schema.
	IssueStaleColumns IssueKind = "stale_columns"
	// IssueIgnoredDispositions marks dispositions declared alongside a bulk
	// operation; the row loop never runs for bulk entities.
	IssueIgnoredDispositions IssueKind = "ignored_dispositions"
	// IssueTableMissing marks a sanitizer whose bound table does not exist.
	IssueTableMissing IssueKind = "table_missing"
)

// Issue is one human-readable lint finding.
type Issue struct {
	Table   string
	Kind    IssueKind
	Columns []string
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueUndefinedColumns:
		return fmt.Sprintf("%s: columns without a scrub/keep declaration: %s",
			i.Table, strings.Join(i.Columns, ", "))
	case IssueStaleColumns:
		return fmt.Sprintf("%s: declared columns missing from schema: %s",
			i.Table, strings.Join(i.Columns, ", "))
	case IssueIgnoredDispositions:
		return fmt.Sprintf("%s: bulk operation declared; column dispositions will be ignored: %s",
			i.Table, strings.Join(i.Columns, ", "))
	case IssueTableMissing:
		return fmt.Sprintf("%s: table not found in schema", i.Table)
	}
	return fmt.Sprintf("%s: %s", i.Table, i.Kind)
}

// UndefinedColumns returns the table's non-protected columns lacking a
// disposition, in schema order.
func (s *Sanitizer) UndefinedColumns(ctx context.Context, cat schema.Catalog) ([]string, error) {
	cols, err := cat.Columns(ctx, s.table)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, col := range cols {
		if s.isProtected(col) {
			continue
		}
		if _, declared := s.dispositions[col]; !declared {
			out = append(out, col)
		}
	}
	return out, nil
}

// StaleColumns returns declared columns that no longer exist in the schema,
// in declaration order. Non-empty output means the rule set has drifted.
func (s *Sanitizer) StaleColumns(ctx context.Context, cat schema.Catalog) ([]string, error) {
	cols, err := cat.Columns(ctx, s.table)
	if err != nil {
		return nil, err
	}
	live := make(map[string]bool, len(cols))
	for _, col := range cols {
		live[col] = true
	}
	var out []string
	for _, col := range s.order {
		if !live[col] {
			out = append(out, col)
		}
	}
	return out, nil
}

// Lint reports coverage drift and contradictory declarations against the
// live schema. A missing table yields a single table_missing issue instead
// of an error.
func (s *Sanitizer) Lint(ctx context.Context, cat schema.Catalog) ([]Issue, error) {
	if _, err := cat.Columns(ctx, s.table); err != nil {
		if errors.Is(err, schema.ErrUnknownTable) {
			return []Issue{{Table: s.table, Kind: IssueTableMissing}}, nil
		}
		return nil, err
	}

	var issues []Issue

	if s.bulk == nil {
		undefined, err := s.UndefinedColumns(ctx, cat)
		if err != nil {
			return nil, err
		}
		if len(undefined) > 0 {
			issues = append(issues, Issue{Table: s.table, Kind: IssueUndefinedColumns, Columns: undefined})
		}
	} else if len(s.order) > 0 {
		issues = append(issues, Issue{Table: s.table, Kind: IssueIgnoredDispositions, Columns: s.DefinedColumns()})
	}

	stale, err := s.StaleColumns(ctx, cat)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		issues = append(issues, Issue{Table: s.table, Kind: IssueStaleColumns, Columns: stale})
	}

	return issues, nil
}
