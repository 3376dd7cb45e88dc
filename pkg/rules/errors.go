package rules

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateSanitizer is returned when two sanitizers bind the same table.
	ErrDuplicateSanitizer = errors.New("sanitizer already registered for table")

	// ErrDuplicateName is returned when two sanitizers share a friendly name.
	ErrDuplicateName = errors.New("sanitizer name already registered")

	// ErrConflictingDisposition is returned when a column is declared both
	// scrub and keep.
	ErrConflictingDisposition = errors.New("column declared with conflicting dispositions")

	// ErrConflictingBulkOp is returned when a second bulk operation is declared.
	ErrConflictingBulkOp = errors.New("bulk operation already declared")
)

// CoverageError reports non-protected columns left without a disposition in
// strict mode.
type CoverageError struct {
	Table   string
	Columns []string
}

func (e *CoverageError) Error() string {
	return fmt.Sprintf("table %q: undeclared columns in strict mode: %s",
		e.Table, strings.Join(e.Columns, ", "))
}

// CycleError reports a cyclic cross-column reference encountered while
// evaluating scrub rules for one row.
type CycleError struct {
	Table string
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("table %q: cyclic column reference: %s",
		e.Table, strings.Join(e.Chain, " -> "))
}
