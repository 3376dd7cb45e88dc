package executor

import (
	"errors"
	"fmt"
)

// ErrDefaultVerifyWithoutBulk is returned when a sanitizer requests
// default verification but declares no bulk operation. Default predicates
// are derived from the bulk operation, so this is an authoring error.
var ErrDefaultVerifyWithoutBulk = errors.New("default verification requires a bulk operation")

// VerificationError reports a failed post-run verification predicate.
type VerificationError struct {
	Table   string
	Message string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verification failed for %s: %s", e.Table, e.Message)
}

// RowError wraps a failure while processing one row; it carries the row
// identity for operator-facing reporting.
type RowError struct {
	Table string
	ID    any
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %v of %s: %v", e.ID, e.Table, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }
