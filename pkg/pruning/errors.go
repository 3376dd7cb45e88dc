package pruning

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoBound is returned when neither older-than nor newer-than is set.
	ErrNoBound = errors.New("global pruning requires exactly one of older_than or newer_than")

	// ErrBothBounds is returned when both age bounds are set.
	ErrBothBounds = errors.New("older_than and newer_than are mutually exclusive")

	// ErrOnlyAndExcept is returned when both table filters are set.
	ErrOnlyAndExcept = errors.New("only and except table filters are mutually exclusive")
)

// ConflictError reports tables both the global pass and an entity-level
// prune declaration would touch, under the raise or rollback policy.
type ConflictError struct {
	Tables []string
	Policy ConflictPolicy
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("global and entity-level pruning both target tables %s (on_conflict=%s)",
		strings.Join(e.Tables, ", "), e.Policy)
}
