package pruning

import (
	"time"

	"github.com/codeready-toolchain/dbscrub/pkg/rules"
)

// ConflictPolicy decides what happens when the global pass and an
// entity-level prune declaration target the same table.
type ConflictPolicy string

const (
	// Warn logs the overlap and lets the entity-level declaration win for
	// that table; the global pass skips it.
	Warn ConflictPolicy = "warn"
	// Raise aborts the pruning pass before any deletion.
	Raise ConflictPolicy = "raise"
	// Rollback aborts so the enclosing run transaction rolls back as a unit.
	Rollback ConflictPolicy = "rollback"
)

// GlobalConfig is the cross-table pruning configuration, set once and read
// on every pass. Exactly one age bound is required; bounds accept a
// time.Duration, a time.Time, or a date string.
type GlobalConfig struct {
	OlderThan any
	NewerThan any

	// Column is the timestamp column compared against the cutoff.
	// Defaults to created_at.
	Column string

	// Only restricts the pass to these tables; Except excludes tables.
	// Mutually exclusive.
	Only   []string
	Except []string

	OnConflict ConflictPolicy
}

// Validate checks the mutual-exclusion rules and applies defaults.
func (c *GlobalConfig) Validate() error {
	if c.OlderThan == nil && c.NewerThan == nil {
		return ErrNoBound
	}
	if c.OlderThan != nil && c.NewerThan != nil {
		return ErrBothBounds
	}
	if len(c.Only) > 0 && len(c.Except) > 0 {
		return ErrOnlyAndExcept
	}
	if c.Column == "" {
		c.Column = "created_at"
	}
	if c.OnConflict == "" {
		c.OnConflict = Warn
	}
	return nil
}

// scope resolves the configured bound into a SQL predicate at now:
// older_than → column < cutoff, newer_than → column >= cutoff.
func (c *GlobalConfig) scope(now time.Time) (rules.Scope, error) {
	bound, op := c.OlderThan, "<"
	if c.NewerThan != nil {
		bound, op = c.NewerThan, ">="
	}
	cutoff, err := rules.ResolveCutoff(bound, now)
	if err != nil {
		return rules.Scope{}, err
	}
	return rules.Scope{Where: c.Column + " " + op + " ?", Args: []any{cutoff}}, nil
}

// includes applies the only/except table filter.
func (c *GlobalConfig) includes(table string) bool {
	if len(c.Only) > 0 {
		for _, t := range c.Only {
			if t == table {
				return true
			}
		}
		return false
	}
	for _, t := range c.Except {
		if t == table {
			return false
		}
	}
	return true
}
