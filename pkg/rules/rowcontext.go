package rules

import (
	"github.com/codeready-toolchain/dbscrub/pkg/generators"
)

// RowContext gives a generator access to one row while its scrub values are
// being computed: the stored originals, the row identity (the determinism
// seed), and other columns' values by cross-reference.
//
// Cross-references resolve through a memoizing evaluator: Value(col) yields
// col's scrubbed value if col has a scrub rule (evaluating it on demand),
// otherwise the stored value. Raw(col) always yields the stored value. An
// in-progress set detects cyclic references and fails fast with a CycleError
// instead of recursing unboundedly.
type RowContext struct {
	s     *Sanitizer
	raw   map[string]any
	memo  map[string]any
	chain []string
}

// NewRowContext binds a sanitizer to one row's stored values.
func NewRowContext(s *Sanitizer, row map[string]any) *RowContext {
	return &RowContext{
		s:    s,
		raw:  row,
		memo: make(map[string]any),
	}
}

// Table returns the bound table name.
func (rc *RowContext) Table() string { return rc.s.table }

// ID returns the row's primary-key value.
func (rc *RowContext) ID() any { return rc.raw[rc.s.primaryKey] }

// Seed returns the deterministic generator seed for this row.
func (rc *RowContext) Seed() uint64 { return generators.SeedFrom(rc.ID()) }

// Raw returns the stored value of col, bypassing scrub rules. This is the
// explicit escape hatch for rules that must see true originals.
func (rc *RowContext) Raw(col string) any { return rc.raw[col] }

// Original returns the stored value of the column whose rule is currently
// being evaluated. Returns nil outside an evaluation.
func (rc *RowContext) Original() any {
	if len(rc.chain) == 0 {
		return nil
	}
	return rc.raw[rc.chain[len(rc.chain)-1]]
}

// Value returns col's scrubbed value if a scrub rule is declared for it,
// evaluating the rule on demand and memoizing the result; otherwise the
// stored value.
func (rc *RowContext) Value(col string) (any, error) {
	d, ok := rc.s.dispositions[col]
	if !ok || d.Kind != KindScrub {
		return rc.raw[col], nil
	}
	if v, done := rc.memo[col]; done {
		return v, nil
	}
	for _, active := range rc.chain {
		if active == col {
			return nil, &CycleError{Table: rc.s.table, Chain: append(append([]string(nil), rc.chain...), col)}
		}
	}

	rc.chain = append(rc.chain, col)
	v, err := d.Gen(rc)
	rc.chain = rc.chain[:len(rc.chain)-1]
	if err != nil {
		return nil, err
	}
	rc.memo[col] = v
	return v, nil
}

// Sanitize computes every scrub value for row without touching storage.
// The result maps scrubbed column names to their replacement values.
func (s *Sanitizer) Sanitize(row map[string]any) (map[string]any, error) {
	rc := NewRowContext(s, row)
	out := make(map[string]any)
	for _, col := range s.ScrubbedColumns() {
		v, err := rc.Value(col)
		if err != nil {
			return nil, err
		}
		out[col] = v
	}
	return out, nil
}
