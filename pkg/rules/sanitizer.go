// Package rules holds the declarative sanitization rule model: per-table
// column dispositions, bulk and prune operations, verification declarations,
// and the registry the engines resolve sanitizers from.
package rules

import (
	"fmt"
	"time"
)

// DispositionKind classifies what happens to a column.
type DispositionKind int

const (
	// KindScrub replaces the column value with generator output.
	KindScrub DispositionKind = iota
	// KindKeep declares the column as non-PII, left unchanged.
	KindKeep
)

// Generator computes the replacement value for one column of one row. It may
// cross-reference other columns through the RowContext.
type Generator func(rc *RowContext) (any, error)

// Disposition is one column's declared handling.
type Disposition struct {
	Kind DispositionKind
	Gen  Generator
}

// BulkKind selects the terminal bulk operation.
type BulkKind int

const (
	// BulkTruncate removes all rows and resets the identity counter.
	BulkTruncate BulkKind = iota
	// BulkDelete issues a single bulk DELETE, optionally scoped.
	BulkDelete
	// BulkDestroy deletes rows one by one so FK cascades and row-level
	// cleanup fire per row.
	BulkDestroy
)

func (k BulkKind) String() string {
	switch k {
	case BulkTruncate:
		return "truncate"
	case BulkDelete:
		return "delete"
	case BulkDestroy:
		return "destroy"
	}
	return fmt.Sprintf("bulk(%d)", int(k))
}

// BulkOp is a terminal deletion replacing the row-level pipeline.
type BulkOp struct {
	Kind  BulkKind
	Scope *Scope // nil for truncate and untargeted delete/destroy
}

// Scope is a SQL row predicate with `?` placeholders, rebound to the target
// dialect at execution time.
type Scope struct {
	Where string
	Args  []any
}

// TableCheck is a table-level verification: it fails when any row matches.
type TableCheck struct {
	Where   string
	Args    []any
	Message string
}

// RecordCheck is a per-record verification run against the re-fetched row
// after its update is persisted.
type RecordCheck struct {
	Fn      func(row map[string]any) bool
	Message string
}

// DefaultProtectedColumns are always exempt from coverage checks.
var DefaultProtectedColumns = []string{"id", "created_at", "updated_at"}

// Sanitizer is the immutable rule set for one table. Build it with
// NewSanitizer and the chained declaration methods, then hand it to a
// Registry; declaration errors surface at Register time.
type Sanitizer struct {
	table      string
	name       string
	primaryKey string
	timestamp  string // prune default column
	protected  []string

	order        []string // column declaration order
	dispositions map[string]Disposition

	bulk          *BulkOp
	prune         *Scope
	verifyTable   *TableCheck
	verifyRecord  *RecordCheck
	verifyDefault bool

	err error // first declaration error, surfaced at Register
}

// NewSanitizer starts a rule set bound to table. The friendly name defaults
// to the table name.
func NewSanitizer(table string) *Sanitizer {
	return &Sanitizer{
		table:        table,
		name:         table,
		primaryKey:   "id",
		timestamp:    "created_at",
		protected:    append([]string(nil), DefaultProtectedColumns...),
		dispositions: make(map[string]Disposition),
	}
}

// Name sets the friendly name used for selection at the CLI boundary.
func (s *Sanitizer) Name(name string) *Sanitizer {
	s.name = name
	return s
}

// PrimaryKey overrides the primary-key column (default "id").
func (s *Sanitizer) PrimaryKey(col string) *Sanitizer {
	s.primaryKey = col
	return s
}

// Protected replaces the protected column set for this sanitizer.
func (s *Sanitizer) Protected(cols ...string) *Sanitizer {
	s.protected = cols
	return s
}

// Scrub declares that col is replaced by gen's output.
func (s *Sanitizer) Scrub(col string, gen Generator) *Sanitizer {
	s.declare(col, Disposition{Kind: KindScrub, Gen: gen})
	return s
}

// Keep declares col as non-PII, left unchanged.
func (s *Sanitizer) Keep(cols ...string) *Sanitizer {
	for _, col := range cols {
		s.declare(col, Disposition{Kind: KindKeep})
	}
	return s
}

func (s *Sanitizer) declare(col string, d Disposition) {
	if existing, ok := s.dispositions[col]; ok {
		if existing.Kind != d.Kind && s.err == nil {
			s.err = fmt.Errorf("%w: %s.%s", ErrConflictingDisposition, s.table, col)
		}
		return
	}
	s.dispositions[col] = d
	s.order = append(s.order, col)
}

// Truncate declares a truncate bulk operation.
func (s *Sanitizer) Truncate() *Sanitizer {
	return s.setBulk(&BulkOp{Kind: BulkTruncate})
}

// Delete declares a bulk DELETE, optionally scoped ("status = ?", args...).
func (s *Sanitizer) Delete(where string, args ...any) *Sanitizer {
	return s.setBulk(&BulkOp{Kind: BulkDelete, Scope: scopeOrNil(where, args)})
}

// Destroy declares row-by-row deletion, optionally scoped.
func (s *Sanitizer) Destroy(where string, args ...any) *Sanitizer {
	return s.setBulk(&BulkOp{Kind: BulkDestroy, Scope: scopeOrNil(where, args)})
}

func scopeOrNil(where string, args []any) *Scope {
	if where == "" {
		return nil
	}
	return &Scope{Where: where, Args: args}
}

func (s *Sanitizer) setBulk(op *BulkOp) *Sanitizer {
	if s.bulk != nil {
		if s.err == nil {
			s.err = fmt.Errorf("%w: table %s", ErrConflictingBulkOp, s.table)
		}
		return s
	}
	s.bulk = op
	return s
}

// Prune declares an arbitrary pre-deletion scope, run before the record loop.
func (s *Sanitizer) Prune(where string, args ...any) *Sanitizer {
	s.prune = &Scope{Where: where, Args: args}
	return s
}

// PruneOlderThan prunes rows whose timestamp column is older than the cutoff.
// The cutoff may be a time.Duration (now minus duration), a time.Time, or a
// date string (RFC 3339 or YYYY-MM-DD). The column defaults to created_at.
func (s *Sanitizer) PruneOlderThan(cutoff any, column ...string) *Sanitizer {
	return s.pruneAge(cutoff, "<", column)
}

// PruneNewerThan prunes rows at or after the cutoff.
func (s *Sanitizer) PruneNewerThan(cutoff any, column ...string) *Sanitizer {
	return s.pruneAge(cutoff, ">=", column)
}

func (s *Sanitizer) pruneAge(cutoff any, op string, column []string) *Sanitizer {
	col := s.timestamp
	if len(column) > 0 {
		col = column[0]
	}
	at, err := ResolveCutoff(cutoff, time.Now())
	if err != nil {
		if s.err == nil {
			s.err = fmt.Errorf("table %s: %w", s.table, err)
		}
		return s
	}
	s.prune = &Scope{Where: col + " " + op + " ?", Args: []any{at}}
	return s
}

// VerifyTable declares a table-level check: verification fails when any row
// matches where.
func (s *Sanitizer) VerifyTable(where, message string, args ...any) *Sanitizer {
	s.verifyTable = &TableCheck{Where: where, Args: args, Message: message}
	return s
}

// VerifyRecord declares a per-record check run against each re-fetched row.
func (s *Sanitizer) VerifyRecord(fn func(row map[string]any) bool, message string) *Sanitizer {
	s.verifyRecord = &RecordCheck{Fn: fn, Message: message}
	return s
}

// VerifyDefault requests the operation-derived default verification. Only
// valid for bulk sanitizers; the executor rejects it otherwise.
func (s *Sanitizer) VerifyDefault() *Sanitizer {
	s.verifyDefault = true
	return s
}

// Accessors used by the engines.

func (s *Sanitizer) Table() string                    { return s.table }
func (s *Sanitizer) FriendlyName() string             { return s.name }
func (s *Sanitizer) PrimaryKeyColumn() string         { return s.primaryKey }
func (s *Sanitizer) ProtectedColumns() []string       { return append([]string(nil), s.protected...) }
func (s *Sanitizer) Bulk() *BulkOp                    { return s.bulk }
func (s *Sanitizer) PruneScope() *Scope               { return s.prune }
func (s *Sanitizer) TableVerification() *TableCheck   { return s.verifyTable }
func (s *Sanitizer) RecordVerification() *RecordCheck { return s.verifyRecord }
func (s *Sanitizer) WantsDefaultVerification() bool   { return s.verifyDefault }

// Disposition returns the declared disposition for col.
func (s *Sanitizer) Disposition(col string) (Disposition, bool) {
	d, ok := s.dispositions[col]
	return d, ok
}

// ScrubbedColumns returns scrub-declared columns in declaration order.
func (s *Sanitizer) ScrubbedColumns() []string {
	return s.columnsOfKind(KindScrub)
}

// KeptColumns returns keep-declared columns in declaration order.
func (s *Sanitizer) KeptColumns() []string {
	return s.columnsOfKind(KindKeep)
}

// DefinedColumns returns every declared column in declaration order.
func (s *Sanitizer) DefinedColumns() []string {
	return append([]string(nil), s.order...)
}

func (s *Sanitizer) columnsOfKind(kind DispositionKind) []string {
	var out []string
	for _, col := range s.order {
		if s.dispositions[col].Kind == kind {
			out = append(out, col)
		}
	}
	return out
}

func (s *Sanitizer) isProtected(col string) bool {
	for _, p := range s.protected {
		if p == col {
			return true
		}
	}
	return false
}

// ResolveCutoff turns a duration, time, or date string into an absolute
// cutoff instant.
func ResolveCutoff(v any, now time.Time) (time.Time, error) {
	switch c := v.(type) {
	case time.Duration:
		return now.Add(-c), nil
	case time.Time:
		return c, nil
	case string:
		if t, err := time.Parse(time.RFC3339, c); err == nil {
			return t, nil
		}
		if t, err := time.Parse("2006-01-02", c); err == nil {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("unparseable cutoff date %q", c)
	default:
		return time.Time{}, fmt.Errorf("unsupported cutoff type %T", v)
	}
}
