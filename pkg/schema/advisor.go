package schema

import "context"

// Candidate is a pruning-candidate suggestion produced by the advisory scan.
type Candidate struct {
	Table      string
	Column     string   // timestamp column found
	Dependents []string // FK dependents that a prune would have to respect
}

// PruneCandidates suggests tables worth a prune declaration: tables carrying
// the timestamp column that no sanitizer covers yet. Advisory tooling only;
// the pruning engine never consults it.
func PruneCandidates(ctx context.Context, cat Catalog, covered map[string]bool, timestampColumn string) ([]Candidate, error) {
	if timestampColumn == "" {
		timestampColumn = "created_at"
	}
	tables, err := cat.Tables(ctx)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, table := range tables {
		if covered[table] {
			continue
		}
		has, err := cat.HasColumn(ctx, table, timestampColumn)
		if err != nil {
			return nil, err
		}
		if !has {
			continue
		}
		deps, err := cat.Dependents(ctx, table)
		if err != nil {
			return nil, err
		}
		out = append(out, Candidate{Table: table, Column: timestampColumn, Dependents: deps})
	}
	return out, nil
}
