package executor

import (
	"database/sql"
	"fmt"
)

// scanRowMap scans the current row into a column → value map. []byte values
// are converted to string so generators see text, not driver buffers.
func scanRowMap(rows *sql.Rows, cols []string) (map[string]any, error) {
	ptrs := make([]any, len(cols))
	vals := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	out := make(map[string]any, len(cols))
	for i, col := range cols {
		if b, ok := vals[i].([]byte); ok {
			out[col] = string(b)
			continue
		}
		out[col] = vals[i]
	}
	return out, nil
}
