package schema

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteCatalog introspects a SQLite database through sqlite_master and the
// table_info / foreign_key_list pragmas. Used by the unit-test harness and
// small single-file deployments.
type SQLiteCatalog struct {
	db *sql.DB
}

// NewSQLiteCatalog wraps an open SQLite connection.
func NewSQLiteCatalog(db *sql.DB) *SQLiteCatalog {
	return &SQLiteCatalog{db: db}
}

func (c *SQLiteCatalog) Tables(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (c *SQLiteCatalog) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &primaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan table_info row: %w", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return cols, nil
}

// PrimaryKey returns the leading declared primary-key column. Tables relying
// only on the implicit rowid report none.
func (c *SQLiteCatalog) PrimaryKey(ctx context.Context, table string) (string, error) {
	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf(`PRAGMA table_info(%q)`, table))
	if err != nil {
		return "", fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			dflt       sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &primaryKey); err != nil {
			return "", fmt.Errorf("failed to scan table_info row: %w", err)
		}
		if primaryKey == 1 {
			return name, nil
		}
	}
	return "", rows.Err()
}

func (c *SQLiteCatalog) HasColumn(ctx context.Context, table, column string) (bool, error) {
	cols, err := c.Columns(ctx, table)
	if err != nil {
		return false, err
	}
	for _, col := range cols {
		if col == column {
			return true, nil
		}
	}
	return false, nil
}

func (c *SQLiteCatalog) Dependents(ctx context.Context, table string) ([]string, error) {
	tables, err := c.Tables(ctx)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, t := range tables {
		if t == table {
			continue
		}
		refs, err := c.references(ctx, t, table)
		if err != nil {
			return nil, err
		}
		if refs {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *SQLiteCatalog) references(ctx context.Context, from, to string) (bool, error) {
	rows, err := c.db.QueryContext(ctx,
		fmt.Sprintf(`PRAGMA foreign_key_list(%q)`, from))
	if err != nil {
		return false, fmt.Errorf("failed to inspect foreign keys of %s: %w", from, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, seq                   int
			refTable, fromCol, toCol  sql.NullString
			onUpdate, onDelete, match sql.NullString
		)
		if err := rows.Scan(&id, &seq, &refTable, &fromCol, &toCol, &onUpdate, &onDelete, &match); err != nil {
			return false, fmt.Errorf("failed to scan foreign_key_list row: %w", err)
		}
		if refTable.String == to {
			return true, nil
		}
	}
	return false, rows.Err()
}
