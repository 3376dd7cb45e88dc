package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresCatalog introspects the current schema of a Postgres connection
// through information_schema and pg_constraint.
type PostgresCatalog struct {
	db *sql.DB
}

// NewPostgresCatalog wraps an open Postgres connection.
func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

func (c *PostgresCatalog) Tables(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func (c *PostgresCatalog) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return cols, nil
}

func (c *PostgresCatalog) HasColumn(ctx context.Context, table, column string) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = $1 AND column_name = $2
		)`, table, column).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check column %s.%s: %w", table, column, err)
	}
	return exists, nil
}

func (c *PostgresCatalog) PrimaryKey(ctx context.Context, table string) (string, error) {
	var col string
	err := c.db.QueryRowContext(ctx, `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON kcu.constraint_name = tc.constraint_name
		 AND kcu.table_schema = tc.table_schema
		WHERE tc.table_schema = current_schema()
		  AND tc.table_name = $1
		  AND tc.constraint_type = 'PRIMARY KEY'
		ORDER BY kcu.ordinal_position
		LIMIT 1`, table).Scan(&col)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve primary key of %s: %w", table, err)
	}
	return col, nil
}

func (c *PostgresCatalog) Dependents(ctx context.Context, table string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT DISTINCT dep.relname
		FROM pg_constraint con
		JOIN pg_class dep ON dep.oid = con.conrelid
		JOIN pg_class ref ON ref.oid = con.confrelid
		JOIN pg_namespace ns ON ns.oid = ref.relnamespace
		WHERE con.contype = 'f'
		  AND ref.relname = $1
		  AND ns.nspname = current_schema()
		ORDER BY dep.relname`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependents of %s: %w", table, err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
