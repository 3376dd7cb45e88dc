// Package schema provides the schema catalog the engines introspect: table
// lists, column lists, and foreign-key dependents. Postgres and SQLite
// catalogs query the live database; the static catalog backs tests.
package schema

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownTable is returned when a table does not exist in the schema.
var ErrUnknownTable = errors.New("unknown table")

// Catalog answers schema questions for one database.
type Catalog interface {
	// Tables lists all user tables, sorted.
	Tables(ctx context.Context) ([]string, error)

	// Columns lists the columns of table in ordinal order.
	// Returns ErrUnknownTable for missing tables.
	Columns(ctx context.Context, table string) ([]string, error)

	// HasColumn reports whether table has the named column.
	HasColumn(ctx context.Context, table, column string) (bool, error)

	// PrimaryKey returns table's primary-key column, or "" when the table
	// declares none. Composite keys report the leading column.
	PrimaryKey(ctx context.Context, table string) (string, error)

	// Dependents lists tables holding a foreign key into table.
	Dependents(ctx context.Context, table string) ([]string, error)
}

// StaticCatalog is an in-memory Catalog for tests and offline linting.
type StaticCatalog struct {
	columns     map[string][]string
	dependents  map[string][]string
	primaryKeys map[string]string
}

// NewStaticCatalog builds a catalog from a table → columns map.
func NewStaticCatalog(columns map[string][]string) *StaticCatalog {
	return &StaticCatalog{
		columns:     columns,
		dependents:  make(map[string][]string),
		primaryKeys: make(map[string]string),
	}
}

// WithDependents records dependent tables for FK-aware advisory queries.
func (c *StaticCatalog) WithDependents(table string, dependents ...string) *StaticCatalog {
	c.dependents[table] = dependents
	return c
}

// WithPrimaryKey overrides the primary key reported for table. An empty
// column marks the table keyless.
func (c *StaticCatalog) WithPrimaryKey(table, column string) *StaticCatalog {
	c.primaryKeys[table] = column
	return c
}

func (c *StaticCatalog) Tables(_ context.Context) ([]string, error) {
	out := make([]string, 0, len(c.columns))
	for t := range c.columns {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

func (c *StaticCatalog) Columns(_ context.Context, table string) ([]string, error) {
	cols, ok := c.columns[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return append([]string(nil), cols...), nil
}

func (c *StaticCatalog) HasColumn(ctx context.Context, table, column string) (bool, error) {
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

// PrimaryKey reports the override if set, otherwise an "id" column when the
// table has one.
func (c *StaticCatalog) PrimaryKey(ctx context.Context, table string) (string, error) {
	if pk, ok := c.primaryKeys[table]; ok {
		return pk, nil
	}
	has, err := c.HasColumn(ctx, table, "id")
	if err != nil || !has {
		return "", err
	}
	return "id", nil
}

func (c *StaticCatalog) Dependents(_ context.Context, table string) ([]string, error) {
	return append([]string(nil), c.dependents[table]...), nil
}
