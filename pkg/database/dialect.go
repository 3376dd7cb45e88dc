package database

import (
	"strconv"
	"strings"
)

// Dialect abstracts the SQL differences between the supported engines:
// placeholder style, identifier quoting, and truncate semantics. Engine code
// writes queries with `?` placeholders and rebinds them per dialect.
type Dialect interface {
	// Name is the dialect identifier ("postgres", "sqlite").
	Name() string

	// Rebind converts `?` placeholders to the dialect's native style.
	Rebind(query string) string

	// QuoteIdent quotes a table or column identifier.
	QuoteIdent(ident string) string

	// TruncateStmts returns the statements removing all rows from table and
	// resetting its identity counter.
	TruncateStmts(table string) []string
}

var (
	// Postgres is the PostgreSQL dialect.
	Postgres Dialect = postgresDialect{}
	// SQLite is the SQLite dialect.
	SQLite Dialect = sqliteDialect{}
)

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (postgresDialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d postgresDialect) TruncateStmts(table string) []string {
	return []string{"TRUNCATE TABLE " + d.QuoteIdent(table) + " RESTART IDENTITY"}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Rebind(query string) string { return query }

func (sqliteDialect) QuoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (d sqliteDialect) TruncateStmts(table string) []string {
	return []string{
		"DELETE FROM " + d.QuoteIdent(table),
		// sqlite_sequence only exists once an AUTOINCREMENT table is created;
		// callers ignore a failure of this statement.
		"DELETE FROM sqlite_sequence WHERE name = '" + strings.ReplaceAll(table, "'", "''") + "'",
	}
}
