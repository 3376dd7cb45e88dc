package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dbscrub/pkg/schema"
)

func usersCatalog() *schema.StaticCatalog {
	return schema.NewStaticCatalog(map[string][]string{
		"users": {"id", "email", "first_name", "last_name", "created_at", "updated_at"},
	})
}

func TestLint_FullCoverageIsClean(t *testing.T) {
	s := NewSanitizer("users").
		Scrub("email", Static("x@example.test")).
		Scrub("first_name", Static("a")).
		Scrub("last_name", Static("b"))

	issues, err := s.Lint(context.Background(), usersCatalog())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestLint_MissingDeclarationNamesColumn(t *testing.T) {
	s := NewSanitizer("users").
		Scrub("email", Static("x@example.test")).
		Scrub("first_name", Static("a"))

	issues, err := s.Lint(context.Background(), usersCatalog())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueUndefinedColumns, issues[0].Kind)
	assert.Equal(t, []string{"last_name"}, issues[0].Columns)
}

func TestLint_BulkOpSuppressesCoverageButFlagsDispositions(t *testing.T) {
	s := NewSanitizer("users").
		Truncate().
		Scrub("email", Static("x"))

	issues, err := s.Lint(context.Background(), usersCatalog())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueIgnoredDispositions, issues[0].Kind)
	assert.Equal(t, []string{"email"}, issues[0].Columns)
}

func TestLint_BulkOpAloneIsClean(t *testing.T) {
	s := NewSanitizer("users").Truncate()

	issues, err := s.Lint(context.Background(), usersCatalog())
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestLint_StaleColumns(t *testing.T) {
	s := NewSanitizer("users").
		Scrub("email", Static("x")).
		Scrub("first_name", Static("a")).
		Scrub("last_name", Static("b")).
		Scrub("legacy_ssn", Static(nil))

	issues, err := s.Lint(context.Background(), usersCatalog())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueStaleColumns, issues[0].Kind)
	assert.Equal(t, []string{"legacy_ssn"}, issues[0].Columns)
}

func TestLint_TableMissing(t *testing.T) {
	s := NewSanitizer("ghosts").Scrub("email", Static("x"))

	issues, err := s.Lint(context.Background(), usersCatalog())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueTableMissing, issues[0].Kind)
}

func TestUndefinedColumns_ProtectedExempt(t *testing.T) {
	s := NewSanitizer("users")

	undefined, err := s.UndefinedColumns(context.Background(), usersCatalog())
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "first_name", "last_name"}, undefined)
}
