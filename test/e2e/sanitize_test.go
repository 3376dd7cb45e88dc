package e2e

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/dbscrub/pkg/database"
	"github.com/codeready-toolchain/dbscrub/pkg/executor"
	"github.com/codeready-toolchain/dbscrub/pkg/generators"
	"github.com/codeready-toolchain/dbscrub/pkg/pruning"
	"github.com/codeready-toolchain/dbscrub/pkg/rules"
	"github.com/codeready-toolchain/dbscrub/pkg/runner"
	"github.com/codeready-toolchain/dbscrub/pkg/schema"
	"github.com/codeready-toolchain/dbscrub/pkg/validate"
	"github.com/codeready-toolchain/dbscrub/test/util"
)

func seedSchema(t *testing.T, client *database.Client) {
	t.Helper()
	ctx := context.Background()
	stmts := []string{
		`CREATE TABLE users (
			id BIGSERIAL PRIMARY KEY,
			email TEXT NOT NULL,
			first_name TEXT,
			last_name TEXT,
			api_token TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now())`,
		`CREATE TABLE sessions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT REFERENCES users(id),
			token TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now())`,
		`CREATE TABLE audit_events (
			id BIGSERIAL PRIMARY KEY,
			actor_email TEXT,
			action TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now())`,
	}
	for _, stmt := range stmts {
		_, err := client.DB().ExecContext(ctx, stmt)
		require.NoError(t, err)
	}

	_, err := client.DB().ExecContext(ctx, `
		INSERT INTO users (email, first_name, last_name, api_token, created_at) VALUES
		('alice@real.com', 'Alice', 'Smith', 'sk-live-1', now()),
		('bob@real.com', 'Bob', 'Jones', NULL, now())`)
	require.NoError(t, err)
	_, err = client.DB().ExecContext(ctx, `
		INSERT INTO sessions (user_id, token) VALUES (1, 'tok-1'), (2, 'tok-2')`)
	require.NoError(t, err)
	_, err = client.DB().ExecContext(ctx, `
		INSERT INTO audit_events (actor_email, action, created_at) VALUES
		('alice@real.com', 'login', now() - interval '2 years'),
		('bob@real.com', 'login', now())`)
	require.NoError(t, err)
}

func testRegistry(t *testing.T) *rules.Registry {
	t.Helper()
	registry := rules.NewRegistry()
	require.NoError(t, registry.Register(
		rules.NewSanitizer("users").
			Name("user").
			Scrub("email", rules.FakeEmail(generators.EmailOptions{Prefix: "user"})).
			Scrub("first_name", rules.MatchLength(generators.Word)).
			Scrub("last_name", rules.MatchLength(generators.Word)).
			Scrub("api_token", rules.Null())))
	require.NoError(t, registry.Register(
		rules.NewSanitizer("sessions").Name("session").Truncate().VerifyDefault()))
	return registry
}

func TestSanitizeRun_Postgres(t *testing.T) {
	client := util.SetupTestDatabase(t)
	seedSchema(t, client)
	ctx := context.Background()

	registry := testRegistry(t)
	catalog := schema.NewPostgresCatalog(client.DB())
	pruner := pruning.NewEngine(client.Dialect(), catalog, registry, &pruning.GlobalConfig{
		OlderThan: 365 * 24 * time.Hour,
	})

	summary, err := runner.New(client, catalog, registry, pruner).Run(ctx, runner.Request{
		Options: executor.Options{Strict: true},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.Processed)
	assert.Equal(t, int64(2), summary.Sanitized)
	assert.Equal(t, int64(1), summary.Pruned, "the two-year-old audit event is pruned globally")

	var email, first string
	var token *string
	require.NoError(t, client.DB().QueryRowContext(ctx,
		`SELECT email, first_name, api_token FROM users WHERE id = 1`).Scan(&email, &first, &token))
	assert.Equal(t, "user1@example.test", email)
	assert.NotEqual(t, "Alice", first)
	assert.NotEmpty(t, first)
	assert.Nil(t, token)

	var sessions int64
	require.NoError(t, client.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions`).Scan(&sessions))
	assert.Zero(t, sessions)

	var audits int64
	require.NoError(t, client.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_events`).Scan(&audits))
	assert.Equal(t, int64(1), audits)

	// The scrubbed database passes leak validation.
	v := validate.New(client.DB(), client.Dialect(), catalog, registry, validate.Config{
		TokenColumns: []string{"api_token"},
	})
	leaks, err := v.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, leaks)
}

func TestSanitizeRun_ValidatorCatchesSkippedScrub(t *testing.T) {
	client := util.SetupTestDatabase(t)
	seedSchema(t, client)
	ctx := context.Background()

	// A registry that leaves email untouched.
	registry := rules.NewRegistry()
	require.NoError(t, registry.Register(
		rules.NewSanitizer("users").Keep("email", "first_name", "last_name", "api_token")))

	catalog := schema.NewPostgresCatalog(client.DB())
	v := validate.New(client.DB(), client.Dialect(), catalog, registry, validate.Config{})
	leaks, err := v.Run(ctx)
	require.NoError(t, err)
	require.Len(t, leaks, 1)
	assert.Equal(t, validate.LeakRealEmail, leaks[0].Kind)
	assert.Equal(t, int64(2), leaks[0].Count)
}

func TestGlobalPrune_SkipsTablesWithDependents(t *testing.T) {
	client := util.SetupTestDatabase(t)
	seedSchema(t, client)
	ctx := context.Background()

	// Backdate the users so the global pass wants to delete them; sessions
	// still reference them, so the FK rejects the delete and the pass must
	// skip the table instead of aborting.
	_, err := client.DB().ExecContext(ctx,
		`UPDATE users SET created_at = now() - interval '2 years'`)
	require.NoError(t, err)

	registry := rules.NewRegistry()
	catalog := schema.NewPostgresCatalog(client.DB())
	pruner := pruning.NewEngine(client.Dialect(), catalog, registry, &pruning.GlobalConfig{
		OlderThan: 365 * 24 * time.Hour,
		Only:      []string{"users", "audit_events"},
	})

	var results []pruning.TableResult
	err = database.InTx(ctx, client.DB(), func(tx *sql.Tx) error {
		var passErr error
		results, passErr = pruner.GlobalPass(ctx, tx, pruning.Options{})
		return passErr
	})
	require.NoError(t, err)

	byTable := map[string]pruning.TableResult{}
	for _, r := range results {
		byTable[r.Table] = r
	}
	assert.Equal(t, pruning.ActionSkippedDependents, byTable["users"].Action)
	assert.Equal(t, pruning.ActionPruned, byTable["audit_events"].Action)

	var users int64
	require.NoError(t, client.DB().QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`).Scan(&users))
	assert.Equal(t, int64(2), users, "the FK-protected table survives intact")
}
