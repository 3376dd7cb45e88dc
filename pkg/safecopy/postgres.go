package safecopy

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/codeready-toolchain/dbscrub/pkg/database"
)

// PGProvisioner prepares a Postgres target: connects to the maintenance
// database on the same server, terminates backends on the target, drops it,
// and recreates it.
type PGProvisioner struct {
	// MaintenanceDB is the database used for the admin connection.
	// Defaults to "postgres".
	MaintenanceDB string
}

func (p *PGProvisioner) Provision(ctx context.Context, targetURL string) error {
	name, err := database.DatabaseName(targetURL)
	if err != nil {
		return err
	}
	maintenance := p.MaintenanceDB
	if maintenance == "" {
		maintenance = "postgres"
	}
	adminURL, err := database.ReplaceDatabase(targetURL, maintenance)
	if err != nil {
		return err
	}

	return database.WithConnection(ctx, adminURL, func(c *database.Client) error {
		_, err := c.DB().ExecContext(ctx,
			`SELECT pg_terminate_backend(pid) FROM pg_stat_activity
			 WHERE datname = $1 AND pid <> pg_backend_pid()`, name)
		if err != nil {
			return fmt.Errorf("failed to terminate backends on %s: %w", name, err)
		}

		quoted := c.Dialect().QuoteIdent(name)
		if _, err := c.DB().ExecContext(ctx, "DROP DATABASE IF EXISTS "+quoted); err != nil {
			return fmt.Errorf("failed to drop database %s: %w", name, err)
		}
		if _, err := c.DB().ExecContext(ctx, "CREATE DATABASE "+quoted); err != nil {
			return fmt.Errorf("failed to create database %s: %w", name, err)
		}
		return nil
	})
}

// PGDumpCopier streams pg_dump output straight into pg_restore, so the copy
// needs no intermediate file and both databases are only held open for the
// duration of the transfer.
type PGDumpCopier struct{}

func (PGDumpCopier) Copy(ctx context.Context, sourceURL, targetURL string) error {
	dump := exec.CommandContext(ctx, "pg_dump",
		"--format=custom", "--no-owner", "--no-privileges", "--dbname", sourceURL)
	restore := exec.CommandContext(ctx, "pg_restore",
		"--no-owner", "--no-privileges", "--dbname", targetURL)

	var dumpErr, restoreErr bytes.Buffer
	dump.Stderr = &dumpErr
	restore.Stderr = &restoreErr

	pipe, err := dump.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to wire pg_dump output: %w", err)
	}
	restore.Stdin = pipe

	if err := restore.Start(); err != nil {
		return fmt.Errorf("failed to start pg_restore: %w", err)
	}
	if err := dump.Start(); err != nil {
		_ = restore.Process.Kill()
		_ = restore.Wait()
		return fmt.Errorf("failed to start pg_dump: %w", err)
	}

	dumpWaitErr := dump.Wait()
	restoreWaitErr := restore.Wait()
	if dumpWaitErr != nil {
		return fmt.Errorf("pg_dump of %s failed: %w: %s",
			database.ElideCredentials(sourceURL), dumpWaitErr, dumpErr.String())
	}
	if restoreWaitErr != nil {
		return fmt.Errorf("pg_restore into %s failed: %w: %s",
			database.ElideCredentials(targetURL), restoreWaitErr, restoreErr.String())
	}
	return nil
}

// PGDumpExporter writes a dump of the target to a file, in pg_restore's
// custom format or plain SQL.
type PGDumpExporter struct {
	Plain bool
}

func (e PGDumpExporter) Export(ctx context.Context, targetURL, path string) error {
	format := "custom"
	if e.Plain {
		format = "plain"
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "pg_dump",
		"--format="+format, "--no-owner", "--no-privileges",
		"--file", path, "--dbname", targetURL)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pg_dump export of %s failed: %w: %s",
			database.ElideCredentials(targetURL), err, stderr.String())
	}
	return nil
}
