package safecopy

import (
	"context"
	"log/slog"

	"github.com/codeready-toolchain/dbscrub/pkg/database"
)

const probeTable = "dbscrub_write_probe"

// ProbeWrite attempts a reversible write against url: create and drop a
// sentinel table. A rejected write means the connection is read-only; a
// failed connection is an error, not a verdict.
func ProbeWrite(ctx context.Context, url string) (bool, error) {
	writable := false
	err := database.WithConnection(ctx, url, func(c *database.Client) error {
		table := c.Dialect().QuoteIdent(probeTable)
		if _, err := c.DB().ExecContext(ctx, "CREATE TABLE "+table+" (id integer)"); err != nil {
			slog.Debug("Write probe rejected", "error", err)
			return nil
		}
		writable = true
		if _, err := c.DB().ExecContext(ctx, "DROP TABLE "+table); err != nil {
			slog.Warn("Failed to drop write-probe table, remove it manually",
				"table", probeTable, "database", database.ElideCredentials(url), "error", err)
		}
		return nil
	})
	return writable, err
}
