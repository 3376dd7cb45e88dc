package safecopy

import (
	"io"

	"github.com/codeready-toolchain/dbscrub/pkg/config"
	"github.com/codeready-toolchain/dbscrub/pkg/database"
)

// ConfirmMode selects how the destructive target provisioning is approved.
type ConfirmMode int

const (
	// ConfirmInteractive prompts the operator to type the target database
	// name back; a mismatch aborts.
	ConfirmInteractive ConfirmMode = iota
	// ConfirmYes skips the prompt, for automation.
	ConfirmYes
	// ConfirmNo declines outright and aborts immediately.
	ConfirmNo
)

// Config drives one safe-copy run.
type Config struct {
	// SourceURL is the database being copied. It is never written to after
	// the run starts.
	SourceURL string
	// TargetURL is the database that gets dropped, recreated, and scrubbed.
	TargetURL string
	// PrimaryURL is the process's primary operating connection; the target
	// must not be it. May be empty when the process has no primary.
	PrimaryURL string

	Confirm ConfirmMode
	// Input feeds the interactive confirmation (defaults to os.Stdin).
	Input io.Reader
	// Output receives the confirmation prompt (defaults to os.Stderr).
	Output io.Writer

	// EnforceReadOnlySource turns a successful source write probe from a
	// warning into a SourceWriteAccessError.
	EnforceReadOnlySource bool

	// ExportPath, when set, produces a dump of the scrubbed target.
	ExportPath string
}

// Validate applies the hard safety gates that need no database access:
// resolved targets, source distinct from target, target distinct from the
// primary connection.
func (c *Config) Validate() error {
	if c.SourceURL == "" {
		return config.NewConfigurationError("source_url", "source connection target is required")
	}
	if c.TargetURL == "" {
		return config.NewConfigurationError("target_url", "target connection target is required")
	}
	if sameDatabase(c.SourceURL, c.TargetURL) {
		return config.NewConfigurationError("target_url", "target must differ from source")
	}
	if c.PrimaryURL != "" && sameDatabase(c.TargetURL, c.PrimaryURL) {
		return config.NewConfigurationError("target_url", "target must differ from the primary operating database")
	}
	return nil
}

// sameDatabase compares two connection targets by credential-free identity,
// so the same database reached with different credentials still matches.
func sameDatabase(a, b string) bool {
	return database.ElideCredentials(a) == database.ElideCredentials(b)
}
