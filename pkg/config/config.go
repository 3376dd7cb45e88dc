// Package config loads the dbscrub.yaml tool configuration: database
// connection, global pruning bounds, sanitization run options, read-time
// masking enablement, safe-copy settings, and leak-validation rules.
// Environment variables override file values; engines receive explicit
// config objects at construction.
package config

import (
	"time"

	"github.com/codeready-toolchain/dbscrub/pkg/pruning"
)

// Config is the complete tool configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Pruning    *PruningConfig   `yaml:"pruning"`
	Sanitize   SanitizeConfig   `yaml:"sanitize"`
	Masking    MaskingConfig    `yaml:"masking"`
	SafeCopy   SafeCopyConfig   `yaml:"safecopy"`
	Validation ValidationConfig `yaml:"validation"`
	Verbose    bool             `yaml:"verbose"`
}

// DatabaseConfig selects the primary operating database.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// PruningConfig is the YAML form of the global pruning pass. Exactly one of
// older_than / newer_than must be set; values are Go durations ("8760h") or
// dates (RFC 3339 or YYYY-MM-DD).
type PruningConfig struct {
	OlderThan  string   `yaml:"older_than"`
	NewerThan  string   `yaml:"newer_than"`
	Column     string   `yaml:"column"`
	Only       []string `yaml:"only"`
	Except     []string `yaml:"except"`
	OnConflict string   `yaml:"on_conflict"`
}

// Global resolves the YAML form into the engine's config. Returns nil for a
// nil receiver so an absent pruning section disables the global pass.
func (p *PruningConfig) Global() (*pruning.GlobalConfig, error) {
	if p == nil {
		return nil, nil
	}
	cfg := &pruning.GlobalConfig{
		OlderThan:  parseBound(p.OlderThan),
		NewerThan:  parseBound(p.NewerThan),
		Column:     p.Column,
		Only:       p.Only,
		Except:     p.Except,
		OnConflict: pruning.ConflictPolicy(p.OnConflict),
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigurationError{Field: "pruning", Reason: "invalid global pruning bounds", Err: err}
	}
	return cfg, nil
}

// parseBound interprets a bound as a duration when it parses as one, and
// passes it through otherwise so date strings resolve at execution time.
func parseBound(s string) any {
	if s == "" {
		return nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return s
}

// SanitizeConfig carries the default run options; CLI flags and environment
// toggles override them per invocation. Strict is a pointer so an explicit
// `strict: false` survives the defaults merge.
type SanitizeConfig struct {
	Strict          *bool `yaml:"strict"`
	DryRun          bool  `yaml:"dry_run"`
	ContinueOnError bool  `yaml:"continue_on_error"`
	BatchSize       int   `yaml:"batch_size"`
	DisablePrune    bool  `yaml:"disable_prune"`
}

// StrictEnabled reports the effective strict setting; unset means strict.
func (s SanitizeConfig) StrictEnabled() bool {
	return s.Strict == nil || *s.Strict
}

// MaskingConfig enables the read-time masking overlay.
type MaskingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// SafeCopyConfig carries the copy-then-scrub workflow settings. Confirmation
// mode comes from the CLI, never from the file.
type SafeCopyConfig struct {
	SourceURL             string `yaml:"source_url"`
	TargetURL             string `yaml:"target_url"`
	EnforceReadOnlySource bool   `yaml:"enforce_readonly_source"`
	ExportPath            string `yaml:"export_path"`
}

// ValidationConfig feeds the leak validator.
type ValidationConfig struct {
	AllowedDomains []string `yaml:"allowed_domains"`
	TokenColumns   []string `yaml:"token_columns"`
}
