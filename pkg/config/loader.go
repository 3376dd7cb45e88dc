package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path Load falls back to.
const DefaultConfigFile = "dbscrub.yaml"

// defaults returns the built-in configuration.
func defaults() *Config {
	return &Config{
		Sanitize: SanitizeConfig{
			BatchSize: 500,
		},
	}
}

// Load reads the YAML file at path, merges the built-in defaults underneath
// it, and applies environment overrides on top. A missing file is not an
// error: the tool stays usable from environment variables alone.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFile
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		slog.Debug("No configuration file, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w: %v", path, ErrInvalidYAML, err)
		}
		slog.Info("Configuration loaded", "path", path)
	}

	// File values win over built-in defaults for everything they set.
	if err := mergo.Merge(cfg, defaults()); err != nil {
		return nil, fmt.Errorf("failed to merge configuration defaults: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv layers the recognized environment toggles over the file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("SOURCE_DATABASE_URL"); v != "" {
		cfg.SafeCopy.SourceURL = v
	}
	if v := os.Getenv("TARGET_DATABASE_URL"); v != "" {
		cfg.SafeCopy.TargetURL = v
	}
	if v := os.Getenv("DBSCRUB_EXPORT_PATH"); v != "" {
		cfg.SafeCopy.ExportPath = v
	}
	if v, ok := envBool("DBSCRUB_DRY_RUN"); ok {
		cfg.Sanitize.DryRun = v
	}
	if v, ok := envBool("DBSCRUB_DISABLE_PRUNE"); ok {
		cfg.Sanitize.DisablePrune = v
	}
	if v, ok := envBool("DBSCRUB_VERBOSE"); ok {
		cfg.Verbose = v
	}
}

func envBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("Ignoring unparseable boolean environment variable", "key", key, "value", raw)
		return false, false
	}
	return v, true
}
