package main

import (
	"context"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/dbscrub/pkg/config"
	"github.com/codeready-toolchain/dbscrub/pkg/database"
	"github.com/codeready-toolchain/dbscrub/pkg/pruning"
	"github.com/codeready-toolchain/dbscrub/pkg/rules"
	"github.com/codeready-toolchain/dbscrub/pkg/runner"
	"github.com/codeready-toolchain/dbscrub/pkg/schema"
)

// app carries the loaded configuration and rule registry into subcommands.
type app struct {
	configPath string
	verbose    bool

	cfg      *config.Config
	registry *rules.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "dbscrub",
		Short:         "Sanitize relational databases by replacing PII with synthetic data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.bootstrap()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to dbscrub.yaml")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newListCmd(a),
		newLintCmd(a),
		newSanitizeCmd(a),
		newValidateCmd(a),
		newSafeCopyCmd(a),
		newDumpCmd(a),
	)
	return root
}

// bootstrap loads .env, the tool configuration, and the rule registry.
func (a *app) bootstrap() error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file, continuing with existing environment", "error", err)
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if a.verbose || cfg.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	registry, err := buildRegistry()
	if err != nil {
		return err
	}
	a.registry = registry
	return nil
}

// open connects to the primary operating database: the configured URL when
// set, the discrete DB_* environment variables otherwise.
func (a *app) open(ctx context.Context) (*database.Client, error) {
	if a.cfg.Database.URL != "" {
		return database.Open(ctx, a.cfg.Database.URL)
	}
	dbCfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return database.NewClient(ctx, dbCfg)
}

func catalogFor(c *database.Client) schema.Catalog {
	if c.Dialect().Name() == "sqlite" {
		return schema.NewSQLiteCatalog(c.DB())
	}
	return schema.NewPostgresCatalog(c.DB())
}

// buildRunner wires a runner (and its pruning engine) over one client.
func (a *app) buildRunner(c *database.Client) (*runner.Runner, error) {
	return a.buildRunnerWithPrune(c, true)
}

// buildRunnerWithPrune optionally leaves the global pruning pass out.
func (a *app) buildRunnerWithPrune(c *database.Client, globalPrune bool) (*runner.Runner, error) {
	var global *pruning.GlobalConfig
	if globalPrune {
		var err error
		global, err = a.cfg.Pruning.Global()
		if err != nil {
			return nil, err
		}
	}
	cat := catalogFor(c)
	pruner := pruning.NewEngine(c.Dialect(), cat, a.registry, global)
	return runner.New(c, cat, a.registry, pruner), nil
}
