package main

import (
	"context"
	"errors"

	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/factory"
	"github.com/lychee-technology/formview/internal"
	"github.com/lychee-technology/formview/internal/config"
	"github.com/lychee-technology/formview/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cliContext carries the resolved configuration to subcommands.
type cliContext struct {
	config *formview.Config
	source string
}

type cliContextKey struct{}

func fromCommand(cmd *cobra.Command) (*cliContext, error) {
	if cc, ok := cmd.Context().Value(cliContextKey{}).(*cliContext); ok {
		return cc, nil
	}
	return nil, errors.New("configuration not loaded")
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "formview",
		Short: "Validate submissions and materialize views outside the server",
		Long: `formview runs the submission and view engine against a store:
a Postgres database, a DuckDB file, or a project snapshot (YAML or JSON)
read from disk or S3.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadContext,
	}

	flags := root.PersistentFlags()
	flags.String("config-dir", "", "directory containing config.yaml")
	flags.String("source", "", "store to open: postgres, duckdb:<path>, s3://bucket/key or a snapshot file")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newViewCmd(),
		newValidateCmd(),
		newBackfillCmd(),
		newMigrateKeyCmd(),
		newInitDBCmd(),
	)
	return root
}

// loadContext reads config.yaml and FORMVIEW_* variables, applies flag
// overrides and installs the logger.
func loadContext(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	configDir, err := flags.GetString("config-dir")
	if err != nil {
		return err
	}

	v, err := config.New(configDir)
	if err != nil {
		return err
	}
	if err := v.BindPFlag("snapshot.source", flags.Lookup("source")); err != nil {
		return err
	}
	if err := v.BindPFlag("logging.level", flags.Lookup("log-level")); err != nil {
		return err
	}

	cfg, err := config.Decode(v)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, &cliContext{
		config: cfg,
		source: factory.DefaultSource(cfg),
	}))
	return nil
}

// withManager opens the configured store for the duration of fn.
func withManager(cmd *cobra.Command, fn func(store formview.Store, manager formview.Manager) error) error {
	cc, err := fromCommand(cmd)
	if err != nil {
		return err
	}
	store, closeStore, err := factory.OpenStore(cmd.Context(), cc.config, cc.source)
	if err != nil {
		return err
	}
	defer closeStore()
	zap.S().Debugw("opened store", "source", cc.source)
	return fn(store, internal.NewManager(store, cc.config))
}
