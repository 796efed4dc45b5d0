package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/lawstudy/internal/config"
	"github.com/example/lawstudy/internal/logging"
)

type rootOptions struct {
	configFile string
	envFile    string
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "lawstudy",
		Short:         "Shared law study tracker with spaced repetition and partner sync",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (yaml, json or toml)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "environment file loaded before the config")

	root.AddCommand(
		newServeCmd(opts),
		newDeckCmd(opts),
		newRateCmd(opts),
		newStatsCmd(opts),
		newRenameCmd(opts),
		newSyncCmd(opts),
		newChallengeCmd(opts),
		newContentCmd(opts),
	)
	return root
}

// Execute runs the CLI until it finishes or the process is interrupted
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// load reads the configuration and builds the logger
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(config.Options{EnvFile: o.envFile, ConfigFile: o.configFile})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// open loads the configuration and assembles the application
func (o *rootOptions) open(cmd *cobra.Command) (*app, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewWithOutput(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	return newApp(cmd.Context(), cfg, logger)
}
