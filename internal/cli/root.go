// Package cli implements the cardgrid command line.
package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gabrielmiguelok/cardgrid/internal/config"
	"github.com/gabrielmiguelok/cardgrid/pkg/logging"
)

// Version is set via ldflags at build time.
var Version = "dev"

type rootOptions struct {
	cfgFile string
	envFile string
	verbose bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cardgrid",
		Short: "Render a JSON content document as a responsive card grid",
		Long: `cardgrid turns a content document (page meta plus a list of cards) into
an HTML card grid. Pages can be rendered once to a file, or served live: on
narrow viewports cards fold into an accordion that opens one card at a time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnv(opts.envFile)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", config.DefaultFile, "config file path")
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file with CARDGRID_* overrides")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(
		newRenderCmd(opts),
		newServeCmd(opts),
		newInitCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the command line.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadEnv reads a dotenv file. A missing file is ignored.
func loadEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// loadConfig loads and validates the config, then applies mutate for flag
// overrides.
func loadConfig(opts *rootOptions, mutate func(*config.Config)) (*config.Config, logging.Logger, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	logging.SetDefault(logger)
	return cfg, logger, nil
}
