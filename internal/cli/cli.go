// Package cli holds the command wiring shared by the roadloop binaries:
// root flags, logger setup, config loading, and graph acquisition.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"roadloop/pkg/config"
	"roadloop/pkg/logging"
)

// Env is filled in by the root command before any RunE executes.
type Env struct {
	Config config.Config
	Logger *log.Logger
}

// NewRoot creates a root command with --config and --verbose. Its
// PersistentPreRunE loads the config into env and attaches the logger to
// the command context.
func NewRoot(use, short string, env *Env) *cobra.Command {
	var (
		cfgPath string
		verbose bool
	)

	root := &cobra.Command{
		Use:          use,
		Short:        short,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env.Logger = logging.New(os.Stderr, logging.Level(verbose))
			cmd.SetContext(logging.WithLogger(cmd.Context(), env.Logger))

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			env.Config = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "TOML config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	return root
}

// Main runs root with a context cancelled on SIGINT/SIGTERM and exits with
// 130 on interrupt, 1 on any other error.
func Main(root *cobra.Command) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
