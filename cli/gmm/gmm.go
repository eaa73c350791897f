package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/xinggaoya/GameModMaster/internal/cli"
	"github.com/xinggaoya/GameModMaster/internal/logger"
	"github.com/xinggaoya/GameModMaster/pkg/errors"
)

var (
	configPath string
	verbose    bool
	noColor    bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(err)
		cancel()
		os.Exit(1)
	}

	cancel()
}

// reportError prints the user facing message and keeps the technical detail
// for --verbose.
func reportError(err error) {
	if errors.KindOf(err) == errors.Unknown {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", errors.UserMessage(err))
	var e *errors.Error
	if errors.KindOf(err) == errors.Config && errors.As(err, &e) && e.Detail != "" && !verbose {
		fmt.Fprintf(os.Stderr, "  %s\n", e.Detail)
	}
	logger.Debug("Command failed", logger.Fields{"error": err.Error(), "code": errors.CodeOf(err)})
	if verbose {
		fmt.Fprintf(os.Stderr, "Detail: %v\n", err)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gmm",
		Short: "A game trainer manager",
		Long: `gmm finds, installs and launches game trainers from a remote catalog:
- Catalog: list, search and show trainers
- Installs: download with progress, unpack, uninstall, launch
- Store: cached catalog pages and installed records`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: auto-detect)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Set up CLI pkg variables
	cli.ConfigPath = &configPath
	cli.Verbose = &verbose
	cli.NoColor = &noColor

	// Add subcommands
	cmd.AddCommand(
		cli.NewListCmd(),
		cli.NewSearchCmd(),
		cli.NewShowCmd(),
		cli.NewInstallCmd(),
		cli.NewUninstallCmd(),
		cli.NewInstalledCmd(),
		cli.NewLaunchCmd(),
		cli.NewOutdatedCmd(),
		cli.NewFetchCmd(),
		cli.NewCacheCmd(),
		cli.NewMigrateCmd(),
		cli.NewConfigCmd(),
		cli.NewVersionCmd(),
	)

	return cmd
}
