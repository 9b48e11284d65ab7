package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var (
	rootFlag    string
	catalogFlag string
	timeoutFlag time.Duration
	verboseFlag bool

	// RootCmd is the root command for opt
	RootCmd = &cobra.Command{
		Use:   "opt",
		Short: "A minimal package manager backed by a remote catalog",
		Long: `opt installs packages published in a remote JSON catalog.

Each package is a zip archive downloaded into the packages directory under
the opt root (~/.opt by default) and recorded in installed_packages.json.

Examples:
  # Find something to install
  opt search json

  # Install and inspect a package
  opt install jq
  opt info jq

  # Bring everything up to date
  opt outdated
  opt update

  # Remove a package
  opt uninstall jq`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}
)

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "storage root (default: $OPT_HOME or ~/.opt)")
	RootCmd.PersistentFlags().StringVar(&catalogFlag, "catalog", "", "catalog URL (overrides config and $OPT_CATALOG_URL)")
	RootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "network timeout for catalog and downloads (default from config)")
	RootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable debug logging")

	RootCmd.SuggestionsMinimumDistance = 2

	// "opt INSTALL jq" runs install.
	cobra.EnableCaseInsensitive = true
}

// Execute runs the root command, cancelling in-flight work on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

// runRoot prints help with no arguments. Anything that reaches it with
// arguments did not match a subcommand.
func runRoot(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Unknown command: %s\n", args[0])
	if suggestions := cmd.SuggestionsFor(args[0]); len(suggestions) > 0 {
		fmt.Fprintln(out, "\nDid you mean this?")
		for _, s := range suggestions {
			fmt.Fprintf(out, "\t%s\n", s)
		}
	}
	fmt.Fprintln(out)
	if err := cmd.Help(); err != nil {
		return err
	}
	return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
}
