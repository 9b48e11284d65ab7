package app

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/opt/internal/catalog"
	"github.com/blackwell-systems/opt/internal/lifecycle"
)

var updateFlagJobs int

var updateCmd = &cobra.Command{
	Use:   "update [name]",
	Short: "Update one package, or every installed package",
	Long: `Update a package to the catalog's current version. With no name, every
installed package is checked.

A package is updated whenever its installed version differs from the
catalog's, including when the catalog version is older.`,
	Example: `  opt update jq           # Update a single package
  opt update              # Update everything
  opt update --jobs 4     # Update everything, four packages at a time`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().IntVarP(&updateFlagJobs, "jobs", "j", 0, "packages to update concurrently when updating all (default from config)")

	RootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	if updateFlagJobs < 0 {
		return fmt.Errorf("--jobs must not be negative")
	}

	s, err := openSession(cmd, sessionOptions{history: true, jobs: updateFlagJobs})
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	ctx := contextOf(cmd)

	if len(args) == 1 {
		res, err := s.ctl.Update(ctx, args[0])
		if err != nil {
			return err
		}
		printUpdateResult(out, res)
		return nil
	}

	if len(s.ctl.List()) == 0 {
		fmt.Fprintln(out, "No packages installed to update.")
		return nil
	}

	results, err := s.ctl.UpdateAll(ctx)
	for _, res := range results {
		printUpdateResult(out, res)
	}
	return err
}

func printUpdateResult(w io.Writer, res *lifecycle.Result) {
	switch res.Outcome {
	case lifecycle.OutcomeUpToDate:
		fmt.Fprintf(w, "Package '%s' is already up-to-date (%s).\n", res.Name, res.ToVersion)
	default:
		suffix := ""
		if res.Direction == catalog.DirectionDowngrade {
			suffix = " (downgrade)"
		}
		fmt.Fprintf(w, "Package '%s' updated from %s to %s%s.\n", res.Name, res.FromVersion, res.ToVersion, suffix)
	}
}
