package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/opt/internal/output"
	"github.com/blackwell-systems/opt/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the registry and the packages directory agree",
	Long: `Runs diagnostic checks on the opt root.

Checks:
  • Registry entries have a package directory
  • Package directories have a registry entry
  • History journal is readable
  • Catalog is reachable

Nothing is repaired. Exits non-zero when the registry and the packages
directory disagree.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Running opt diagnostics in %s...\n\n", s.layout.Root)

	criticalIssues := 0
	warningIssues := 0

	// Check 1: registry vs packages directory
	report, err := s.ctl.Check()
	if err != nil {
		fmt.Fprintln(out, "✗ Cannot inspect packages directory:", err)
		criticalIssues++
	} else {
		fmt.Fprint(out, output.RenderReport(report))
		criticalIssues += len(report.Missing) + len(report.Orphaned)
		if len(report.Missing) > 0 {
			fmt.Fprintln(out, "  Action: reinstall missing packages with 'opt install <name>'")
		}
		if len(report.Orphaned) > 0 {
			fmt.Fprintf(out, "  Action: install orphaned packages again or delete them from %s\n", s.layout.PackagesDir)
		}
	}

	// Check 2: history journal, warning only
	if _, err := os.Stat(s.layout.HistoryPath); os.IsNotExist(err) {
		fmt.Fprintln(out, "✓ No history recorded yet")
	} else {
		hist, err := store.Open(s.layout.HistoryPath)
		if err != nil {
			fmt.Fprintln(out, "⚠ Cannot open history journal:", err)
			warningIssues++
		} else {
			defer hist.Close()
			count, err := hist.CountEvents()
			if err != nil {
				fmt.Fprintln(out, "⚠ Cannot read history journal:", err)
				warningIssues++
			} else {
				fmt.Fprintf(out, "✓ %d transition(s) in history\n", count)
			}
			if report != nil {
				for _, name := range report.Missing {
					if last, err := hist.LastEvent(name); err == nil && last != nil {
						fmt.Fprintf(out, "  %s: last %s %s (%s)\n", name, last.Action, last.Status, last.CreatedAt.Local().Format("2006-01-02 15:04"))
					}
				}
			}
		}
	}

	// Check 3: catalog reachable, warning only
	listings, err := s.ctl.Search(contextOf(cmd), "")
	if err != nil {
		fmt.Fprintln(out, "⚠ Catalog unreachable:", err)
		warningIssues++
	} else {
		fmt.Fprintf(out, "✓ Catalog reachable (%d packages)\n", len(listings))
	}

	fmt.Fprintln(out)
	if criticalIssues == 0 && warningIssues == 0 {
		fmt.Fprintln(out, "✓ All checks passed!")
		return nil
	}

	fmt.Fprintf(out, "Found %d critical issue(s) and %d warning(s).\n", criticalIssues, warningIssues)
	if criticalIssues > 0 {
		return fmt.Errorf("diagnostics failed")
	}
	return nil
}
