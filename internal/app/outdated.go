package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/opt/internal/lifecycle"
	"github.com/blackwell-systems/opt/internal/output"
)

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "List installed packages whose catalog version differs",
	Args:  cobra.NoArgs,
	RunE:  runOutdated,
}

func init() {
	RootCmd.AddCommand(outdatedCmd)
}

func runOutdated(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	var outdated []lifecycle.Outdated
	err = withSpinner(cmd, "Checking catalog...", func() error {
		var err error
		outdated, err = s.ctl.Outdated(contextOf(cmd))
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderOutdatedTable(outdated))
	return nil
}
