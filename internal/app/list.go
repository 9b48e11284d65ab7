package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/opt/internal/output"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List installed packages",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	RootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Fprint(cmd.OutOrStdout(), output.RenderInstalledTable(s.ctl.List()))
	return nil
}
