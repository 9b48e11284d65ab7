package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:     "uninstall <name>",
	Aliases: []string{"remove"},
	Short:   "Remove an installed package",
	Long: `Delete a package's directory and remove it from the registry.

If the directory cannot be deleted the package stays recorded as installed
so the command can be retried.`,
	Example: `  opt uninstall jq`,
	Args:    cobra.ExactArgs(1),
	RunE:    runUninstall,
}

func init() {
	RootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, sessionOptions{history: true})
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.ctl.Uninstall(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Package '%s' (version %s) uninstalled successfully.\n", res.Name, res.FromVersion)
	return nil
}
