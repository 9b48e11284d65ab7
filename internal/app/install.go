package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install <name>",
	Short: "Download and install a package from the catalog",
	Long: `Download the catalog's current archive for a package, extract it into
the packages directory and record it as installed.

Installing a package that is already installed downloads and extracts it
again.`,
	Example: `  opt install jq`,
	Args:    cobra.ExactArgs(1),
	RunE:    runInstall,
}

func init() {
	RootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, sessionOptions{history: true})
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.ctl.Install(contextOf(cmd), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Package '%s' installed successfully.\n", res.Name)
	return nil
}
