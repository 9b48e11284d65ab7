package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/opt/internal/lifecycle"
	"github.com/blackwell-systems/opt/internal/output"
)

var infoCmd = &cobra.Command{
	Use:     "info <name>",
	Short:   "Show catalog details for a package",
	Example: `  opt info jq`,
	Args:    cobra.ExactArgs(1),
	RunE:    runInfo,
}

func init() {
	RootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	var info *lifecycle.Info
	err = withSpinner(cmd, "Fetching catalog...", func() error {
		var err error
		info, err = s.ctl.Info(contextOf(cmd), args[0])
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderInfo(info))
	return nil
}

// contextOf returns the command's context, or Background when run
// without ExecuteContext.
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
