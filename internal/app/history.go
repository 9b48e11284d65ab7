package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/opt/internal/output"
	"github.com/blackwell-systems/opt/internal/store"
)

var historyFlagLimit int

var historyCmd = &cobra.Command{
	Use:   "history [name]",
	Short: "Show recent install, update and uninstall attempts",
	Example: `  opt history
  opt history jq --limit 5`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyFlagLimit, "limit", "n", 20, "maximum number of events to show (0 for all)")

	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	layout, _, err := loadSettings()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if _, err := os.Stat(layout.HistoryPath); os.IsNotExist(err) {
		fmt.Fprint(out, output.RenderHistoryTable(nil))
		return nil
	}

	st, err := store.Open(layout.HistoryPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer st.Close()

	pkg := ""
	if len(args) == 1 {
		pkg = args[0]
	}
	events, err := st.ListEvents(pkg, historyFlagLimit)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	fmt.Fprint(out, output.RenderHistoryTable(events))
	return nil
}
