package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/opt/internal/catalog"
	"github.com/blackwell-systems/opt/internal/output"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the catalog by name or description",
	Long: `Search the catalog for packages whose name or description contains the
query, ignoring case. Multiple words are searched as one phrase.`,
	Example: `  opt search json`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runSearch,
}

func init() {
	RootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	query := strings.Join(args, " ")

	var results []catalog.Listing
	err = withSpinner(cmd, "Searching catalog...", func() error {
		var err error
		results, err = s.ctl.Search(contextOf(cmd), query)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), output.RenderSearchTable(results))
	return nil
}
