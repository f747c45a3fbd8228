package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rescan the content root and re-announce installed items",
	Args:  cobra.NoArgs,
	RunE:  runRefresh,
}

func init() {
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	reg, err := openRegistry(out, hostNotifier(out))
	if err != nil {
		return err
	}

	if err := reg.LoadFromDisk(); err != nil {
		return err
	}
	reg.RefreshInstalled()

	fmt.Fprintf(out, "%d item(s) installed under %s\n", reg.Count(), reg.Root())
	return nil
}
