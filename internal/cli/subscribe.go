package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/handiism/workshop-downloader/internal/model"
	"github.com/handiism/workshop-downloader/internal/registry"
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <id-or-url>...",
	Short: "Subscribe to items and install them",
	Long: `Register interest in each item, then install it, printing every host
notification as it is delivered.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSubscribe,
}

var unsubscribeCmd = &cobra.Command{
	Use:     "unsubscribe <id-or-url>...",
	Aliases: []string{"uninstall", "rm"},
	Short:   "Remove items and delete their files",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runUnsubscribe,
}

func init() {
	rootCmd.AddCommand(subscribeCmd)
	rootCmd.AddCommand(unsubscribeCmd)
}

// hostNotifier prints notifications the way a host platform would
// receive them.
func hostNotifier(out io.Writer) registry.Notifier {
	return registry.NotifierFuncs{
		Subscribed: func(id model.ItemID) {
			fmt.Fprintf(out, "→ subscribed %s\n", id)
		},
		DownloadResult: func(id model.ItemID, success bool, appID model.AppID) {
			fmt.Fprintf(out, "→ download result %s success=%t app=%d\n", id, success, appID)
		},
	}
}

func runSubscribe(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	reg, err := openRegistry(out, hostNotifier(out))
	if err != nil {
		return err
	}

	for _, id := range ids {
		reg.Subscribe(id)
	}

	failed := 0
	for _, res := range reg.InstallAll(cmd.Context(), ids) {
		if !res.OK() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d install(s) failed", failed, len(ids))
	}
	return nil
}

func runUnsubscribe(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	reg, err := openRegistry(out, registry.NopNotifier{})
	if err != nil {
		return err
	}

	for _, id := range ids {
		if reg.State(id) == model.StateNone {
			fmt.Fprintf(out, "%s is not installed\n", id)
			continue
		}
		reg.Unsubscribe(cmd.Context(), id)
	}
	return nil
}
