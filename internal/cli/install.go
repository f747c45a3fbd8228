package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/handiism/workshop-downloader/internal/download"
	"github.com/handiism/workshop-downloader/internal/registry"
)

var installJSON bool

var installCmd = &cobra.Command{
	Use:   "install <id-or-url>...",
	Short: "Install one or more items",
	Long: `Download and extract each item into the content root. Unknown items are
subscribed first. Items that are already installed are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVar(&installJSON, "json", false, "Output results in JSON format")
	rootCmd.AddCommand(installCmd)
}

// installResult is the printable form of a download.Result.
type installResult struct {
	ID      string `json:"id"`
	AppID   uint32 `json:"app_id"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

func runInstall(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	progressOut := out
	if installJSON {
		progressOut = cmd.ErrOrStderr()
	}

	reg, err := openRegistry(progressOut, registry.NopNotifier{})
	if err != nil {
		return err
	}

	fmt.Fprintf(progressOut, "📥 Installing %d item(s) into %s\n\n", len(ids), settings.ContentRoot)

	results := reg.InstallAll(cmd.Context(), ids)
	if cmd.Context().Err() != nil {
		fmt.Fprintln(progressOut, "\nInstall cancelled.")
	}

	printable := make([]installResult, len(results))
	failed, canceled := 0, 0
	for i, res := range results {
		printable[i] = installResult{
			ID:      res.ItemID.String(),
			AppID:   uint32(res.AppID),
			Outcome: res.Outcome.String(),
		}
		if !res.OK() {
			if download.IsCanceled(res.Err) {
				canceled++
			} else {
				failed++
			}
			printable[i].Outcome = res.Kind().String()
			printable[i].Error = res.Err.Error()
		}
	}

	if installJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(printable); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tAPP\tOUTCOME")
		for _, r := range printable {
			fmt.Fprintf(w, "%s\t%d\t%s\n", r.ID, r.AppID, r.Outcome)
		}
		w.Flush()
	}

	switch {
	case failed > 0 && canceled > 0:
		return fmt.Errorf("%d of %d install(s) failed, %d canceled", failed, len(results), canceled)
	case failed > 0:
		return fmt.Errorf("%d of %d install(s) failed", failed, len(results))
	case canceled > 0:
		return fmt.Errorf("%d of %d install(s) canceled", canceled, len(results))
	}
	return nil
}
