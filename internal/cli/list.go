package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/handiism/workshop-downloader/internal/registry"
)

var (
	listJSON  bool
	listLimit int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed items",
	Long:  `List every item directory found under the content root.`,
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var stateCmd = &cobra.Command{
	Use:   "state <id-or-url>",
	Short: "Show the state of an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runState,
}

var pathCmd = &cobra.Command{
	Use:   "path <id-or-url>",
	Short: "Print the install directory of an item",
	Args:  cobra.ExactArgs(1),
	RunE:  runPath,
}

var infoCmd = &cobra.Command{
	Use:   "info <id-or-url>",
	Short: "Show size and timestamp of an installed item",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Show at most this many items (0 for all)")
	rootCmd.AddCommand(listCmd, stateCmd, pathCmd, infoCmd)
}

// listEntry represents an item for display.
type listEntry struct {
	ID    string `json:"id"`
	State string `json:"state"`
	Flags uint32 `json:"flags"`
	Path  string `json:"path"`
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	reg, err := openRegistry(cmd.ErrOrStderr(), registry.NopNotifier{})
	if err != nil {
		return err
	}

	limit := listLimit
	if limit <= 0 {
		limit = reg.Count()
	}
	ids, total := reg.IDs(limit)

	entries := make([]listEntry, 0, len(ids))
	for _, id := range ids {
		item, ok := reg.Item(id)
		if !ok {
			continue
		}
		entries = append(entries, listEntry{
			ID:    item.ID.String(),
			State: item.State.String(),
			Flags: item.State.HostFlags(),
			Path:  item.Path,
		})
	}

	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if total == 0 {
		fmt.Fprintln(out, "No items installed yet.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATE\tFLAGS\tPATH")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.ID, e.State, e.Flags, e.Path)
	}
	w.Flush()

	if len(entries) < total {
		fmt.Fprintf(out, "\n%d of %d items shown\n", len(entries), total)
	}
	return nil
}

func runState(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	reg, err := openRegistry(cmd.ErrOrStderr(), registry.NopNotifier{})
	if err != nil {
		return err
	}

	state := reg.State(ids[0])
	fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\n", ids[0], state, state.HostFlags())
	return nil
}

func runPath(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	reg, err := openRegistry(cmd.ErrOrStderr(), registry.NopNotifier{})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), reg.LocalPath(ids[0]))
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	ids, err := parseIDs(args)
	if err != nil {
		return err
	}
	reg, err := openRegistry(cmd.ErrOrStderr(), registry.NopNotifier{})
	if err != nil {
		return err
	}

	info, ok := reg.InstallInfo(ids[0])
	if !ok {
		return fmt.Errorf("item %s is not installed", ids[0])
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Path:     %s\n", info.Path)
	fmt.Fprintf(out, "Size:     %.2f MB\n", float64(info.SizeOnDisk)/1024/1024)
	fmt.Fprintf(out, "Modified: %s\n", info.Timestamp.Format("2006-01-02 15:04:05"))
	return nil
}
