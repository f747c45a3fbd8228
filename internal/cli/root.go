package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/handiism/workshop-downloader/internal/config"
	"github.com/handiism/workshop-downloader/internal/download"
	"github.com/handiism/workshop-downloader/internal/logging"
	"github.com/handiism/workshop-downloader/internal/model"
	"github.com/handiism/workshop-downloader/internal/registry"
)

var (
	configPath string
	rootDir    string
	verbose    bool

	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "workshop-dl",
	Short: "Download and manage content items",
	Long: `workshop-dl subscribes to, installs and removes content items under a
local content root. Items are fetched through the remote download service
and extracted into one directory per item id.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if rootDir != "" {
			s.ContentRoot = rootDir
		}
		settings = s

		level := s.LogLevel
		if verbose {
			level = "debug"
		}
		logging.Init(s.LogFormat, level, cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "Content root directory (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output and debug logs")
}

// Execute runs the root command and returns the process exit status:
// 0 on success, 130 after an interrupt and 1 for any other error.
// version is injected via ldflags.
func Execute(version string) int {
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case ctx.Err() != nil:
		fmt.Fprintln(os.Stderr, "\nInterrupted.")
		return 130
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}

// openRegistry opens the content root with progress printed to out.
func openRegistry(out io.Writer, notifier registry.Notifier) (*registry.Registry, error) {
	reg, err := registry.Open(settings, notifier, progressPrinter(out, verbose))
	if err != nil {
		return nil, fmt.Errorf("opening content root: %w", err)
	}
	return reg, nil
}

// progressPrinter renders progress events as prefixed lines.
func progressPrinter(out io.Writer, showVerbose bool) func(download.ProgressEvent) {
	return func(event download.ProgressEvent) {
		if event.Level == download.LevelVerbose && !showVerbose {
			return
		}

		prefix := ""
		switch event.Level {
		case download.LevelError:
			prefix = "❌ "
		case download.LevelWarning:
			prefix = "⚠️  "
		case download.LevelSuccess:
			prefix = "✅ "
		case download.LevelInfo:
			prefix = "ℹ️  "
		default:
			prefix = "   "
		}

		fmt.Fprintln(out, prefix+event.Message)
	}
}

// parseIDs parses item ids or item URLs from args.
func parseIDs(args []string) ([]model.ItemID, error) {
	ids := make([]model.ItemID, 0, len(args))
	for _, arg := range args {
		id, err := model.ParseItemID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
