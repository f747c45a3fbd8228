package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/handiism/workshop-downloader/internal/config"
	"github.com/handiism/workshop-downloader/internal/logging"
	"github.com/handiism/workshop-downloader/internal/model"
	"github.com/handiism/workshop-downloader/internal/tui"
)

func main() {
	var (
		configPath string
		rootDir    string
		verbose    bool
		logFile    string
	)

	cmd := &cobra.Command{
		Use:           "workshop-tui <id-or-url>...",
		Short:         "Install items with a live terminal dashboard",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if rootDir != "" {
				settings.ContentRoot = rootDir
			}

			// The dashboard owns the terminal; logs go to a file or nowhere.
			var logOut io.Writer = io.Discard
			if logFile != "" {
				f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
				if err != nil {
					return err
				}
				defer f.Close()
				logOut = f
			}
			logging.Init(settings.LogFormat, settings.LogLevel, logOut)

			ids := make([]model.ItemID, 0, len(args))
			for _, arg := range args {
				id, err := model.ParseItemID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			return tui.Run(settings, ids, verbose)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Path to config file (JSON or YAML)")
	cmd.Flags().StringVar(&rootDir, "root", "", "Content root directory (overrides config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose progress lines")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Append structured logs to this file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
