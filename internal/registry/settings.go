package registry

import (
	"github.com/handiism/workshop-downloader/internal/config"
	"github.com/handiism/workshop-downloader/internal/download"
)

// Open builds a Registry and its Orchestrator from settings. Both report
// progress to onProgress.
func Open(settings *config.Settings, notifier Notifier, onProgress func(download.ProgressEvent)) (*Registry, error) {
	return New(Options{
		Root:                    settings.ContentRoot,
		Downloader:              download.NewFromSettings(settings, onProgress),
		Notifier:                notifier,
		MaxConcurrentInstalls:   settings.MaxConcurrentInstalls,
		UnsubscribePollInterval: settings.UnsubscribePollInterval(),
		UnsubscribeMaxPolls:     settings.UnsubscribeMaxPolls,
		ResetStateOnFailure:     settings.ResetStateOnFailure,
		OnProgress:              onProgress,
	})
}
