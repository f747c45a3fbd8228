package download

import (
	"github.com/handiism/workshop-downloader/internal/config"
	"github.com/handiism/workshop-downloader/internal/http"
	"github.com/handiism/workshop-downloader/internal/workshop"
)

// NewFromSettings wires an Orchestrator to the remote service described by
// settings.
func NewFromSettings(settings *config.Settings, onProgress func(ProgressEvent)) *Orchestrator {
	httpClient := http.NewClient(http.Options{
		UserAgent:       settings.UserAgent,
		RequestTimeout:  settings.RequestTimeout(),
		DownloadTimeout: settings.DownloadTimeout(),
	})
	client := workshop.NewClient(httpClient, workshop.Endpoint{
		APIBase:       settings.APIBase,
		StorageScheme: settings.StorageScheme,
		StoragePrefix: settings.StoragePrefix,
	})

	return NewOrchestrator(client, Options{
		PollInterval:    settings.PollInterval(),
		StallTimeout:    settings.StallTimeout(),
		MaxFetchRetries: settings.DownloadMaxRetries,
		RetryCooldown:   settings.RetryCooldown(),
		RetryExponent:   settings.DownloadRetryExponent,
		OnProgress:      onProgress,
	})
}
