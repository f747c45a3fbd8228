// Package config provides configuration management for workshop-downloader.
//
// This package handles:
//   - Default configuration values
//   - Loading settings from JSON or YAML files with WORKSHOP_* environment overrides
//   - Saving settings as JSON
//   - Validation and duration accessors for other packages
//
// # Default Settings
//
//	settings := config.DefaultSettings()
//	// Content under the user data dir, 1s polling, 30s stall timeout,
//	// at most 2 concurrent installs
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.yaml")
//	if err != nil {
//	    // malformed file or invalid values; a missing file yields defaults
//	}
//
// # Environment Overrides
//
//	WORKSHOP_CONTENT_ROOT=/srv/content WORKSHOP_MAX_CONCURRENT_INSTALLS=4 workshop-dl list
//
// # Saving Settings
//
//	settings.ContentRoot = "/srv/content"
//	err := settings.Save("/path/to/config.json")
package config
