// Package http provides the HTTP client used to talk to the remote download
// service and its storage nodes.
//
// The Client in this package handles:
//   - User-Agent headers
//   - Per-request timeouts for API calls
//   - JSON POST helpers
//   - File downloads with progress tracking
//
// # Basic Usage
//
//	client := http.NewClient(http.Options{RequestTimeout: 15 * time.Second})
//
//	// POST a JSON body, get the raw JSON answer
//	body, err := client.PostJSON(ctx, apiURL, request)
//
//	// Download file with progress callback
//	client.DownloadFile(ctx, archiveURL, "/path/to/item.zip", func(written, total int64) {
//	    fmt.Printf("%d bytes\n", written)
//	})
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
