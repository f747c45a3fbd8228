package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/handiism/workshop-downloader/internal/logging"
)

var log = logging.L("http")

// Client wraps HTTP operations for the remote download service.
//
// Client provides:
//   - Configured User-Agent header
//   - A per-request timeout for API calls, independent of any caller deadline
//   - JSON request/response helpers
//   - File download with progress tracking
//
// Example usage:
//
//	client := NewClient(Options{UserAgent: "WorkshopDownloader", RequestTimeout: 15 * time.Second})
//
//	// Post a JSON request and read the raw answer
//	body, err := client.PostJSON(ctx, "https://host/api/download/request", in)
//
//	// Download file with progress
//	err = client.DownloadFile(ctx, archiveURL, "/path/to/item.zip", func(written, total int64) {
//	    fmt.Printf("%d / %d\n", written, total)
//	})
type Client struct {
	httpClient      *http.Client
	userAgent       string
	requestTimeout  time.Duration
	downloadTimeout time.Duration
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	// UserAgent is sent with every request.
	UserAgent string

	// RequestTimeout bounds a single API call (request and full response body).
	RequestTimeout time.Duration

	// DownloadTimeout bounds a single file download.
	DownloadTimeout time.Duration

	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// NewClient creates a new HTTP client.
//
// The client is configured with:
//   - 15 second request timeout unless overridden
//   - 10 minute download timeout unless overridden
//   - "WorkshopDownloader" User-Agent header unless overridden
func NewClient(opts Options) *Client {
	if opts.UserAgent == "" {
		opts.UserAgent = "WorkshopDownloader"
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 10 * time.Minute
	}

	transport := opts.Transport
	if transport == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.ResponseHeaderTimeout = opts.RequestTimeout
		transport = t
	}

	return &Client{
		httpClient:      &http.Client{Transport: transport},
		userAgent:       opts.UserAgent,
		requestTimeout:  opts.RequestTimeout,
		downloadTimeout: opts.DownloadTimeout,
	}
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.Code, e.URL, e.Status)
}

// ProgressWriter wraps a writer to track download progress.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header), or -1.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// PostJSON marshals in, POSTs it to url and returns the raw response body.
//
// The whole exchange is bounded by the client's request timeout, so one hung
// call cannot outlive its slot even when ctx has no deadline.
//
// Returns an error if:
//   - The request fails or times out
//   - The response status is not 2xx (*StatusError)
//   - Reading the body fails
func (c *Client) PostJSON(ctx context.Context, url string, in any) ([]byte, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: url}
	}

	log.Debug("api call", "url", url, "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

// DownloadFile downloads a file to the specified path with optional progress callback.
//
// The file is created (or truncated if it exists) and the content is streamed
// directly to disk, avoiding loading the entire file into memory. The
// transfer is bounded by the client's download timeout.
//
// Parameters:
//   - ctx: Context for cancellation
//   - url: URL to download from
//   - destPath: Local file path to save to
//   - onProgress: Optional callback called with (bytesWritten, totalBytes)
//     Pass nil to disable progress tracking
func (c *Client) DownloadFile(ctx context.Context, url, destPath string, onProgress func(written, total int64)) error {
	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, URL: url}
	}

	file, err := os.Create(destPath)
	if err != nil {
		return err
	}

	var writer io.Writer = file
	if onProgress != nil {
		writer = &ProgressWriter{
			Writer:   file,
			Total:    resp.ContentLength,
			OnUpdate: onProgress,
		}
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		file.Close()
		return fmt.Errorf("copy body: %w", err)
	}
	return file.Close()
}
