package workshop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/handiism/workshop-downloader/internal/http"
	"github.com/handiism/workshop-downloader/internal/model"
	"github.com/handiism/workshop-downloader/internal/workshop/dto"
)

// DownloadFormat is the format flag sent with every job request.
const DownloadFormat = "raw"

var (
	// ErrNoJobID is returned when a submission answer carries no uuid.
	ErrNoJobID = errors.New("submission response has no job id")

	// ErrJobNotListed is returned when a status answer omits the job.
	ErrJobNotListed = errors.New("job missing from status response")
)

// Endpoint locates the service API and its storage nodes.
type Endpoint struct {
	// APIBase is the API root, e.g. "https://node04.steamworkshopdownloader.io/prod/api".
	APIBase string

	// StorageScheme is the scheme used for storage nodes ("https").
	StorageScheme string

	// StoragePrefix is the path between the storage node host and the
	// storage path, e.g. "/prod//storage/".
	StoragePrefix string
}

// Client speaks the two-phase job protocol of the remote download service.
//
// Example usage:
//
//	client := workshop.NewClient(httpClient, workshop.Endpoint{APIBase: apiBase})
//
//	uuid, err := client.Submit(ctx, 2463582957)
//	job, err := client.Status(ctx, uuid)
//	if job.Ready() {
//	    err = client.Fetch(ctx, job, "/content/2463582957.zip", nil)
//	}
type Client struct {
	http     *http.Client
	endpoint Endpoint
}

// NewClient creates a Client. Empty storage settings default to "https"
// and "/prod//storage/".
func NewClient(httpClient *http.Client, endpoint Endpoint) *Client {
	endpoint.APIBase = strings.TrimRight(endpoint.APIBase, "/")
	if endpoint.StorageScheme == "" {
		endpoint.StorageScheme = "https"
	}
	if endpoint.StoragePrefix == "" {
		endpoint.StoragePrefix = "/prod//storage/"
	}
	return &Client{http: httpClient, endpoint: endpoint}
}

// Submit requests a new download job for id and returns its uuid.
func (c *Client) Submit(ctx context.Context, id model.ItemID) (string, error) {
	req := dto.DownloadRequest{
		PublishedFileID: uint64(id),
		DownloadFormat:  DownloadFormat,
	}

	body, err := c.http.PostJSON(ctx, c.endpoint.APIBase+"/download/request", req)
	if err != nil {
		return "", err
	}

	var resp dto.DownloadResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode submission response: %w", err)
	}
	if resp.UUID == "" {
		return "", ErrNoJobID
	}
	return resp.UUID, nil
}

// Status fetches the current state of job uuid.
func (c *Client) Status(ctx context.Context, uuid string) (Job, error) {
	req := dto.StatusRequest{UUIDs: []string{uuid}}

	body, err := c.http.PostJSON(ctx, c.endpoint.APIBase+"/download/status", req)
	if err != nil {
		return Job{}, err
	}

	var resp map[string]dto.StatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Job{}, fmt.Errorf("decode status response: %w", err)
	}
	status, ok := resp[uuid]
	if !ok {
		return Job{}, ErrJobNotListed
	}
	return newJob(uuid, status), nil
}

// ArtifactURL builds the storage URL of a prepared job.
func (c *Client) ArtifactURL(job Job) string {
	return fmt.Sprintf("%s://%s%s%s?uuid=%s",
		c.endpoint.StorageScheme,
		job.StorageNode,
		c.endpoint.StoragePrefix,
		job.StoragePath,
		url.QueryEscape(job.UUID),
	)
}

// Fetch streams the job's artifact into archivePath, overwriting any
// existing file.
func (c *Client) Fetch(ctx context.Context, job Job, archivePath string, onProgress func(written, total int64)) error {
	return c.http.DownloadFile(ctx, c.ArtifactURL(job), archivePath, onProgress)
}
