package workshop

import (
	"strconv"
	"strings"

	"github.com/handiism/workshop-downloader/internal/model"
	"github.com/handiism/workshop-downloader/internal/workshop/dto"
)

// JobStatus is the status text reported by the service for a job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobPreparing JobStatus = "preparing"
	JobPrepared  JobStatus = "prepared"
	JobFailed    JobStatus = "failed"
)

// Job is the service's view of one in-progress transfer request. It only
// lives for the duration of one install.
type Job struct {
	UUID             string
	Status           JobStatus
	Progress         int
	ProgressText     string
	StorageNode      string
	StoragePath      string
	Error            string
	BytesSize        uint64
	BytesTransmitted uint64
}

func newJob(uuid string, r dto.StatusResponse) Job {
	return Job{
		UUID:             uuid,
		Status:           JobStatus(r.Status),
		Progress:         r.Progress,
		ProgressText:     r.ProgressText,
		StorageNode:      r.StorageNode,
		StoragePath:      r.StoragePath,
		Error:            r.DownloadError,
		BytesSize:        r.BytesSize,
		BytesTransmitted: r.BytesTransmitted,
	}
}

// Ready reports whether the artifact can be fetched.
func (j Job) Ready() bool {
	return j.Status == JobPrepared && j.Progress >= 100
}

// AppID parses the owning-app id from the leading segment of the storage
// path, e.g. "294100/2463582957/archive.zip" → 294100.
func (j Job) AppID() (model.AppID, bool) {
	head, _, found := strings.Cut(j.StoragePath, "/")
	if !found || head == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(head, 10, 32)
	if err != nil {
		return 0, false
	}
	return model.AppID(n), true
}
