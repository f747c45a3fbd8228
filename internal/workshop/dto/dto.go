// Package dto holds the JSON wire types of the remote download service.
package dto

// DownloadRequest is the body of POST /download/request.
type DownloadRequest struct {
	PublishedFileID uint64 `json:"publishedFileId"`
	CollectionID    string `json:"collectionId,omitempty"`
	Hidden          bool   `json:"hidden"`
	DownloadFormat  string `json:"downloadFormat"`
	AutoDownload    bool   `json:"autodownload"`
}

// DownloadResponse is the answer to POST /download/request.
type DownloadResponse struct {
	UUID string `json:"uuid"`
}

// StatusRequest is the body of POST /download/status.
type StatusRequest struct {
	UUIDs []string `json:"uuids"`
}

// StatusResponse describes one job in the answer to POST /download/status.
// The answer itself is a JSON object keyed by job uuid.
type StatusResponse struct {
	Age              uint64 `json:"age"`
	BytesSize        uint64 `json:"bytes_size"`
	BytesTransmitted uint64 `json:"bytes_transmitted"`
	DownloadError    string `json:"downloadError"`
	Progress         int    `json:"progress"`
	ProgressText     string `json:"progressText"`
	Status           string `json:"status"`
	StorageNode      string `json:"storageNode"`
	StoragePath      string `json:"storagePath"`
}
