package download

import "github.com/handiism/workshop-downloader/internal/model"

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents an install progress update.
type ProgressEvent struct {
	ItemID  model.ItemID
	Message string
	Level   ProgressLevel

	// Status and Progress mirror the remote job when the event comes from
	// the poll loop; otherwise they are empty.
	Status   string
	Progress int

	// Written and Total count archive bytes while the artifact streams.
	// Total is zero when the server sent no length.
	Written int64
	Total   int64
}
