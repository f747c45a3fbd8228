package download

import (
	"errors"
	"fmt"

	"github.com/handiism/workshop-downloader/internal/model"
)

// Kind classifies where an install failed.
type Kind int

const (
	KindUnknown Kind = iota
	// KindSubmit: the job request failed or its answer had no job id.
	KindSubmit
	// KindPollParse: a status answer could not be used. Never returned; the
	// poll loop logs it and keeps going.
	KindPollParse
	// KindStallTimeout: no status or progress change within the stall window.
	KindStallTimeout
	// KindJobFailed: the service reported the job as failed.
	KindJobFailed
	// KindFetch: streaming the artifact failed.
	KindFetch
	// KindExtraction: the archive was corrupt or the destination unwritable.
	KindExtraction
	// KindCleanup: removing the transient archive failed. Logged only.
	KindCleanup
	// KindCanceled: the install was canceled or its admission wait expired.
	KindCanceled
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindSubmit:
		return "submit"
	case KindPollParse:
		return "poll-parse"
	case KindStallTimeout:
		return "stall-timeout"
	case KindJobFailed:
		return "job-failed"
	case KindFetch:
		return "fetch"
	case KindExtraction:
		return "extraction"
	case KindCleanup:
		return "cleanup"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Error is the typed failure carried by a Result.
type Error struct {
	Kind   Kind
	ItemID model.ItemID
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("install %s: %s failed", e.ItemID, e.Kind)
	}
	return fmt.Sprintf("install %s: %s: %v", e.ItemID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrStalled is wrapped by KindStallTimeout errors.
var ErrStalled = errors.New("job made no progress within the stall timeout")

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func newError(kind Kind, id model.ItemID, err error) *Error {
	return &Error{Kind: kind, ItemID: id, Err: err}
}
