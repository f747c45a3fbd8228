package download

import "github.com/handiism/workshop-downloader/internal/model"

// Outcome summarizes how an install request ended.
type Outcome int

const (
	// OutcomeInstalled: the item was downloaded and extracted by this call.
	OutcomeInstalled Outcome = iota
	// OutcomeAlreadyInstalled: nothing to do, the item was installed.
	OutcomeAlreadyInstalled
	// OutcomeInProgress: another call is already installing the item.
	OutcomeInProgress
	// OutcomeFailed: see Result.Err.
	OutcomeFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeInstalled:
		return "installed"
	case OutcomeAlreadyInstalled:
		return "already-installed"
	case OutcomeInProgress:
		return "in-progress"
	default:
		return "failed"
	}
}

// Result is the outcome of one install.
//
// Hosts only need OK and AppID; Err carries the typed *Error for logs
// and callers that care which phase failed.
type Result struct {
	ItemID  model.ItemID
	AppID   model.AppID
	Outcome Outcome
	Err     error
}

// OK reports whether the item is installed or being installed.
func (r Result) OK() bool {
	return r.Err == nil && r.Outcome != OutcomeFailed
}

// Kind returns the failure kind, or KindUnknown for successful results.
func (r Result) Kind() Kind {
	return KindOf(r.Err)
}

func failed(id model.ItemID, appID model.AppID, err error) Result {
	return Result{ItemID: id, AppID: appID, Outcome: OutcomeFailed, Err: err}
}

// CanceledResult is the Result of an install that was canceled before the
// transfer began, e.g. while waiting for an admission slot.
func CanceledResult(id model.ItemID, err error) Result {
	return failed(id, 0, newError(KindCanceled, id, err))
}
