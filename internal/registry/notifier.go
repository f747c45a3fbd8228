package registry

import "github.com/handiism/workshop-downloader/internal/model"

// Notifier receives lifecycle notifications for the host platform.
// Calls are made outside the registry lock, possibly from several
// goroutines at once.
type Notifier interface {
	NotifySubscribed(id model.ItemID)
	NotifyDownloadResult(id model.ItemID, success bool, appID model.AppID)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) NotifySubscribed(model.ItemID) {}
func (NopNotifier) NotifyDownloadResult(model.ItemID, bool, model.AppID) {}

// NotifierFuncs adapts two plain functions to a Notifier. Nil fields are
// skipped.
type NotifierFuncs struct {
	Subscribed     func(id model.ItemID)
	DownloadResult func(id model.ItemID, success bool, appID model.AppID)
}

func (f NotifierFuncs) NotifySubscribed(id model.ItemID) {
	if f.Subscribed != nil {
		f.Subscribed(id)
	}
}

func (f NotifierFuncs) NotifyDownloadResult(id model.ItemID, success bool, appID model.AppID) {
	if f.DownloadResult != nil {
		f.DownloadResult(id, success, appID)
	}
}
