package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/handiism/workshop-downloader/internal/download"
	ioutils "github.com/handiism/workshop-downloader/internal/io"
	"github.com/handiism/workshop-downloader/internal/logging"
	"github.com/handiism/workshop-downloader/internal/model"
)

var log = logging.L("registry")

// ErrUnsubscribed is carried by installs whose item was removed before the
// transfer started.
var ErrUnsubscribed = errors.New("item was unsubscribed")

// Installer downloads and extracts one item into dest.
// *download.Orchestrator implements it.
type Installer interface {
	Install(ctx context.Context, id model.ItemID, dest string) download.Result
}

// Options configures a Registry.
type Options struct {
	// Root is the content root. Item directories live directly under it.
	Root string

	// Downloader performs the actual transfers. Required.
	Downloader Installer

	// Notifier receives host notifications. Defaults to NopNotifier.
	Notifier Notifier

	// MaxConcurrentInstalls bounds the number of transfers running at once.
	// Further installs queue. Default 2.
	MaxConcurrentInstalls int

	// UnsubscribePollInterval and UnsubscribeMaxPolls bound how long
	// Unsubscribe waits for a canceled install to return. Defaults 1s and 60.
	UnsubscribePollInterval time.Duration
	UnsubscribeMaxPolls     int

	// ResetStateOnFailure moves a failed item back to Subscribed. When false
	// a failed item stays Installing.
	ResetStateOnFailure bool

	// OnProgress receives registry-level status lines. May be nil.
	OnProgress func(download.ProgressEvent)
}

// InstallInfo describes an installed item on disk.
type InstallInfo struct {
	Path       string
	SizeOnDisk int64
	Timestamp  time.Time
}

// inflight tracks one running install so Unsubscribe and Close can stop it.
type inflight struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Registry is the in-memory catalogue of known items and their lifecycle
// state. All methods are safe for concurrent use. The lock is never held
// across network calls, admission waits or sleeps.
type Registry struct {
	opts Options
	sem  *semaphore.Weighted

	mu       sync.Mutex
	items    []*model.Item
	installs map[model.ItemID]*inflight
	draining map[model.ItemID]chan struct{} // closed once Unsubscribe removed the files
	appID    model.AppID
}

// New creates a Registry rooted at opts.Root, creating the directory if it
// is missing, and loads the items already installed there.
func New(opts Options) (*Registry, error) {
	if opts.Root == "" {
		return nil, errors.New("registry: content root is required")
	}
	if opts.Downloader == nil {
		return nil, errors.New("registry: downloader is required")
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	if opts.MaxConcurrentInstalls <= 0 {
		opts.MaxConcurrentInstalls = 2
	}
	if opts.UnsubscribePollInterval <= 0 {
		opts.UnsubscribePollInterval = time.Second
	}
	if opts.UnsubscribeMaxPolls <= 0 {
		opts.UnsubscribeMaxPolls = 60
	}

	if err := ioutils.EnsureDir(opts.Root); err != nil {
		return nil, fmt.Errorf("create content root: %w", err)
	}

	r := &Registry{
		opts:     opts,
		sem:      semaphore.NewWeighted(int64(opts.MaxConcurrentInstalls)),
		installs: make(map[model.ItemID]*inflight),
		draining: make(map[model.ItemID]chan struct{}),
	}
	if err := r.LoadFromDisk(); err != nil {
		return nil, err
	}
	return r, nil
}

// Root returns the content root.
func (r *Registry) Root() string {
	return r.opts.Root
}

// Subscribe registers interest in id. It is idempotent: the host is only
// notified when a new item was created.
func (r *Registry) Subscribe(id model.ItemID) {
	r.mu.Lock()
	created := false
	if r.find(id) == nil {
		r.items = append(r.items, model.NewItem(r.opts.Root, id, model.StateSubscribed))
		created = true
	}
	r.mu.Unlock()

	if !created {
		return
	}
	log.Info("item subscribed", logging.KeyItemID, id)
	r.progress(download.ProgressEvent{ItemID: id, Message: fmt.Sprintf("Subscribed to %s", id), Level: download.LevelInfo})
	r.opts.Notifier.NotifySubscribed(id)
}

// Install installs id and blocks until the transfer ends. Unknown items
// are subscribed first. Installing an item that is already installed or
// installing succeeds without starting a second transfer and without a
// notification. An install of an item whose Unsubscribe is still cleaning
// up waits for the cleanup to finish.
func (r *Registry) Install(ctx context.Context, id model.ItemID) download.Result {
	r.Subscribe(id)

	r.mu.Lock()
	for {
		cleanup := r.draining[id]
		if cleanup == nil {
			break
		}
		r.mu.Unlock()
		log.Debug("waiting for unsubscribe cleanup", logging.KeyItemID, id)
		select {
		case <-cleanup:
		case <-ctx.Done():
			return download.CanceledResult(id, ctx.Err())
		}
		r.mu.Lock()
	}
	item := r.find(id)
	if item == nil {
		r.mu.Unlock()
		return download.CanceledResult(id, ErrUnsubscribed)
	}
	switch item.State {
	case model.StateInstalled:
		appID := r.appID
		r.mu.Unlock()
		log.Debug("already installed", logging.KeyItemID, id)
		return download.Result{ItemID: id, AppID: appID, Outcome: download.OutcomeAlreadyInstalled}
	case model.StateInstalling:
		r.mu.Unlock()
		log.Debug("install already in progress", logging.KeyItemID, id)
		return download.Result{ItemID: id, Outcome: download.OutcomeInProgress}
	}

	item.State = model.StateInstalling
	installCtx, cancel := context.WithCancel(ctx)
	job := &inflight{cancel: cancel, done: make(chan struct{})}
	r.installs[id] = job
	dest := item.Path
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		if r.installs[id] == job {
			delete(r.installs, id)
		}
		r.mu.Unlock()
		close(job.done)
	}()

	var res download.Result
	if err := r.sem.Acquire(installCtx, 1); err != nil {
		log.Info("install canceled while queued", logging.KeyItemID, id)
		res = download.CanceledResult(id, err)
	} else {
		res = r.opts.Downloader.Install(installCtx, id, dest)
		r.sem.Release(1)
	}

	r.finish(item, res)
	return res
}

// finish applies the result to item and notifies the host. Results for
// items removed while installing are dropped.
func (r *Registry) finish(item *model.Item, res download.Result) {
	r.mu.Lock()
	current := r.find(item.ID) == item
	if current {
		switch {
		case res.OK():
			item.State = model.StateInstalled
		case r.opts.ResetStateOnFailure:
			item.State = model.StateSubscribed
		}
	}
	if r.appID == 0 && res.AppID != 0 {
		r.appID = res.AppID
		log.Info("app id discovered", logging.KeyAppID, res.AppID)
	}
	appID := res.AppID
	if appID == 0 {
		appID = r.appID
	}
	r.mu.Unlock()

	if !current {
		log.Info("dropping result of unsubscribed item", logging.KeyItemID, item.ID, "outcome", res.Outcome)
		return
	}
	if res.OK() {
		log.Info("install finished", logging.KeyItemID, item.ID, logging.KeyAppID, appID)
	} else {
		log.Warn("install failed", logging.KeyItemID, item.ID, "kind", res.Kind(), logging.KeyError, res.Err)
	}
	r.opts.Notifier.NotifyDownloadResult(item.ID, res.OK(), appID)
}

// StartInstall runs Install in a new goroutine. The channel receives
// exactly one Result.
func (r *Registry) StartInstall(ctx context.Context, id model.ItemID) <-chan download.Result {
	ch := make(chan download.Result, 1)
	go func() {
		ch <- r.Install(ctx, id)
	}()
	return ch
}

// InstallAll installs ids concurrently and returns their results in input
// order.
func (r *Registry) InstallAll(ctx context.Context, ids []model.ItemID) []download.Result {
	results := make([]download.Result, len(ids))

	var g errgroup.Group
	g.SetLimit(r.opts.MaxConcurrentInstalls)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = r.Install(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Unsubscribe removes id, cancels its install if one is running, waits for
// that install to return, then deletes the item's directory and archive.
// Installs of id started meanwhile do not begin until the files are gone.
// Unknown ids are ignored.
func (r *Registry) Unsubscribe(ctx context.Context, id model.ItemID) {
	r.mu.Lock()
	idx := r.index(id)
	if idx < 0 {
		r.mu.Unlock()
		return
	}
	item := r.items[idx]
	r.items = append(r.items[:idx], r.items[idx+1:]...)
	job := r.installs[id]
	cleaned := make(chan struct{})
	r.draining[id] = cleaned
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.draining[id] == cleaned {
			delete(r.draining, id)
		}
		r.mu.Unlock()
		close(cleaned)
	}()

	log.Info("item unsubscribed", logging.KeyItemID, id, "state", item.State)

	if job != nil {
		job.cancel()
		r.await(ctx, id, job)
	}

	if err := ioutils.RemoveAllIfExists(model.LocalPath(r.opts.Root, id)); err != nil {
		log.Error("remove item directory", logging.KeyItemID, id, logging.KeyError, err)
	}
	if err := ioutils.RemoveFileIfExists(model.ArchivePath(r.opts.Root, id)); err != nil {
		log.Error("remove item archive", logging.KeyItemID, id, logging.KeyError, err)
	}
	r.progress(download.ProgressEvent{ItemID: id, Message: fmt.Sprintf("Unsubscribed from %s", id), Level: download.LevelInfo})
}

// await polls until job has returned, giving up after UnsubscribeMaxPolls
// intervals.
func (r *Registry) await(ctx context.Context, id model.ItemID, job *inflight) {
	ticker := time.NewTicker(r.opts.UnsubscribePollInterval)
	defer ticker.Stop()

	for polls := 0; polls < r.opts.UnsubscribeMaxPolls; polls++ {
		select {
		case <-job.done:
			return
		case <-ctx.Done():
			log.Warn("stopped waiting for install", logging.KeyItemID, id, logging.KeyError, ctx.Err())
			return
		case <-ticker.C:
		}
	}
	log.Warn("install still running after unsubscribe", logging.KeyItemID, id, "polls", r.opts.UnsubscribeMaxPolls)
}

// LoadFromDisk replaces the collection with one Installed item per numeric
// subdirectory of the root.
func (r *Registry) LoadFromDisk() error {
	names, err := ioutils.ListItemDirs(r.opts.Root)
	if err != nil {
		return fmt.Errorf("scan content root: %w", err)
	}

	items := make([]*model.Item, 0, len(names))
	seen := make(map[model.ItemID]bool, len(names))
	for _, name := range names {
		n, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			log.Debug("skipping directory", logging.KeyPath, name, logging.KeyError, err)
			continue
		}
		id := model.ItemID(n)
		if seen[id] {
			log.Debug("skipping duplicate item directory", logging.KeyPath, name, logging.KeyItemID, id)
			continue
		}
		seen[id] = true
		items = append(items, model.NewItem(r.opts.Root, id, model.StateInstalled))
	}

	r.mu.Lock()
	r.items = items
	r.mu.Unlock()

	log.Info("loaded installed items", "count", len(items), logging.KeyPath, r.opts.Root)
	return nil
}

// State returns the state of id, or StateNone when it is unknown.
func (r *Registry) State(id model.ItemID) model.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item := r.find(id); item != nil {
		return item.State
	}
	return model.StateNone
}

// IDs returns at most limit ids in collection order together with the
// total number of known items.
func (r *Registry) IDs(limit int) ([]model.ItemID, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := min(max(limit, 0), len(r.items))
	ids := make([]model.ItemID, n)
	for i := range n {
		ids[i] = r.items[i].ID
	}
	return ids, len(r.items)
}

// Count returns the number of known items.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// LocalPath returns the install directory of id. Unknown ids get the path
// they would have.
func (r *Registry) LocalPath(id model.ItemID) string {
	return model.LocalPath(r.opts.Root, id)
}

// Item returns a snapshot of id.
func (r *Registry) Item(id model.ItemID) (model.Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if item := r.find(id); item != nil {
		return *item, true
	}
	return model.Item{}, false
}

// Items returns a snapshot of every known item in collection order.
func (r *Registry) Items() []model.Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Item, len(r.items))
	for i, item := range r.items {
		out[i] = *item
	}
	return out
}

// InstallInfo reports where and how large an installed item is on disk.
func (r *Registry) InstallInfo(id model.ItemID) (InstallInfo, bool) {
	if r.State(id) != model.StateInstalled {
		return InstallInfo{}, false
	}
	path := r.LocalPath(id)
	size, mod, err := ioutils.DirUsage(path)
	if err != nil {
		log.Warn("read install info", logging.KeyItemID, id, logging.KeyPath, path, logging.KeyError, err)
		return InstallInfo{}, false
	}
	return InstallInfo{Path: path, SizeOnDisk: size, Timestamp: mod}, true
}

// RefreshInstalled re-sends a successful download notification for every
// installed item.
func (r *Registry) RefreshInstalled() {
	r.mu.Lock()
	var ids []model.ItemID
	for _, item := range r.items {
		if item.State == model.StateInstalled {
			ids = append(ids, item.ID)
		}
	}
	appID := r.appID
	r.mu.Unlock()

	for _, id := range ids {
		r.opts.Notifier.NotifyDownloadResult(id, true, appID)
	}
}

// KnownAppID returns the first non-zero app id seen in any install.
func (r *Registry) KnownAppID() model.AppID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appID
}

// Close cancels all running installs and waits for them to return or for
// ctx to end.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	jobs := make([]*inflight, 0, len(r.installs))
	for _, job := range r.installs {
		jobs = append(jobs, job)
	}
	r.mu.Unlock()

	for _, job := range jobs {
		job.cancel()
	}
	for _, job := range jobs {
		select {
		case <-job.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (r *Registry) find(id model.ItemID) *model.Item {
	if i := r.index(id); i >= 0 {
		return r.items[i]
	}
	return nil
}

func (r *Registry) index(id model.ItemID) int {
	for i, item := range r.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) progress(event download.ProgressEvent) {
	if r.opts.OnProgress != nil {
		r.opts.OnProgress(event)
	}
}
