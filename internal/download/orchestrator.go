package download

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	ioutils "github.com/handiism/workshop-downloader/internal/io"
	"github.com/handiism/workshop-downloader/internal/logging"
	"github.com/handiism/workshop-downloader/internal/model"
	"github.com/handiism/workshop-downloader/internal/workshop"
)

var log = logging.L("download")

// Service is the remote side of an install. *workshop.Client implements it.
type Service interface {
	Submit(ctx context.Context, id model.ItemID) (string, error)
	Status(ctx context.Context, uuid string) (workshop.Job, error)
	Fetch(ctx context.Context, job workshop.Job, archivePath string, onProgress func(written, total int64)) error
}

// Options configures an Orchestrator. Zero values fall back to defaults.
type Options struct {
	// PollInterval is the delay before each status request. Default 1s.
	PollInterval time.Duration

	// StallTimeout aborts a job whose status and progress stay unchanged
	// for longer than this. Default 30s.
	StallTimeout time.Duration

	// MaxFetchRetries is the number of artifact download attempts. Default 3.
	MaxFetchRetries int

	// RetryCooldown and RetryExponent shape the delay between fetch attempts:
	// cooldown * exponent^attempt.
	RetryCooldown time.Duration
	RetryExponent float64

	// OnProgress receives user-facing status lines. May be nil.
	OnProgress func(ProgressEvent)
}

// Orchestrator drives one item from job submission to an extracted
// directory. It keeps no state between calls and is safe for concurrent use.
type Orchestrator struct {
	svc  Service
	opts Options
}

// NewOrchestrator creates an Orchestrator backed by svc.
func NewOrchestrator(svc Service, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.StallTimeout <= 0 {
		opts.StallTimeout = 30 * time.Second
	}
	if opts.MaxFetchRetries <= 0 {
		opts.MaxFetchRetries = 3
	}
	if opts.RetryCooldown <= 0 {
		opts.RetryCooldown = 200 * time.Millisecond
	}
	if opts.RetryExponent < 1 {
		opts.RetryExponent = 4.0
	}
	return &Orchestrator{svc: svc, opts: opts}
}

// Install downloads item id into dest+".zip", extracts it into dest and
// removes the archive whatever the extraction outcome.
//
// A downloaded archive that fails to extract is a failed install, and dest
// is left as it was before the call.
func (o *Orchestrator) Install(ctx context.Context, id model.ItemID, dest string) Result {
	archive := dest + ".zip"

	appID, err := o.Download(ctx, id, archive)
	if err != nil {
		o.removeArchive(id, archive)
		o.progress(ProgressEvent{ItemID: id, Message: fmt.Sprintf("Install error for %s: %v", id, err), Level: LevelError})
		return failed(id, 0, err)
	}

	o.progress(ProgressEvent{ItemID: id, Message: fmt.Sprintf("Extracting %s", id), Level: LevelVerbose})
	extractErr := ioutils.ExtractZip(ctx, archive, dest)
	o.removeArchive(id, archive)

	if extractErr != nil {
		kind := KindExtraction
		if ctx.Err() != nil {
			kind = KindCanceled
		}
		err := newError(kind, id, extractErr)
		log.Error("extraction failed", logging.KeyItemID, id, logging.KeyPath, dest, logging.KeyError, extractErr)
		o.progress(ProgressEvent{ItemID: id, Message: fmt.Sprintf("Install error for %s: %v", id, err), Level: LevelError})
		return failed(id, appID, err)
	}

	log.Info("item installed", logging.KeyItemID, id, logging.KeyAppID, appID, logging.KeyPath, dest)
	o.progress(ProgressEvent{ItemID: id, Message: fmt.Sprintf("Install successful for %s", id), Level: LevelSuccess, Status: string(workshop.JobPrepared), Progress: 100})
	return Result{ItemID: id, AppID: appID, Outcome: OutcomeInstalled}
}

// Download runs the remote job for id and streams its artifact to
// archivePath. It returns the owning app id parsed from the storage path,
// or 0 when that path carries none.
func (o *Orchestrator) Download(ctx context.Context, id model.ItemID, archivePath string) (model.AppID, error) {
	if err := ctx.Err(); err != nil {
		return 0, newError(KindCanceled, id, err)
	}

	uuid, err := o.svc.Submit(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return 0, newError(KindCanceled, id, ctx.Err())
		}
		log.Error("job submission failed", logging.KeyItemID, id, logging.KeyError, err)
		return 0, newError(KindSubmit, id, err)
	}

	log.Info("job submitted", logging.KeyItemID, id, logging.KeyJob, uuid)
	o.progress(ProgressEvent{ItemID: id, Message: fmt.Sprintf("Requested install of %s", id), Level: LevelInfo, Status: string(workshop.JobPending)})

	job, err := o.poll(ctx, id, uuid)
	if err != nil {
		return 0, err
	}

	if err := o.fetch(ctx, id, job, archivePath); err != nil {
		return 0, err
	}

	appID, ok := job.AppID()
	if !ok {
		log.Warn("storage path carries no app id", logging.KeyItemID, id, "storagePath", job.StoragePath)
	}
	return appID, nil
}

// poll waits for the job to become ready. The stall clock starts at
// submission and restarts whenever status text or progress changes between
// two successful observations.
func (o *Orchestrator) poll(ctx context.Context, id model.ItemID, uuid string) (workshop.Job, error) {
	lastChange := time.Now()
	var last *workshop.Job

	for {
		if err := sleep(ctx, o.opts.PollInterval); err != nil {
			return workshop.Job{}, newError(KindCanceled, id, err)
		}

		job, err := o.svc.Status(ctx, uuid)
		switch {
		case err != nil && ctx.Err() != nil:
			return workshop.Job{}, newError(KindCanceled, id, ctx.Err())
		case err != nil:
			log.Warn("status poll failed", logging.KeyItemID, id, logging.KeyJob, uuid, "kind", KindPollParse, logging.KeyError, err)
		default:
			if last != nil && (job.Status != last.Status || job.Progress != last.Progress) {
				lastChange = time.Now()
			}
			if last == nil || job.Status != last.Status || job.Progress != last.Progress {
				o.progress(ProgressEvent{
					ItemID:   id,
					Message:  fmt.Sprintf("%s: %s %d%%", id, job.Status, job.Progress),
					Level:    LevelVerbose,
					Status:   string(job.Status),
					Progress: job.Progress,
				})
			}
			observed := job
			last = &observed

			log.Debug("job status", logging.KeyItemID, id, logging.KeyJob, uuid, "status", job.Status, "progress", job.Progress)

			if job.Status == workshop.JobFailed {
				return workshop.Job{}, newError(KindJobFailed, id, fmt.Errorf("service reported failure: %s", job.Error))
			}
			if job.Ready() {
				return job, nil
			}
		}

		if stalled := time.Since(lastChange); stalled > o.opts.StallTimeout {
			log.Warn("job stalled", logging.KeyItemID, id, logging.KeyJob, uuid, "stalledFor", stalled)
			return workshop.Job{}, newError(KindStallTimeout, id, ErrStalled)
		}
	}
}

// fetch streams the artifact with the retry cooldown scheme.
func (o *Orchestrator) fetch(ctx context.Context, id model.ItemID, job workshop.Job, archivePath string) error {
	o.progress(ProgressEvent{ItemID: id, Message: fmt.Sprintf("Downloading %s", id), Level: LevelVerbose, Status: string(job.Status), Progress: job.Progress})

	var err error
	for tries := 0; tries < o.opts.MaxFetchRetries; tries++ {
		err = o.svc.Fetch(ctx, job, archivePath, o.byteProgress(id))
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return newError(KindCanceled, id, ctx.Err())
		}
		log.Warn("artifact fetch failed", logging.KeyItemID, id, "attempt", tries+1, "maxAttempts", o.opts.MaxFetchRetries, logging.KeyError, err)
		if tries+1 < o.opts.MaxFetchRetries {
			o.progress(ProgressEvent{ItemID: id, Message: fmt.Sprintf("Retry %d/%d for %s", tries+1, o.opts.MaxFetchRetries, id), Level: LevelWarning})
			if waitErr := o.waitForRetry(ctx, tries); waitErr != nil {
				return newError(KindCanceled, id, waitErr)
			}
		}
	}
	return newError(KindFetch, id, err)
}

const (
	// byteProgressStep is how often a transfer of unknown length is reported.
	byteProgressStep = 1 << 20

	statusDownloading = "downloading"
)

// byteProgress reports the artifact transfer as verbose events, once per
// whole percent or per byteProgressStep bytes when the length is unknown.
func (o *Orchestrator) byteProgress(id model.ItemID) func(written, total int64) {
	if o.opts.OnProgress == nil {
		return nil
	}
	lastPercent, lastWritten := -1, int64(0)
	return func(written, total int64) {
		percent := -1
		if total > 0 {
			percent = int(written * 100 / total)
			if percent == lastPercent {
				return
			}
			lastPercent = percent
		} else {
			if written-lastWritten < byteProgressStep {
				return
			}
			lastWritten = written
		}

		event := ProgressEvent{
			ItemID:  id,
			Level:   LevelVerbose,
			Status:  statusDownloading,
			Written: written,
			Total:   total,
		}
		if percent >= 0 {
			event.Progress = percent
			event.Message = fmt.Sprintf("%s: downloading %s/%s", id, formatBytes(written), formatBytes(total))
		} else {
			event.Message = fmt.Sprintf("%s: downloading %s", id, formatBytes(written))
		}
		o.progress(event)
	}
}

func formatBytes(n int64) string {
	return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
}

func (o *Orchestrator) waitForRetry(ctx context.Context, tries int) error {
	cooldown := float64(o.opts.RetryCooldown) * math.Pow(o.opts.RetryExponent, float64(tries))
	return sleep(ctx, time.Duration(cooldown))
}

// removeArchive deletes the transient archive. Failures are logged only.
func (o *Orchestrator) removeArchive(id model.ItemID, archive string) {
	if err := ioutils.RemoveFileIfExists(archive); err != nil {
		log.Warn("archive cleanup failed", logging.KeyItemID, id, logging.KeyPath, archive, "kind", KindCleanup, logging.KeyError, err)
	}
}

func (o *Orchestrator) progress(event ProgressEvent) {
	if o.opts.OnProgress != nil {
		o.opts.OnProgress(event)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsCanceled reports whether err is a cancellation, typed or raw.
func IsCanceled(err error) bool {
	return KindOf(err) == KindCanceled || errors.Is(err, context.Canceled)
}
