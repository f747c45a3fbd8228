package download

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/handiism/workshop-downloader/internal/http"
	"github.com/handiism/workshop-downloader/internal/model"
	"github.com/handiism/workshop-downloader/internal/workshop"
)

// fakeService replays a scripted sequence of job states. The last entry
// repeats once the script is exhausted.
type fakeService struct {
	mu sync.Mutex

	submitErr error
	script    []statusStep
	calls     int

	fetchErrs  []error // consumed per fetch call; nil entry means success
	fetches    int
	archive    []byte
	fetchCalls []time.Time
}

type statusStep struct {
	job workshop.Job
	err error
}

func step(status workshop.JobStatus, progress int) statusStep {
	return statusStep{job: workshop.Job{
		UUID:        "job-1",
		Status:      status,
		Progress:    progress,
		StorageNode: "node.example",
		StoragePath: "294100/42.zip",
	}}
}

func (f *fakeService) Submit(ctx context.Context, id model.ItemID) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "job-1", nil
}

func (f *fakeService) Status(ctx context.Context, uuid string) (workshop.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	if i >= len(f.script) {
		i = len(f.script) - 1
	}
	f.calls++
	s := f.script[i]
	return s.job, s.err
}

func (f *fakeService) Fetch(ctx context.Context, job workshop.Job, archivePath string, onProgress func(written, total int64)) error {
	f.mu.Lock()
	n := f.fetches
	f.fetches++
	f.fetchCalls = append(f.fetchCalls, time.Now())
	f.mu.Unlock()

	if n < len(f.fetchErrs) && f.fetchErrs[n] != nil {
		return f.fetchErrs[n]
	}
	if err := os.WriteFile(archivePath, f.archive, 0644); err != nil {
		return err
	}
	if onProgress != nil {
		total := int64(len(f.archive))
		onProgress(total/2, total)
		onProgress(total/2, total)
		onProgress(total, total)
	}
	return nil
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		w.Write([]byte(content))
	}
	zw.Close()
	f.Close()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func fastOptions() Options {
	return Options{
		PollInterval:    30 * time.Millisecond,
		StallTimeout:    150 * time.Millisecond,
		MaxFetchRetries: 3,
		RetryCooldown:   time.Millisecond,
		RetryExponent:   1,
	}
}

func TestInstall_Success(t *testing.T) {
	svc := &fakeService{
		script:  []statusStep{step(workshop.JobPending, 0), step(workshop.JobPreparing, 50), step(workshop.JobPrepared, 100)},
		archive: zipBytes(t, map[string]string{"map/level.dat": "data"}),
	}
	var events []ProgressEvent
	opts := fastOptions()
	opts.OnProgress = func(e ProgressEvent) { events = append(events, e) }

	root := t.TempDir()
	dest := model.LocalPath(root, 42)

	res := NewOrchestrator(svc, opts).Install(context.Background(), 42, dest)
	if !res.OK() {
		t.Fatalf("Install failed: %v", res.Err)
	}
	if res.Outcome != OutcomeInstalled {
		t.Errorf("Outcome = %s, want installed", res.Outcome)
	}
	if res.AppID != 294100 {
		t.Errorf("AppID = %d, want 294100", res.AppID)
	}
	if _, err := os.Stat(filepath.Join(dest, "map", "level.dat")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
	if _, err := os.Stat(dest + ".zip"); !os.IsNotExist(err) {
		t.Error("archive should be deleted after install")
	}
	if len(events) == 0 || events[len(events)-1].Level != LevelSuccess {
		t.Errorf("last event should be a success, got %+v", events)
	}
}

func TestInstall_ProgressResetsStallClock(t *testing.T) {
	// Total run time (~210ms) exceeds the 150ms stall timeout, but no
	// single quiet period does.
	svc := &fakeService{
		script: []statusStep{
			step(workshop.JobPreparing, 0),
			step(workshop.JobPreparing, 0),
			step(workshop.JobPreparing, 0),
			step(workshop.JobPreparing, 50),
			step(workshop.JobPreparing, 50),
			step(workshop.JobPreparing, 50),
			step(workshop.JobPrepared, 100),
		},
		archive: zipBytes(t, map[string]string{"a.txt": "a"}),
	}

	start := time.Now()
	res := NewOrchestrator(svc, fastOptions()).Install(context.Background(), 42, model.LocalPath(t.TempDir(), 42))
	if !res.OK() {
		t.Fatalf("Install failed after %v: %v", time.Since(start), res.Err)
	}
	if elapsed := time.Since(start); elapsed <= 150*time.Millisecond {
		t.Errorf("test did not outlast the stall timeout (%v); it proves nothing", elapsed)
	}
}

func TestInstall_ProgressSequence(t *testing.T) {
	svc := &fakeService{
		script: []statusStep{
			step(workshop.JobPreparing, 0),
			step(workshop.JobPreparing, 50),
			step(workshop.JobPreparing, 50),
			step(workshop.JobPrepared, 100),
		},
		archive: zipBytes(t, map[string]string{"a.txt": "a"}),
	}

	res := NewOrchestrator(svc, fastOptions()).Install(context.Background(), 42, model.LocalPath(t.TempDir(), 42))
	if !res.OK() {
		t.Fatalf("Install failed: %v", res.Err)
	}
}

func TestInstall_StallTimeout(t *testing.T) {
	svc := &fakeService{script: []statusStep{step(workshop.JobPreparing, 10)}}
	opts := fastOptions()

	start := time.Now()
	res := NewOrchestrator(svc, opts).Install(context.Background(), 42, model.LocalPath(t.TempDir(), 42))
	elapsed := time.Since(start)

	if res.OK() {
		t.Fatal("expected failure for a job that never changes")
	}
	if res.Kind() != KindStallTimeout {
		t.Fatalf("Kind = %s, want stall-timeout (%v)", res.Kind(), res.Err)
	}
	if !errors.Is(res.Err, ErrStalled) {
		t.Errorf("error should wrap ErrStalled: %v", res.Err)
	}
	if elapsed < opts.StallTimeout {
		t.Errorf("timed out after %v, before the %v stall timeout", elapsed, opts.StallTimeout)
	}
	if elapsed > opts.StallTimeout+4*opts.PollInterval {
		t.Errorf("timed out after %v, much later than %v", elapsed, opts.StallTimeout)
	}
	if res.AppID != 0 {
		t.Errorf("AppID = %d, want 0", res.AppID)
	}
}

func TestInstall_StallClockStartsAtSubmission(t *testing.T) {
	// The first observation is the baseline, so an unchanging job fails
	// within one poll interval of the timeout.
	svc := &fakeService{script: []statusStep{step(workshop.JobPreparing, 10)}}
	opts := fastOptions()
	opts.PollInterval = 50 * time.Millisecond
	opts.StallTimeout = 200 * time.Millisecond

	start := time.Now()
	res := NewOrchestrator(svc, opts).Install(context.Background(), 42, model.LocalPath(t.TempDir(), 42))
	elapsed := time.Since(start)

	if res.Kind() != KindStallTimeout {
		t.Fatalf("Kind = %s, want stall-timeout (%v)", res.Kind(), res.Err)
	}
	if elapsed < opts.StallTimeout {
		t.Errorf("timed out after %v, before the %v stall timeout", elapsed, opts.StallTimeout)
	}
	if limit := opts.StallTimeout + opts.PollInterval; elapsed >= limit {
		t.Errorf("timed out after %v, want under %v", elapsed, limit)
	}
}

func TestInstall_PollErrorsCountTowardStall(t *testing.T) {
	svc := &fakeService{script: []statusStep{{err: errors.New("decode status response: bad json")}}}

	res := NewOrchestrator(svc, fastOptions()).Install(context.Background(), 42, model.LocalPath(t.TempDir(), 42))
	if res.Kind() != KindStallTimeout {
		t.Fatalf("Kind = %s, want stall-timeout", res.Kind())
	}
	if svc.calls < 2 {
		t.Errorf("poll loop should keep going after errors, got %d calls", svc.calls)
	}
}

func TestInstall_FetchProgressEvents(t *testing.T) {
	svc := &fakeService{
		script:  []statusStep{step(workshop.JobPrepared, 100)},
		archive: zipBytes(t, map[string]string{"a.txt": "a"}),
	}
	var downloading []ProgressEvent
	opts := fastOptions()
	opts.OnProgress = func(e ProgressEvent) {
		if e.Status == statusDownloading {
			downloading = append(downloading, e)
		}
	}

	res := NewOrchestrator(svc, opts).Install(context.Background(), 42, model.LocalPath(t.TempDir(), 42))
	if !res.OK() {
		t.Fatalf("Install failed: %v", res.Err)
	}

	total := int64(len(svc.archive))
	if len(downloading) != 2 {
		t.Fatalf("got %d byte progress events, want 2 (repeats are dropped): %+v", len(downloading), downloading)
	}
	last := downloading[len(downloading)-1]
	if last.Written != total || last.Total != total || last.Progress != 100 {
		t.Errorf("last event = %+v, want %d/%d at 100%%", last, total, total)
	}
	if last.Level != LevelVerbose || last.ItemID != 42 {
		t.Errorf("last event = %+v, want verbose for item 42", last)
	}
}

func TestByteProgress_UnknownLength(t *testing.T) {
	var events []ProgressEvent
	o := NewOrchestrator(&fakeService{}, Options{OnProgress: func(e ProgressEvent) { events = append(events, e) }})
	report := o.byteProgress(42)

	report(1000, -1)
	report(byteProgressStep-1, -1)
	if len(events) != 0 {
		t.Fatalf("reported %d events before a full step", len(events))
	}
	report(byteProgressStep+10, -1)
	report(byteProgressStep+20, -1)
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if e := events[0]; e.Written != byteProgressStep+10 || e.Total != -1 || e.Progress != 0 {
		t.Errorf("event = %+v", e)
	}
	if !strings.Contains(events[0].Message, "1.0 MB") {
		t.Errorf("message = %q, want the written size", events[0].Message)
	}
}

func TestByteProgress_NoListener(t *testing.T) {
	if NewOrchestrator(&fakeService{}, Options{}).byteProgress(42) != nil {
		t.Error("byteProgress should be nil without a listener")
	}
}

func TestInstall_SubmitFailure(t *testing.T) {
	svc := &fakeService{submitErr: workshop.ErrNoJobID}

	res := NewOrchestrator(svc, fastOptions()).Install(context.Background(), 42, model.LocalPath(t.TempDir(), 42))
	if res.OK() {
		t.Fatal("expected failure")
	}
	if res.Kind() != KindSubmit {
		t.Errorf("Kind = %s, want submit", res.Kind())
	}
	if !errors.Is(res.Err, workshop.ErrNoJobID) {
		t.Errorf("error should wrap ErrNoJobID: %v", res.Err)
	}
	if res.AppID != 0 {
		t.Errorf("AppID = %d, want 0", res.AppID)
	}
}

func TestInstall_JobFailed(t *testing.T) {
	failedStep := step(workshop.JobFailed, 0)
	failedStep.job.Error = "item not found"
	svc := &fakeService{script: []statusStep{step(workshop.JobPending, 0), failedStep}}

	res := NewOrchestrator(svc, fastOptions()).Install(context.Background(), 42, model.LocalPath(t.TempDir(), 42))
	if res.Kind() != KindJobFailed {
		t.Fatalf("Kind = %s, want job-failed", res.Kind())
	}
	if !strings.Contains(res.Err.Error(), "item not found") {
		t.Errorf("error should carry the service message: %v", res.Err)
	}
}

func TestInstall_FetchRetries(t *testing.T) {
	svc := &fakeService{
		script:    []statusStep{step(workshop.JobPrepared, 100)},
		fetchErrs: []error{errors.New("connection reset"), errors.New("connection reset")},
		archive:   zipBytes(t, map[string]string{"a.txt": "a"}),
	}

	res := NewOrchestrator(svc, fastOptions()).Install(context.Background(), 42, model.LocalPath(t.TempDir(), 42))
	if !res.OK() {
		t.Fatalf("Install failed: %v", res.Err)
	}
	if svc.fetches != 3 {
		t.Errorf("fetches = %d, want 3", svc.fetches)
	}
}

func TestInstall_FetchFailure(t *testing.T) {
	fetchErr := errors.New("connection reset")
	svc := &fakeService{
		script:    []statusStep{step(workshop.JobPrepared, 100)},
		fetchErrs: []error{fetchErr, fetchErr, fetchErr},
	}

	res := NewOrchestrator(svc, fastOptions()).Install(context.Background(), 42, model.LocalPath(t.TempDir(), 42))
	if res.Kind() != KindFetch {
		t.Fatalf("Kind = %s, want fetch", res.Kind())
	}
	if !errors.Is(res.Err, fetchErr) {
		t.Errorf("error should wrap the fetch error: %v", res.Err)
	}
	if svc.fetches != 3 {
		t.Errorf("fetches = %d, want 3", svc.fetches)
	}
}

func TestInstall_ExtractionFailureRemovesArchive(t *testing.T) {
	svc := &fakeService{
		script:  []statusStep{step(workshop.JobPrepared, 100)},
		archive: []byte("definitely not a zip archive"),
	}

	root := t.TempDir()
	dest := model.LocalPath(root, 42)

	res := NewOrchestrator(svc, fastOptions()).Install(context.Background(), 42, dest)
	if res.OK() {
		t.Fatal("expected failure for corrupt archive")
	}
	if res.Kind() != KindExtraction {
		t.Errorf("Kind = %s, want extraction", res.Kind())
	}
	if svc.fetches != 1 {
		t.Errorf("fetch should have succeeded once, got %d calls", svc.fetches)
	}
	if _, err := os.Stat(dest + ".zip"); !os.IsNotExist(err) {
		t.Error("archive must be deleted after failed extraction")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("no install directory should be left after failed extraction")
	}
}

func TestInstall_CanceledWhilePolling(t *testing.T) {
	svc := &fakeService{script: []statusStep{step(workshop.JobPreparing, 10)}}
	opts := fastOptions()
	opts.StallTimeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(80*time.Millisecond, cancel)

	start := time.Now()
	res := NewOrchestrator(svc, opts).Install(ctx, 42, model.LocalPath(t.TempDir(), 42))
	if res.Kind() != KindCanceled {
		t.Fatalf("Kind = %s, want canceled", res.Kind())
	}
	if !IsCanceled(res.Err) {
		t.Error("IsCanceled should report true")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
}

func TestInstall_CanceledBeforeStart(t *testing.T) {
	svc := &fakeService{submitErr: errors.New("must not be called")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewOrchestrator(svc, fastOptions()).Install(ctx, 42, model.LocalPath(t.TempDir(), 42))
	if res.Kind() != KindCanceled {
		t.Fatalf("Kind = %s, want canceled", res.Kind())
	}
}

// TestInstall_AgainstHTTPService runs the whole protocol against an
// httptest server speaking the real wire format.
func TestInstall_AgainstHTTPService(t *testing.T) {
	archive := zipBytes(t, map[string]string{"mod/info.json": `{"name":"test"}`})

	var (
		mu    sync.Mutex
		polls int
	)
	var srv *httptest.Server
	srv = httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch {
		case r.URL.Path == "/api/download/request":
			w.Write([]byte(`{"uuid":"abc-123"}`))
		case r.URL.Path == "/api/download/status":
			mu.Lock()
			polls++
			n := polls
			mu.Unlock()
			node := strings.TrimPrefix(srv.URL, "http://")
			if n < 2 {
				fmt.Fprintf(w, `{"abc-123":{"status":"preparing","progress":40,"storageNode":%q,"storagePath":""}}`, node)
				return
			}
			fmt.Fprintf(w, `{"abc-123":{"status":"prepared","progress":100,"storageNode":%q,"storagePath":"294100/42/file.zip"}}`, node)
		case strings.Contains(r.URL.Path, "/storage/"):
			if r.URL.Query().Get("uuid") != "abc-123" {
				nethttp.Error(w, "bad uuid", nethttp.StatusBadRequest)
				return
			}
			w.Write(archive)
		default:
			nethttp.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := workshop.NewClient(http.NewClient(http.Options{RequestTimeout: time.Second}), workshop.Endpoint{
		APIBase:       srv.URL + "/api",
		StorageScheme: "http",
		StoragePrefix: "/prod/storage/",
	})

	root := t.TempDir()
	dest := model.LocalPath(root, 42)

	var (
		eventsMu sync.Mutex
		fetched  ProgressEvent
	)
	opts := fastOptions()
	opts.OnProgress = func(e ProgressEvent) {
		eventsMu.Lock()
		defer eventsMu.Unlock()
		if e.Status == statusDownloading {
			fetched = e
		}
	}

	res := NewOrchestrator(client, opts).Install(context.Background(), 42, dest)
	if !res.OK() {
		t.Fatalf("Install failed: %v", res.Err)
	}
	eventsMu.Lock()
	if want := int64(len(archive)); fetched.Written != want || fetched.Total != want {
		t.Errorf("last byte progress = %d/%d, want %d/%d", fetched.Written, fetched.Total, want, want)
	}
	eventsMu.Unlock()
	if res.AppID != 294100 {
		t.Errorf("AppID = %d, want 294100", res.AppID)
	}
	if _, err := os.Stat(filepath.Join(dest, "mod", "info.json")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
	if _, err := os.Stat(dest + ".zip"); !os.IsNotExist(err) {
		t.Error("archive should be deleted")
	}
}
