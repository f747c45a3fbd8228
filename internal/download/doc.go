// Package download provides the install orchestration for content items.
//
// # Orchestrator
//
// The Orchestrator takes one item from nothing to an extracted directory:
//
//  1. Submit a download job to the remote service
//  2. Poll the job status every PollInterval
//  3. Fetch the prepared archive to {dest}.zip
//  4. Extract the archive into {dest}
//  5. Delete the archive, whatever the extraction outcome
//
// # Basic Usage
//
//	orch := download.NewOrchestrator(client, download.Options{
//	    PollInterval: time.Second,
//	    StallTimeout: 30 * time.Second,
//	    OnProgress: func(event download.ProgressEvent) {
//	        fmt.Println(event.Message)
//	    },
//	})
//
//	res := orch.Install(ctx, 2463582957, "/content/2463582957")
//	if !res.OK() {
//	    log.Printf("install failed (%s): %v", res.Kind(), res.Err)
//	}
//
// # Stall Timeout
//
// The poll loop has no overall deadline. It fails only when the job's
// status text and progress stay the same for longer than StallTimeout, so a
// slow job that keeps moving is never cut off. Unreadable status answers
// are logged and count as "no change".
//
// # Failures
//
// Every failure is an *Error whose Kind names the phase: submit,
// stall-timeout, job-failed, fetch, extraction or canceled. Hosts that only
// need a boolean use Result.OK.
//
// # Cancellation
//
// The context is checked before every network call and every poll
// iteration; a canceled install returns KindCanceled.
package download
