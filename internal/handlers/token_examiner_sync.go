package handlers

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/whotracksme/job-scheduler/internal/pkg/httpx"
	"github.com/whotracksme/job-scheduler/internal/scheduler"
)

// TokenExaminerSync simulates pulling the latest ruleset for the token
// examiner (the component that flags suspicious auth-token patterns in
// outgoing requests) from a remote source. On a 429 it parses Retry-After
// with httpx and reports the wait in the error message; the wait does not
// change when the scheduler retries the job.
type TokenExaminerSync struct{}

func (*TokenExaminerSync) Type() string { return "token_examiner_sync" }

func (*TokenExaminerSync) Run(ctx context.Context, job *scheduler.Job) (scheduler.Outcome, error) {
	resp := simulateSyncResponse()
	if resp.StatusCode == http.StatusTooManyRequests {
		wait := httpx.RetryAfterDuration(resp, 30*time.Second, 5*time.Minute)
		return scheduler.Outcome{}, scheduler.Recoverable("rate_limited_by_server",
			fmt.Errorf("sync throttled, retry after %s", wait))
	}
	if resp.StatusCode >= 500 {
		return scheduler.Outcome{}, scheduler.Recoverable("server_error",
			fmt.Errorf("sync source returned %d", resp.StatusCode))
	}
	return scheduler.Outcome{}, nil
}

func simulateSyncResponse() *http.Response {
	codes := []int{200, 200, 200, 429, 503}
	code := codes[rand.Intn(len(codes))]
	h := http.Header{}
	if code == http.StatusTooManyRequests {
		h.Set("Retry-After", "60")
	}
	return &http.Response{StatusCode: code, Header: h}
}
