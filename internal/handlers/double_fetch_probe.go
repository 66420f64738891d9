package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	pkgerrors "github.com/whotracksme/job-scheduler/internal/pkg/errors"
	"github.com/whotracksme/job-scheduler/internal/pkg/httpx"
	"github.com/whotracksme/job-scheduler/internal/scheduler"
)

// DoubleFetchProbeArgs names the tracker domain being probed.
type DoubleFetchProbeArgs struct {
	Domain string `json:"domain"`
}

/*
DoubleFetchProbe fetches a domain twice and compares responses, checking
whether a tracker serves different content to a first-party page load
versus a bare fetch (a known tracking-evasion technique). Simulated here:
a random "status code" decides whether the probe succeeded, was rate
limited (recoverable, using httpx's retryable-status classification), or
hit a malformed domain (permanent).
*/
type DoubleFetchProbe struct{}

func (*DoubleFetchProbe) Type() string { return "double_fetch_probe" }

func (p *DoubleFetchProbe) Run(ctx context.Context, job *scheduler.Job) (scheduler.Outcome, error) {
	var args DoubleFetchProbeArgs
	if err := json.Unmarshal(job.Args, &args); err != nil {
		return scheduler.Outcome{}, scheduler.Permanent("bad_job", err)
	}
	if args.Domain == "" {
		return scheduler.Outcome{}, scheduler.Permanent("bad_pattern", pkgerrors.ErrInvalidArgument)
	}

	status := simulateStatus()
	if httpx.IsRetryableHTTPStatus(status) {
		return scheduler.Outcome{}, scheduler.Recoverable("rate_limited_by_server",
			fmt.Errorf("probe of %s got status %d", args.Domain, status))
	}
	if status >= 400 {
		return scheduler.Outcome{}, scheduler.Permanent("permanently_unable_to_fetch_url",
			fmt.Errorf("probe of %s got status %d", args.Domain, status))
	}

	// A successful probe spawns a telemetry_emit job reporting the result.
	payload, _ := json.Marshal(TelemetryEmitArgs{Domain: args.Domain, Verdict: "consistent"})
	return scheduler.Outcome{
		Spawned: []scheduler.JobRequest{{Type: "telemetry_emit", Args: payload}},
	}, nil
}

func simulateStatus() int {
	codes := []int{200, 200, 200, 429, 500, 404}
	return codes[rand.Intn(len(codes))]
}
