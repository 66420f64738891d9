package handlers

import (
	"context"
	"math/rand"

	"github.com/whotracksme/job-scheduler/internal/scheduler"
)

// WhitelistRefresh re-downloads the collector's whitelist of domains
// exempt from tracking analysis, once per job; it does not schedule a
// follow-up refresh. It has no per-job args: every instance refreshes the
// same whitelist.
type WhitelistRefresh struct{}

func (*WhitelistRefresh) Type() string { return "whitelist_refresh" }

func (*WhitelistRefresh) Run(ctx context.Context, job *scheduler.Job) (scheduler.Outcome, error) {
	if rand.Float64() < 0.1 {
		return scheduler.Outcome{}, scheduler.Recoverable("temporarily_unable_to_fetch_url",
			errTimeout)
	}
	return scheduler.Outcome{}, nil
}

var errTimeout = &refreshTimeoutError{}

type refreshTimeoutError struct{}

func (*refreshTimeoutError) Error() string { return "whitelist source timed out" }
