package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	pkgerrors "github.com/whotracksme/job-scheduler/internal/pkg/errors"
	"github.com/whotracksme/job-scheduler/internal/scheduler"
)

// QuorumCheckArgs names the claim a quorum of collectors must agree on
// before it is trusted.
type QuorumCheckArgs struct {
	ClaimID string `json:"claim_id"`
}

// QuorumCheck simulates asking a sample of collectors whether they agree
// on a claim (e.g. "this domain is a known tracker"). Disagreement below
// quorum is recoverable — worth trying again once more reports come in;
// a malformed claim ID is permanent.
type QuorumCheck struct{}

func (*QuorumCheck) Type() string { return "quorum_check" }

func (*QuorumCheck) Run(ctx context.Context, job *scheduler.Job) (scheduler.Outcome, error) {
	var args QuorumCheckArgs
	if err := json.Unmarshal(job.Args, &args); err != nil {
		return scheduler.Outcome{}, scheduler.Permanent("bad_job", err)
	}
	if args.ClaimID == "" {
		return scheduler.Outcome{}, scheduler.Permanent("bad_pattern", pkgerrors.ErrInvalidArgument)
	}

	agreement := rand.Float64()
	if agreement < 0.3 {
		return scheduler.Outcome{}, scheduler.Recoverable("quorum_not_reached",
			fmt.Errorf("claim %s only reached %.0f%% agreement", args.ClaimID, agreement*100))
	}

	payload, _ := json.Marshal(TelemetryEmitArgs{Domain: args.ClaimID, Verdict: "quorum_reached"})
	return scheduler.Outcome{
		Spawned: []scheduler.JobRequest{{Type: "telemetry_emit", Args: payload}},
	}, nil
}
