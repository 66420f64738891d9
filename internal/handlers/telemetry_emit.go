package handlers

import (
	"context"
	"encoding/json"

	"github.com/whotracksme/job-scheduler/internal/scheduler"
)

// TelemetryEmitArgs is the payload a TelemetryEmit job carries: a probe
// result ready to report upstream.
type TelemetryEmitArgs struct {
	Domain  string `json:"domain"`
	Verdict string `json:"verdict"`
}

// TelemetryEmit represents the terminal step in the probe pipeline:
// recording a finding. Emission is local in this demo; its only failure
// mode is a permanent bad_job error when the args cannot be decoded.
type TelemetryEmit struct{}

func (*TelemetryEmit) Type() string { return "telemetry_emit" }

func (*TelemetryEmit) Run(ctx context.Context, job *scheduler.Job) (scheduler.Outcome, error) {
	var args TelemetryEmitArgs
	if err := json.Unmarshal(job.Args, &args); err != nil {
		return scheduler.Outcome{}, scheduler.Permanent("bad_job", err)
	}
	return scheduler.Outcome{}, nil
}
