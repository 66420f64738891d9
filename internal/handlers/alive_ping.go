package handlers

import (
	"context"

	"github.com/whotracksme/job-scheduler/internal/scheduler"
)

// AlivePing is the lowest-priority, always-succeeding heartbeat job type,
// used to verify the dispatcher is still making forward progress even
// when every other type is backed off in cooldown or retry.
type AlivePing struct{}

func (*AlivePing) Type() string { return "alive_ping" }

func (*AlivePing) Run(ctx context.Context, job *scheduler.Job) (scheduler.Outcome, error) {
	return scheduler.Outcome{}, nil
}
