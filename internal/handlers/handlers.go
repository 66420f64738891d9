// Package handlers holds the scheduler daemon's demo job types: small,
// self-contained Handler implementations standing in for the kinds of
// recurring background work a browser-extension privacy-telemetry
// collector needs — probing whether a tracker domain double-serves
// content, refreshing a whitelist, checking quorum across collectors, and
// so on. None of them do real network I/O; each simulates its outcome so
// the scheduler can be exercised end-to-end without external services.
package handlers

import (
	"time"

	"github.com/whotracksme/job-scheduler/internal/pkg/pointers"
	"github.com/whotracksme/job-scheduler/internal/scheduler"
)

// RegisterAll wires every demo handler into sched with its HandlerConfig:
// one call site listing every type the daemon knows about.
func RegisterAll(sched *scheduler.Scheduler) error {
	defaults := scheduler.DefaultHandlerConfig(10000)

	handlersWithConfig := []struct {
		handler scheduler.Handler
		config  scheduler.HandlerConfig
	}{
		{&DoubleFetchProbe{}, withPriority(defaults, 5)},
		{&QuorumCheck{}, withPriority(defaults, 3)},
		{&TelemetryEmit{}, withPriority(defaults, 1)},
		{&WhitelistRefresh{}, withPriority(defaults, 0)},
		{&TokenExaminerSync{}, withPriority(defaults, 2)},
		{&AlivePing{}, withPriority(defaults, -1)},
	}
	for _, hc := range handlersWithConfig {
		if err := sched.RegisterHandler(hc.handler, hc.config); err != nil {
			return err
		}
	}
	return nil
}

func withPriority(cfg scheduler.HandlerConfig, p int) scheduler.HandlerConfig {
	cfg.Priority = p
	return cfg
}

// Seed admits the daemon's first jobs: an immediate whitelist_refresh and a
// low-priority alive_ping on a short cooldown, so the dispatcher has
// something to do on first boot. Each runs once; neither re-registers
// itself.
func Seed(sched *scheduler.Scheduler) ([]*scheduler.Job, []error) {
	return sched.RegisterJobs([]scheduler.JobRequest{
		{Type: "whitelist_refresh", Priority: pointers.Int(0)},
		{
			Type:         "alive_ping",
			Priority:     pointers.Int(-1),
			CooldownInMs: pointers.Ptr(30 * time.Second),
		},
	})
}
