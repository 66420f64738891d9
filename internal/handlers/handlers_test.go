package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/whotracksme/job-scheduler/internal/scheduler"
)

func TestDoubleFetchProbeRejectsEmptyDomain(t *testing.T) {
	args, _ := json.Marshal(DoubleFetchProbeArgs{Domain: ""})
	h := &DoubleFetchProbe{}
	_, err := h.Run(context.Background(), &scheduler.Job{Args: args})
	if err == nil || scheduler.IsRecoverable(err) {
		t.Fatal("expected a non-recoverable error for an empty domain")
	}
}

func TestDoubleFetchProbeRejectsBadJSON(t *testing.T) {
	h := &DoubleFetchProbe{}
	_, err := h.Run(context.Background(), &scheduler.Job{Args: []byte("not json")})
	if err == nil || scheduler.IsRecoverable(err) {
		t.Fatal("expected a non-recoverable error for malformed args")
	}
}

func TestQuorumCheckRejectsEmptyClaimID(t *testing.T) {
	args, _ := json.Marshal(QuorumCheckArgs{ClaimID: ""})
	h := &QuorumCheck{}
	_, err := h.Run(context.Background(), &scheduler.Job{Args: args})
	if err == nil || scheduler.IsRecoverable(err) {
		t.Fatal("expected a non-recoverable error for an empty claim id")
	}
}

func TestAlivePingAlwaysSucceeds(t *testing.T) {
	h := &AlivePing{}
	if _, err := h.Run(context.Background(), &scheduler.Job{}); err != nil {
		t.Fatalf("expected alive_ping to never fail, got %v", err)
	}
}

func TestTelemetryEmitRejectsBadJSON(t *testing.T) {
	h := &TelemetryEmit{}
	_, err := h.Run(context.Background(), &scheduler.Job{Args: []byte("not json")})
	if err == nil {
		t.Fatal("expected malformed args to be rejected")
	}
}

func TestRegisterAllWiresEveryType(t *testing.T) {
	sched := scheduler.New(scheduler.Options{GlobalJobLimit: 1000})
	if err := RegisterAll(sched); err != nil {
		t.Fatalf("register all: %v", err)
	}
	for _, typ := range []string{
		"double_fetch_probe", "quorum_check", "telemetry_emit",
		"whitelist_refresh", "token_examiner_sync", "alive_ping",
	} {
		if _, err := sched.RegisterJob(scheduler.JobRequest{Type: typ}); err != nil {
			t.Fatalf("type %s not registered: %v", typ, err)
		}
	}
}
