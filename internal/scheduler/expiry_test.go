package scheduler

import (
	"testing"
	"time"
)

func TestSweepExpiredDropsExpiredJobs(t *testing.T) {
	q := NewTypeQueue()
	q.Add(&Job{ID: 1, ReadyAt: 0, ExpiresAt: 100})
	q.Add(&Job{ID: 2, ReadyAt: 0, ExpiresAt: 10000})
	queues := map[string]*TypeQueue{"fetch": q}

	report := SweepExpired(queues, 5000)
	if report.ExpiredCount != 1 {
		t.Fatalf("expected 1 expired, got %d", report.ExpiredCount)
	}
	if q.Len() != 1 || q.All()[0].ID != 2 {
		t.Fatalf("expected only id=2 to remain, got %+v", q.All())
	}
}

func TestSweepExpiredRepairsCorruptReadyAt(t *testing.T) {
	horizonMs := int64(maxCorruptionHorizon / time.Millisecond)
	q := NewTypeQueue()
	q.Add(&Job{ID: 1, ReadyAt: horizonMs * 2, ExpiresAt: horizonMs * 3})
	queues := map[string]*TypeQueue{"fetch": q}

	report := SweepExpired(queues, 0)
	if report.RepairedCount != 1 {
		t.Fatalf("expected 1 repaired, got %d", report.RepairedCount)
	}
	if q.All()[0].ReadyAt != 0 {
		t.Fatalf("expected readyAt repaired to now=0, got %d", q.All()[0].ReadyAt)
	}
}

func TestDropOrphanedQueues(t *testing.T) {
	empty := NewTypeQueue()
	nonEmpty := NewTypeQueue()
	nonEmpty.Add(&Job{ID: 1, ExpiresAt: 1})
	queues := map[string]*TypeQueue{
		"orphan_empty":    empty,
		"orphan_nonempty": nonEmpty,
		"still_registered": NewTypeQueue(),
	}
	registered := map[string]struct{}{"still_registered": {}}

	dropped := DropOrphanedQueues(queues, registered)
	if len(dropped) != 1 || dropped[0] != "orphan_empty" {
		t.Fatalf("expected only orphan_empty dropped, got %v", dropped)
	}
	if _, ok := queues["orphan_nonempty"]; !ok {
		t.Fatal("orphan queue with pending jobs must not be dropped")
	}
	if _, ok := queues["still_registered"]; !ok {
		t.Fatal("registered queue must not be dropped")
	}
}

func TestClockJumpDetector(t *testing.T) {
	d := NewClockJumpDetector(time.Hour)
	if d.Observe(0) {
		t.Fatal("first observation must never report a jump")
	}
	if d.Observe(1000) {
		t.Fatal("small forward delta must not report a jump")
	}
	jumpMs := int64(2 * time.Hour / time.Millisecond)
	if !d.Observe(1000 + jumpMs) {
		t.Fatal("expected jump beyond threshold to be reported")
	}
	if d.Observe(1000 + jumpMs - 10) {
		t.Fatal("clock moving backwards must never report a jump")
	}
}
