package scheduler

import "testing"

func TestSnapshotRoundTrip(t *testing.T) {
	q := NewTypeQueue()
	q.Add(&Job{PersistentID: newUUID(), ReadyAt: 100, ExpiresAt: 10000})
	queues := map[string]*TypeQueue{"fetch": q}
	retries := NewRetryRegistry()
	retries.Push("fetch", &Job{PersistentID: newUUID()}, 2)

	snap := BuildSnapshot(queues, retries, Stats{JobRegistered: 1}, 12345)
	data, err := MarshalSnapshot(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.LastClock != 12345 {
		t.Fatalf("expected LastClock=12345, got %d", got.LastClock)
	}
	if len(got.Jobs["fetch"]) != 1 {
		t.Fatalf("expected 1 job round-tripped, got %d", len(got.Jobs["fetch"]))
	}
	if len(got.Retries["fetch"]) != 1 {
		t.Fatalf("expected 1 retry entry round-tripped, got %d", len(got.Retries["fetch"]))
	}
}

func TestUnmarshalSnapshotRejectsVersionMismatch(t *testing.T) {
	data := []byte(`{"version":999}`)
	if _, err := UnmarshalSnapshot(data); err == nil {
		t.Fatal("expected version mismatch to be rejected")
	}
}

func TestUnmarshalSnapshotRejectsCorruptJSON(t *testing.T) {
	if _, err := UnmarshalSnapshot([]byte("not json")); err == nil {
		t.Fatal("expected malformed JSON to be rejected")
	}
}
