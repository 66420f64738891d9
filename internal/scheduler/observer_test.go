package scheduler

import "testing"

func TestObserverPublishAndCount(t *testing.T) {
	o := NewObserver()
	var got []Event
	o.AddObserver(EventJobStarted, func(e Event) { got = append(got, e) })

	o.Publish(Event{Name: EventJobStarted, Job: &Job{ID: 1}})
	o.Publish(Event{Name: EventJobStarted, Job: &Job{ID: 2}})
	o.Publish(Event{Name: EventJobSucceeded, Job: &Job{ID: 1}})

	if len(got) != 2 {
		t.Fatalf("expected 2 jobStarted deliveries, got %d", len(got))
	}
	stats := o.Describe(0, 0)
	if stats.JobStarted != 2 || stats.JobSucceeded != 1 {
		t.Fatalf("unexpected counters: %+v", stats)
	}
}

func TestObserverUnsubscribe(t *testing.T) {
	o := NewObserver()
	calls := 0
	unsubscribe := o.AddObserver(EventJobFailed, func(Event) { calls++ })

	o.Publish(Event{Name: EventJobFailed})
	unsubscribe()
	o.Publish(Event{Name: EventJobFailed})

	if calls != 1 {
		t.Fatalf("expected listener to fire once before unsubscribing, got %d", calls)
	}
	if stats := o.Describe(0, 0); stats.JobFailed != 2 {
		t.Fatalf("counters must keep counting after unsubscribe, got %d", stats.JobFailed)
	}
}

func TestObserverMultipleListenersSameEvent(t *testing.T) {
	o := NewObserver()
	a, b := 0, 0
	o.AddObserver(EventJobExpired, func(Event) { a++ })
	o.AddObserver(EventJobExpired, func(Event) { b++ })

	o.Publish(Event{Name: EventJobExpired})
	if a != 1 || b != 1 {
		t.Fatalf("expected both listeners to fire, got a=%d b=%d", a, b)
	}
}
