package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/whotracksme/job-scheduler/internal/scheduler"
)

func TestAttachCountsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	obs := scheduler.NewObserver()
	m.Attach(obs)

	obs.Publish(scheduler.Event{Name: scheduler.EventJobSucceeded})
	obs.Publish(scheduler.Event{Name: scheduler.EventJobSucceeded})
	obs.Publish(scheduler.Event{Name: scheduler.EventJobFailed})

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := counterValue(t, families, "job_scheduler_events_total", "event", "jobSucceeded")
	if got != 2 {
		t.Fatalf("expected jobSucceeded counter=2, got %v", got)
	}
}

func TestSetQueueAndRetryLength(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.SetQueueLength("fetch", 7)
	m.SetRetryLength(3)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	got := gaugeValue(t, families, "job_scheduler_queue_length", "type", "fetch")
	if got != 7 {
		t.Fatalf("expected queue_length=7, got %v", got)
	}
}

func counterValue(t *testing.T, families []*dto.MetricFamily, name, labelKey, labelVal string) float64 {
	t.Helper()
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, mf := range f.Metric {
			for _, l := range mf.Label {
				if l.GetName() == labelKey && l.GetValue() == labelVal {
					return mf.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%s} not found", name, labelKey, labelVal)
	return 0
}

func gaugeValue(t *testing.T, families []*dto.MetricFamily, name, labelKey, labelVal string) float64 {
	t.Helper()
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, mf := range f.Metric {
			for _, l := range mf.Label {
				if l.GetName() == labelKey && l.GetValue() == labelVal {
					return mf.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%s} not found", name, labelKey, labelVal)
	return 0
}
