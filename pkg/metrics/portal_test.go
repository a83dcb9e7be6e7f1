package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPortalMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPortal(reg)
	m.ObserveLogin(LoginSuccess)
	m.ObserveLogin(LoginInvalid)
	m.ObserveLogin(LoginInvalid)
	m.IncSetupCompleted()
	m.ObserveUserIDAttempts(3)
	m.ObserveRequest("ctr", 302)
	m.ObserveRequest("", 500)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "portal_login_attempts_total", "outcome", LoginInvalid); err != nil {
		t.Fatalf("fetch invalid logins: %v", err)
	} else if got != 2 {
		t.Fatalf("expected invalid=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "portal_setup_completed_total", "", ""); err != nil {
		t.Fatalf("fetch setup: %v", err)
	} else if got != 1 {
		t.Fatalf("expected setup=1, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "portal_userid_generation_attempts", "", ""); err != nil {
		t.Fatalf("fetch attempts: %v", err)
	} else if got != 3 {
		t.Fatalf("expected attempts sum 3, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "portal_requests_total", "tenant", "ctr"); err != nil {
		t.Fatalf("fetch requests: %v", err)
	} else if got != 1 {
		t.Fatalf("expected ctr requests=1, got %f", got)
	}
	if _, err := fetchCounterValue(mfs, "portal_requests_total", "tenant", "unknown"); err != nil {
		t.Fatalf("expected blank tenant to be labelled unknown: %v", err)
	}
}

func TestNilPortalIsNoop(t *testing.T) {
	var m *Portal
	m.ObserveLogin(LoginSuccess)
	m.IncSetupCompleted()
	m.ObserveUserIDAttempts(1)
	m.ObserveRequest("portal", 200)

	unregistered := NewPortal(nil)
	unregistered.ObserveLogin(LoginError)
}

func TestPortalJobMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPortal(reg)
	m.ObserveJobDuration("memstore_sweep", 250*time.Millisecond)
	m.IncJobSuccess("memstore_sweep")
	m.IncJobSuccess("memstore_sweep")
	m.IncJobFailure("memstore_sweep")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "portal_housekeeping_job_runs_total", "result", "success"); err != nil {
		t.Fatalf("fetch job runs: %v", err)
	} else if got != 2 {
		t.Fatalf("expected success=2, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "portal_housekeeping_job_runs_total", "result", "failure"); err != nil {
		t.Fatalf("fetch job failures: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}
	if got, err := fetchHistogramSum(mfs, "portal_housekeeping_job_duration_seconds", "job", "memstore_sweep"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got != 0.25 {
		t.Fatalf("expected duration sum 0.25, got %f", got)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if label == "" || matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if label == "" || matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
