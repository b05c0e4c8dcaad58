package metrics

import (
	"testing"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}
}

func gatherValue(t *testing.T, reg *Registry, name string) (float64, bool) {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				total += m.GetCounter().GetValue()
			}
			if m.GetGauge() != nil {
				total += m.GetGauge().GetValue()
			}
		}
		return total, true
	}
	return 0, false
}

func TestRegistry_RecordRequest(t *testing.T) {
	reg := NewRegistry()

	reg.RecordRequest("GET", "/api/runs", 200, 0.05)

	if v, ok := gatherValue(t, reg, "http_requests_total"); !ok || v != 1 {
		t.Errorf("expected http_requests_total 1, got %v (found=%v)", v, ok)
	}
}

func TestRegistry_RecordRequest_StatusCodes(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		if got := statusToString(tt.status); got != tt.expected {
			t.Errorf("statusToString(%d) = %s, want %s", tt.status, got, tt.expected)
		}
	}
}

func TestRegistry_InFlight(t *testing.T) {
	reg := NewRegistry()

	reg.InFlightInc()
	reg.InFlightInc()
	reg.InFlightDec()

	if v, ok := gatherValue(t, reg, "http_requests_in_flight"); !ok || v != 1 {
		t.Errorf("expected in-flight gauge 1, got %v (found=%v)", v, ok)
	}
}

func TestRegistry_BusinessMetrics(t *testing.T) {
	reg := NewRegistry()

	reg.RecordOrder("mean_reversion", "BUY")
	reg.RecordOrder("mean_reversion", "SELL")
	reg.RecordRejection("insufficient_cash")
	reg.RecordBacktest("bab", "success", 2.5)
	reg.RecordFetch("yahoo", "success")
	reg.RecordFetch("yahoo", "failed")
	reg.SetJobsActive(3)

	checks := []struct {
		name string
		want float64
	}{
		{"pharos_orders_generated_total", 2},
		{"pharos_orders_rejected_total", 1},
		{"pharos_backtests_total", 1},
		{"pharos_symbols_fetched_total", 2},
		{"pharos_jobs_active", 3},
	}
	for _, c := range checks {
		if v, ok := gatherValue(t, reg, c.name); !ok || v != c.want {
			t.Errorf("%s = %v (found=%v), want %v", c.name, v, ok, c.want)
		}
	}
}
