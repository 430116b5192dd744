package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m.Mutation("add_xp")
	m.Mutation("add_xp")
	m.Notification("level_up")
	m.SideEffectFailure("sound")
	m.PersistFailure("save")

	if got := testutil.ToFloat64(m.Mutations.WithLabelValues("add_xp")); got != 2 {
		t.Fatalf("mutations add_xp = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Notifications.WithLabelValues("level_up")); got != 1 {
		t.Fatalf("notifications level_up = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SideEffectFailures.WithLabelValues("sound")); got != 1 {
		t.Fatalf("side effect failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.PersistFailures.WithLabelValues("save")); got != 1 {
		t.Fatalf("persist failures = %v, want 1", got)
	}
}

func TestDoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatal("second New on same registry: expected error")
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Mutation("x")
	m.Notification("x")
	m.SideEffectFailure("x")
	m.PersistFailure("x")
}
