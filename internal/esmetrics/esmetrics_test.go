package esmetrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCollectorObserveRequest(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry, "escore_test")

	c.ObserveRequest("success", 10*time.Millisecond)
	c.ObserveRequest("success", 20*time.Millisecond)
	c.ObserveRequest("BadResponse", 5*time.Millisecond)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	counts := counterValuesByLabel(families, "escore_test_requests_total", "outcome")
	if counts["success"] != 2 {
		t.Fatalf("expected 2 success observations, got %v", counts["success"])
	}
	if counts["BadResponse"] != 1 {
		t.Fatalf("expected 1 BadResponse observation, got %v", counts["BadResponse"])
	}
}

func TestCollectorObserveSniffAndPing(t *testing.T) {
	registry := prometheus.NewRegistry()
	c := NewCollector(registry, "escore_test")

	c.ObserveSniff("success", 15*time.Millisecond)
	c.ObservePing("failure")
	c.ObservePing("failure")

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	sniffCounts := counterValuesByLabel(families, "escore_test_sniff_total", "outcome")
	if sniffCounts["success"] != 1 {
		t.Fatalf("expected 1 sniff success, got %v", sniffCounts["success"])
	}

	pingCounts := counterValuesByLabel(families, "escore_test_ping_total", "outcome")
	if pingCounts["failure"] != 2 {
		t.Fatalf("expected 2 ping failures, got %v", pingCounts["failure"])
	}
}

func TestNodeGaugesTransitions(t *testing.T) {
	registry := prometheus.NewRegistry()
	g := NewNodeGauges(registry, "escore_test")

	g.SetAlive(3)
	g.RecordDead()
	g.RecordDead()
	g.RecordRevived()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	for _, mf := range families {
		if mf.GetName() == "escore_test_nodes_alive" {
			if got := mf.Metric[0].GetGauge().GetValue(); got != 3 {
				t.Fatalf("expected nodes_alive=3, got %v", got)
			}
		}
	}

	counts := counterValuesByLabel(families, "escore_test_node_state_transitions_total", "transition")
	if counts["dead"] != 2 {
		t.Fatalf("expected 2 dead transitions, got %v", counts["dead"])
	}
	if counts["revived"] != 1 {
		t.Fatalf("expected 1 revived transition, got %v", counts["revived"])
	}
}

func counterValuesByLabel(families []*dto.MetricFamily, name, label string) map[string]float64 {
	out := map[string]float64{}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.Metric {
			for _, lp := range m.Label {
				if lp.GetName() == label {
					out[lp.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	return out
}
