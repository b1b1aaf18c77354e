package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPoolCollector_Describe_EmitsAllDescriptors(t *testing.T) {
	collector := NewPoolCollector("store", nil)

	ch := make(chan *prometheus.Desc, 20)
	collector.Describe(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	if count != 8 {
		t.Errorf("descriptor count: got %d, want 8", count)
	}
}

func TestPoolCollector_Collect_NilPool(t *testing.T) {
	collector := NewPoolCollector("store", nil)

	ch := make(chan prometheus.Metric, 20)
	collector.Collect(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	if count != 0 {
		t.Errorf("metric count with nil pool: got %d, want 0", count)
	}
}

func TestPoolCollector_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewPoolCollector("store", nil)); err != nil {
		t.Fatalf("register: %v", err)
	}
}
