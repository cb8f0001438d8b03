package ranking

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics() returned nil")
	}

	collectors := m.Collectors()
	if len(collectors) != 3 {
		t.Errorf("expected 3 collectors, got %d", len(collectors))
	}
}

func TestMetrics_Register(t *testing.T) {
	t.Run("successful registration", func(t *testing.T) {
		m := NewMetrics()
		reg := prometheus.NewRegistry()

		if err := m.Register(reg); err != nil {
			t.Errorf("Register() returned error: %v", err)
		}

		m.ObserveRank(2*time.Millisecond, 120, false)
		m.ObserveRank(time.Millisecond, 40, true)

		families, err := reg.Gather()
		if err != nil {
			t.Errorf("Gather() returned error: %v", err)
		}

		expectedNames := map[string]bool{
			MetricRankCallsTotal:      false,
			MetricRankDurationSeconds: false,
			MetricRankedItemsTotal:    false,
		}
		for _, family := range families {
			if _, ok := expectedNames[family.GetName()]; ok {
				expectedNames[family.GetName()] = true
			}
		}
		for name, found := range expectedNames {
			if !found {
				t.Errorf("metric %s not found in gathered metrics", name)
			}
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		m1 := NewMetrics()
		m2 := NewMetrics()
		reg := prometheus.NewRegistry()

		if err := m1.Register(reg); err != nil {
			t.Fatalf("first Register() returned error: %v", err)
		}
		if err := m2.Register(reg); err == nil {
			t.Error("expected duplicate registration to fail")
		}
	})
}

func TestMetrics_ObserveRank_Paths(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatal(err)
	}

	m.ObserveRank(time.Millisecond, 100, false)
	m.ObserveRank(time.Millisecond, 100, false)
	m.ObserveRank(time.Millisecond, 25, true)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}

	counts := map[string]float64{}
	for _, family := range families {
		if family.GetName() != MetricRankCallsTotal {
			continue
		}
		for _, metric := range family.GetMetric() {
			counts[labelValue(metric, "path")] = metric.GetCounter().GetValue()
		}
	}

	if counts[PathPersonalized] != 2 {
		t.Errorf("expected 2 personalized calls, got %f", counts[PathPersonalized])
	}
	if counts[PathColdStart] != 1 {
		t.Errorf("expected 1 cold-start call, got %f", counts[PathColdStart])
	}
}

// labelValue extracts a label value from a metric sample.
func labelValue(metric *dto.Metric, name string) string {
	for _, label := range metric.GetLabel() {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}
