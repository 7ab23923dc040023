package metrics

import (
	"testing"

	"loan-predictor/internal/ml"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

var _ ml.MetricsInterface = (*MetricsWrapper)(nil)

func newTestWrapper(t testing.TB) (*Metrics, *MetricsWrapper, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	metrics := NewWithRegistry(registry)
	return metrics, NewWrapper(metrics), registry
}

func TestNewWrapper(t *testing.T) {
	metrics, wrapper, _ := newTestWrapper(t)

	if wrapper == nil {
		t.Fatal("NewWrapper returned nil")
	}
	if wrapper.m != metrics {
		t.Error("Wrapper does not contain correct metrics instance")
	}
}

func TestMetricsWrapper_Predictions(t *testing.T) {
	metrics, wrapper, _ := newTestWrapper(t)

	wrapper.PredictionsInc("APPROVED", "averaged")
	wrapper.PredictionsInc("APPROVED", "averaged")
	wrapper.PredictionsInc("REJECTED", "logistic")

	if v := testutil.ToFloat64(metrics.Predictions.WithLabelValues("APPROVED", "averaged")); v != 2 {
		t.Errorf("Expected 2 approved predictions, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.Predictions.WithLabelValues("REJECTED", "logistic")); v != 1 {
		t.Errorf("Expected 1 rejected prediction, got %f", v)
	}
	if n := testutil.CollectAndCount(metrics.Predictions); n != 2 {
		t.Errorf("Expected 2 label combinations, got %d", n)
	}
}

func TestMetricsWrapper_Failures(t *testing.T) {
	metrics, wrapper, _ := newTestWrapper(t)

	wrapper.FailuresInc("model_unavailable")
	wrapper.InvalidRequestsInc("LoanAmount")
	wrapper.InvalidRequestsInc("")

	if v := testutil.ToFloat64(metrics.PredictionFailures.WithLabelValues("model_unavailable")); v != 1 {
		t.Errorf("Expected 1 failure, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.InvalidRequests.WithLabelValues("LoanAmount")); v != 1 {
		t.Errorf("Expected 1 invalid LoanAmount request, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.InvalidRequests.WithLabelValues("unknown")); v != 1 {
		t.Errorf("Expected empty field to be counted as unknown, got %f", v)
	}
}

func TestMetricsWrapper_ModelGauges(t *testing.T) {
	metrics, wrapper, _ := newTestWrapper(t)

	wrapper.ModelLoadedSet("logistic", true)
	wrapper.ModelLoadedSet("tree", false)
	wrapper.ModelAgeSet("logistic", 3600)

	if v := testutil.ToFloat64(metrics.ModelLoaded.WithLabelValues("logistic")); v != 1 {
		t.Errorf("Expected logistic loaded gauge 1, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.ModelLoaded.WithLabelValues("tree")); v != 0 {
		t.Errorf("Expected tree loaded gauge 0, got %f", v)
	}
	if v := testutil.ToFloat64(metrics.ModelAge.WithLabelValues("logistic")); v != 3600 {
		t.Errorf("Expected model age 3600, got %f", v)
	}

	wrapper.FeedClientsSet(3)
	if v := testutil.ToFloat64(metrics.FeedClients); v != 3 {
		t.Errorf("Expected 3 feed clients, got %f", v)
	}
}

func TestMetricsWrapper_Histograms(t *testing.T) {
	_, wrapper, registry := newTestWrapper(t)

	testValues := []float64{0.0001, 0.0005, 0.002}
	for _, value := range testValues {
		wrapper.LatencyObserve(value)
	}
	wrapper.ProbabilityObserve("logistic", 0.81)
	wrapper.ProbabilityObserve("tree", 0.7)

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	var latency *dto.Histogram
	for _, mf := range families {
		if mf.GetName() == "loan_scoring_latency_seconds" {
			latency = mf.GetMetric()[0].GetHistogram()
		}
	}
	if latency == nil {
		t.Fatal("loan_scoring_latency_seconds not gathered")
	}
	if latency.GetSampleCount() != uint64(len(testValues)) {
		t.Errorf("Expected %d latency observations, got %d", len(testValues), latency.GetSampleCount())
	}
	for _, b := range latency.GetBucket() {
		if b.GetUpperBound() == 0.0005 && b.GetCumulativeCount() != 2 {
			t.Errorf("Expected 2 observations at or below 0.5ms, got %d", b.GetCumulativeCount())
		}
	}

	if n := testutil.CollectAndCount(wrapper.m.ModelProbability); n != 2 {
		t.Errorf("Expected 2 model probability series, got %d", n)
	}
}

func TestMetricsWrapper_ConcurrentAccess(t *testing.T) {
	metrics, wrapper, _ := newTestWrapper(t)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				wrapper.PredictionsInc("APPROVED", "averaged")
				wrapper.LatencyObserve(0.001)
				wrapper.FailuresInc("model_unavailable")
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}

	expected := 1000.0
	if v := testutil.ToFloat64(metrics.Predictions.WithLabelValues("APPROVED", "averaged")); v != expected {
		t.Errorf("Expected %f predictions after concurrent access, got %f", expected, v)
	}
	if v := testutil.ToFloat64(metrics.PredictionFailures.WithLabelValues("model_unavailable")); v != expected {
		t.Errorf("Expected %f failures after concurrent access, got %f", expected, v)
	}
}

func TestNewWithRegistry_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewWithRegistry(registry)

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic when registering metrics twice")
		}
	}()
	NewWithRegistry(registry)
}

func BenchmarkMetricsWrapper_PredictionsInc(b *testing.B) {
	_, wrapper, _ := newTestWrapper(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wrapper.PredictionsInc("APPROVED", "averaged")
	}
}

func BenchmarkMetricsWrapper_LatencyObserve(b *testing.B) {
	_, wrapper, _ := newTestWrapper(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		wrapper.LatencyObserve(0.001)
	}
}
