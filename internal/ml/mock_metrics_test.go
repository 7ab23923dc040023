package ml

import "sync"

// MockMetrics implements MetricsInterface for testing
type MockMetrics struct {
	mu            sync.Mutex
	predictions   map[string]int
	failures      map[string]int
	latencies     []float64
	probabilities map[string][]float64
	loaded        map[string]bool
	modelAge      map[string]float64
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		predictions:   make(map[string]int),
		failures:      make(map[string]int),
		probabilities: make(map[string][]float64),
		loaded:        make(map[string]bool),
		modelAge:      make(map[string]float64),
	}
}

func (m *MockMetrics) PredictionsInc(decision, policy string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions[decision+"/"+policy]++
}

func (m *MockMetrics) FailuresInc(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[reason]++
}

func (m *MockMetrics) LatencyObserve(v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latencies = append(m.latencies, v)
}

func (m *MockMetrics) ProbabilityObserve(model string, p float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probabilities[model] = append(m.probabilities[model], p)
}

func (m *MockMetrics) ModelLoadedSet(model string, loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded[model] = loaded
}

func (m *MockMetrics) ModelAgeSet(model string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelAge[model] = seconds
}

func (m *MockMetrics) totalPredictions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, v := range m.predictions {
		n += v
	}
	return n
}
