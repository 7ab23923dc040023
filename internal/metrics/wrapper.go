package metrics

// MetricsWrapper adapts Metrics to the narrow interfaces used by the scorer
// and the web layer.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) PredictionsInc(decision, policy string) {
	w.m.Predictions.WithLabelValues(decision, policy).Inc()
}

func (w *MetricsWrapper) FailuresInc(reason string) {
	w.m.PredictionFailures.WithLabelValues(reason).Inc()
}

func (w *MetricsWrapper) LatencyObserve(seconds float64) {
	w.m.ScoringLatency.Observe(seconds)
}

func (w *MetricsWrapper) ProbabilityObserve(model string, p float64) {
	w.m.ModelProbability.WithLabelValues(model).Observe(p)
}

func (w *MetricsWrapper) ModelLoadedSet(model string, loaded bool) {
	v := 0.0
	if loaded {
		v = 1
	}
	w.m.ModelLoaded.WithLabelValues(model).Set(v)
}

func (w *MetricsWrapper) ModelAgeSet(model string, seconds float64) {
	w.m.ModelAge.WithLabelValues(model).Set(seconds)
}

// InvalidRequestsInc counts a rejected request. An empty field is reported as
// "unknown".
func (w *MetricsWrapper) InvalidRequestsInc(field string) {
	if field == "" {
		field = "unknown"
	}
	w.m.InvalidRequests.WithLabelValues(field).Inc()
}

func (w *MetricsWrapper) FeedClientsSet(n int) {
	w.m.FeedClients.Set(float64(n))
}
