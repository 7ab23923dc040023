// Package metrics provides Prometheus metrics collection for the loan
// prediction service. It defines the prediction, model and request metrics
// exposed via the Prometheus metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Prediction metrics
	Predictions        *prometheus.CounterVec   // Completed predictions by decision and policy
	PredictionFailures *prometheus.CounterVec   // Failed predictions by reason
	InvalidRequests    *prometheus.CounterVec   // Rejected applicant input by field
	ScoringLatency     prometheus.Histogram     // Duration of one dual-model scoring
	ModelProbability   *prometheus.HistogramVec // Distribution of per-model approval probabilities

	// Model metrics
	ModelLoaded *prometheus.GaugeVec // 1 when the model slot loaded, 0 otherwise
	ModelAge    *prometheus.GaugeVec // Age of the model artifact at load time

	// Live feed metrics
	FeedClients prometheus.Gauge // Connected decision feed clients
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry (useful for testing).
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		Predictions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_predictions_total",
			Help: "Total number of loan predictions made",
		}, []string{"decision", "policy"}),
		PredictionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_prediction_failures_total",
			Help: "Total number of loan predictions that could not be completed",
		}, []string{"reason"}),
		InvalidRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "loan_invalid_requests_total",
			Help: "Total number of requests rejected for invalid applicant input",
		}, []string{"field"}),
		ScoringLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "loan_scoring_latency_seconds",
			Help:    "Dual-model scoring latency in seconds",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		ModelProbability: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "loan_model_probability",
			Help:    "Distribution of approval probabilities per model",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}, []string{"model"}),
		ModelLoaded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "loan_model_loaded",
			Help: "Whether the model slot loaded successfully (1) or not (0)",
		}, []string{"model"}),
		ModelAge: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "loan_model_age_seconds",
			Help: "Age of the model artifact in seconds when it was loaded",
		}, []string{"model"}),
		FeedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "loan_decision_feed_clients",
			Help: "Number of connected decision feed clients",
		}),
	}
}
