// Package ml loads the pre-trained loan approval models and scores assembled
// feature rows against them.
//
// Two classifiers are served: a logistic regression and a decision tree. Both
// are deserialized once at startup from declarative artifacts (preprocessing
// parameters plus fitted weights) and are read-only afterwards, so a single
// Models value is shared by every request without locking.
package ml

import "loan-predictor/internal/features"

// Classifier is a fitted binary classifier over the loan feature row.
type Classifier interface {
	// Name identifies the classifier in logs and metrics.
	Name() string

	// PredictProbability returns the probability of the positive ("approved")
	// class for row, or an error if the row cannot be scored.
	PredictProbability(row features.Row) (float64, error)
}

// MetricsInterface defines metrics methods needed by the loader and scorer.
type MetricsInterface interface {
	PredictionsInc(decision, policy string)
	FailuresInc(reason string)
	LatencyObserve(seconds float64)
	ProbabilityObserve(model string, p float64)
	ModelLoadedSet(model string, loaded bool)
	ModelAgeSet(model string, seconds float64)
}
