package ml

import (
	"fmt"
	"math"

	"loan-predictor/internal/features"
)

// LogisticParams are the fitted weights of a logistic regression over the
// preprocessed vector.
type LogisticParams struct {
	Coefficients []float64 `json:"coefficients" yaml:"coefficients"`
	Intercept    float64   `json:"intercept" yaml:"intercept"`
}

// LogisticModel scores P(approved) = sigmoid(intercept + w·x).
type LogisticModel struct {
	name   string
	pre    Preprocessor
	params LogisticParams
}

// NewLogisticModel checks the weights against the preprocessor width.
func NewLogisticModel(name string, pre Preprocessor, params LogisticParams) (*LogisticModel, error) {
	if err := pre.Validate(); err != nil {
		return nil, fmt.Errorf("preprocessor: %w", err)
	}
	if len(params.Coefficients) != pre.Width() {
		return nil, fmt.Errorf("expected %d coefficients, got %d", pre.Width(), len(params.Coefficients))
	}
	for i, c := range params.Coefficients {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, fmt.Errorf("coefficient %d is not finite", i)
		}
	}
	if math.IsNaN(params.Intercept) || math.IsInf(params.Intercept, 0) {
		return nil, fmt.Errorf("intercept is not finite")
	}
	return &LogisticModel{name: name, pre: pre, params: params}, nil
}

func (m *LogisticModel) Name() string { return m.name }

func (m *LogisticModel) PredictProbability(row features.Row) (float64, error) {
	x, err := m.pre.Transform(row)
	if err != nil {
		return 0, err
	}
	z := m.params.Intercept
	for i, v := range x {
		z += m.params.Coefficients[i] * v
	}
	if math.IsNaN(z) {
		return 0, fmt.Errorf("decision function is NaN")
	}
	return sigmoid(z), nil
}

// sigmoid converts a log-odds score to a probability without overflowing
// for large negative inputs.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1.0 + e)
}
