package ml

import (
	"errors"
	"fmt"
	"math"
	"time"

	"loan-predictor/internal/features"

	"github.com/rs/zerolog/log"
)

// ApprovalThreshold is exclusive: a deciding score of exactly 0.5 is rejected.
const ApprovalThreshold = 0.5

// Decision is the final approval label.
type Decision string

const (
	Approved Decision = "APPROVED"
	Rejected Decision = "REJECTED"
)

// Decide applies the approval threshold to score.
func Decide(score float64) Decision {
	if score > ApprovalThreshold {
		return Approved
	}
	return Rejected
}

// Policy selects which score drives the decision.
type Policy string

const (
	// PolicyAveraged decides on the mean of both model probabilities.
	PolicyAveraged Policy = "averaged"
	// PolicyLogistic decides on the logistic probability alone; the tree
	// probability is still computed and reported.
	PolicyLogistic Policy = "logistic"
)

// ParsePolicy maps a configuration value to a Policy. Empty selects
// PolicyAveraged.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyAveraged:
		return PolicyAveraged, nil
	case PolicyLogistic:
		return PolicyLogistic, nil
	}
	return "", fmt.Errorf("unknown decision policy %q (want %q or %q)", s, PolicyAveraged, PolicyLogistic)
}

// PredictionResult is the outcome of scoring one feature row.
type PredictionResult struct {
	LRProbability float64 `json:"lr_probability"`
	DTProbability float64 `json:"dt_probability"`
	// CombinedScore is set only under PolicyAveraged.
	CombinedScore *float64 `json:"combined_score,omitempty"`
	Decision      Decision `json:"decision"`
	Policy        Policy   `json:"policy"`
}

// DecisionScore is the score the decision was taken on.
func (r PredictionResult) DecisionScore() float64 {
	if r.CombinedScore != nil {
		return *r.CombinedScore
	}
	return r.LRProbability
}

// Combine builds the result for two model probabilities under policy.
func Combine(lr, dt float64, policy Policy) PredictionResult {
	res := PredictionResult{LRProbability: lr, DTProbability: dt, Policy: policy}
	if policy == PolicyLogistic {
		res.Decision = Decide(lr)
		return res
	}
	res.Policy = PolicyAveraged
	combined := (lr + dt) / 2
	res.CombinedScore = &combined
	res.Decision = Decide(combined)
	return res
}

// ErrModelUnavailable is matched by every ModelUnavailableError.
var ErrModelUnavailable = errors.New("model unavailable")

var errNotLoaded = errors.New("model not loaded")

// ModelUnavailableError reports a model that is missing or failed while
// scoring. Err carries the internal cause for logs; it is not meant for
// end users.
type ModelUnavailableError struct {
	Model string
	Err   error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable: %s: %v", e.Model, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

func (e *ModelUnavailableError) Is(target error) bool {
	return target == ErrModelUnavailable
}

// Scorer runs both classifiers over a feature row and combines them.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	models  *Models
	policy  Policy
	metrics MetricsInterface
}

// NewScorer creates a scorer over models. An unknown policy falls back to
// PolicyAveraged.
func NewScorer(models *Models, policy Policy, metrics MetricsInterface) *Scorer {
	if policy != PolicyLogistic {
		policy = PolicyAveraged
	}
	return &Scorer{models: models, policy: policy, metrics: metrics}
}

// Policy returns the decision policy in effect.
func (s *Scorer) Policy() Policy { return s.policy }

// Models returns the shared model set.
func (s *Scorer) Models() *Models { return s.models }

// Available reports whether both models are loaded.
func (s *Scorer) Available() bool {
	return s != nil && s.models.Ready()
}

// Score evaluates both models on row. If either model is missing, neither is
// called and the error matches ErrModelUnavailable. A model that errors or
// returns a value outside [0, 1] is reported the same way.
func (s *Scorer) Score(row features.Row) (PredictionResult, error) {
	start := time.Now()
	if s != nil && s.metrics != nil {
		defer func() {
			s.metrics.LatencyObserve(time.Since(start).Seconds())
		}()
	}

	if s == nil || s.models == nil || s.models.Logistic == nil {
		return PredictionResult{}, s.unavailable(&ModelUnavailableError{Model: ModelLogistic, Err: errNotLoaded})
	}
	if s.models.Tree == nil {
		return PredictionResult{}, s.unavailable(&ModelUnavailableError{Model: ModelTree, Err: errNotLoaded})
	}

	lr, err := s.predict(ModelLogistic, s.models.Logistic, row)
	if err != nil {
		return PredictionResult{}, s.unavailable(err)
	}
	dt, err := s.predict(ModelTree, s.models.Tree, row)
	if err != nil {
		return PredictionResult{}, s.unavailable(err)
	}

	res := Combine(lr, dt, s.policy)

	if s.metrics != nil {
		s.metrics.PredictionsInc(string(res.Decision), string(res.Policy))
	}
	log.Debug().
		Float64("lr_probability", lr).
		Float64("dt_probability", dt).
		Float64("decision_score", res.DecisionScore()).
		Str("decision", string(res.Decision)).
		Str("policy", string(res.Policy)).
		Msg("Prediction successful")

	return res, nil
}

// ScoreApplicant assembles rec and scores the resulting row.
func (s *Scorer) ScoreApplicant(rec features.ApplicantRecord) (features.Row, PredictionResult, error) {
	row, err := features.Assemble(rec)
	if err != nil {
		return features.Row{}, PredictionResult{}, err
	}
	res, err := s.Score(row)
	if err != nil {
		return row, PredictionResult{}, err
	}
	return row, res, nil
}

func (s *Scorer) predict(slot string, clf Classifier, row features.Row) (float64, error) {
	p, err := clf.PredictProbability(row)
	if err != nil {
		return 0, &ModelUnavailableError{Model: slot, Err: err}
	}
	if math.IsNaN(p) || p < 0 || p > 1 {
		return 0, &ModelUnavailableError{Model: slot, Err: fmt.Errorf("invalid probability %v", p)}
	}
	if s.metrics != nil {
		s.metrics.ProbabilityObserve(slot, p)
	}
	return p, nil
}

func (s *Scorer) unavailable(err error) error {
	if s != nil && s.metrics != nil {
		s.metrics.FailuresInc("model_unavailable")
	}
	return err
}
