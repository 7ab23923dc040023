// Package batch scores a file of loan applications offline with the same
// scorer the server uses and summarizes the decisions.
package batch

import (
	"errors"
	"time"

	"loan-predictor/internal/features"
	"loan-predictor/internal/ml"

	"github.com/rs/zerolog/log"
)

// Outcome is the result for one application.
type Outcome struct {
	Line    int                  `json:"line"`
	LoanID  string               `json:"loan_id,omitempty"`
	Result  *ml.PredictionResult `json:"result,omitempty"`
	Field   string               `json:"field,omitempty"`
	Error   string               `json:"error,omitempty"`
	Label   *bool                `json:"label,omitempty"`
	Matches *bool                `json:"matches,omitempty"`
}

// Results summarizes a run.
type Results struct {
	Policy    ml.Policy `json:"policy"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Total     int       `json:"total"`
	Scored    int       `json:"scored"`
	Invalid   int       `json:"invalid"`
	Approved  int       `json:"approved"`
	Rejected  int       `json:"rejected"`
	// ApprovalRate is Approved / Scored.
	ApprovalRate float64 `json:"approval_rate"`
	// Labeled counts scored rows with a known outcome; Agreement is the
	// share of those where the decision matches it.
	Labeled   int       `json:"labeled"`
	Agreement float64   `json:"agreement"`
	Outcomes  []Outcome `json:"outcomes"`
}

type Engine struct {
	scorer *ml.Scorer
	data   *DataLoader
	res    Results
}

func NewEngine(scorer *ml.Scorer, data *DataLoader) *Engine {
	return &Engine{scorer: scorer, data: data}
}

// Run scores every application. Invalid rows are counted and reported, not
// fatal. A missing model stops the run with an error matching
// ml.ErrModelUnavailable.
func (e *Engine) Run() error {
	if !e.scorer.Available() {
		return &ml.ModelUnavailableError{Model: "scorer", Err: errors.New("models not loaded")}
	}

	e.res = Results{Policy: e.scorer.Policy(), StartTime: time.Now()}
	e.data.Reset()
	for e.data.HasNext() {
		app := e.data.Next()
		out, err := e.score(app)
		if err != nil {
			return err
		}
		e.res.Outcomes = append(e.res.Outcomes, out)
	}
	e.res.EndTime = time.Now()
	e.calculateMetrics()

	log.Info().
		Int("total", e.res.Total).
		Int("scored", e.res.Scored).
		Int("invalid", e.res.Invalid).
		Float64("approval_rate", e.res.ApprovalRate).
		Msg("Batch scoring completed")
	return nil
}

func (e *Engine) score(app Application) (Outcome, error) {
	out := Outcome{Line: app.Line, LoanID: app.LoanID, Label: app.Label}

	rec, err := features.ParseApplicant(app.Get)
	if err != nil {
		return rejectRow(out, err)
	}
	_, res, err := e.scorer.ScoreApplicant(rec)
	if err != nil {
		if errors.Is(err, features.ErrInvalidInput) {
			return rejectRow(out, err)
		}
		return out, err
	}

	out.Result = &res
	if app.Label != nil {
		matches := (res.Decision == ml.Approved) == *app.Label
		out.Matches = &matches
	}
	return out, nil
}

func rejectRow(out Outcome, err error) (Outcome, error) {
	var invalid *features.InvalidInputError
	if errors.As(err, &invalid) {
		out.Field = invalid.Field
		out.Error = invalid.Message
	} else {
		out.Error = err.Error()
	}
	log.Debug().Int("line", out.Line).Str("loan_id", out.LoanID).Err(err).Msg("Skipping invalid application")
	return out, nil
}

func (e *Engine) calculateMetrics() {
	matched := 0
	for _, o := range e.res.Outcomes {
		e.res.Total++
		if o.Result == nil {
			e.res.Invalid++
			continue
		}
		e.res.Scored++
		if o.Result.Decision == ml.Approved {
			e.res.Approved++
		} else {
			e.res.Rejected++
		}
		if o.Matches != nil {
			e.res.Labeled++
			if *o.Matches {
				matched++
			}
		}
	}
	if e.res.Scored > 0 {
		e.res.ApprovalRate = float64(e.res.Approved) / float64(e.res.Scored)
	}
	if e.res.Labeled > 0 {
		e.res.Agreement = float64(matched) / float64(e.res.Labeled)
	}
}

func (e *Engine) GetResults() *Results {
	return &e.res
}
